package services

import (
	"sync"
)

// AttemptLimiter bounds how often a verification code may be checked for a
// given key. Confirm flows consult it before comparing codes; deployments
// that want unlimited retries simply leave it nil.
type AttemptLimiter interface {
	// Allow reports whether another attempt is permitted for key.
	Allow(key string) bool
	// Reset clears the attempt counter for key.
	Reset(key string)
}

// MemoryAttemptLimiter is a process-local AttemptLimiter capping attempts
// per key.
type MemoryAttemptLimiter struct {
	mu       sync.Mutex
	max      int
	attempts map[string]int
}

// NewMemoryAttemptLimiter builds a limiter allowing max attempts per key.
func NewMemoryAttemptLimiter(max int) *MemoryAttemptLimiter {
	if max <= 0 {
		max = 5
	}
	return &MemoryAttemptLimiter{
		max:      max,
		attempts: make(map[string]int),
	}
}

func (l *MemoryAttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.attempts[key] >= l.max {
		return false
	}
	l.attempts[key]++
	return true
}

func (l *MemoryAttemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}
