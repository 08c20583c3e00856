package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryAttemptLimiter(t *testing.T) {
	limiter := NewMemoryAttemptLimiter(2)

	require.True(t, limiter.Allow("a"))
	require.True(t, limiter.Allow("a"))
	require.False(t, limiter.Allow("a"))

	// Other keys are unaffected.
	require.True(t, limiter.Allow("b"))

	limiter.Reset("a")
	require.True(t, limiter.Allow("a"))
}
