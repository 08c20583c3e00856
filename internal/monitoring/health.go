// Package monitoring runs dependency probes behind the readiness endpoint.
package monitoring

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string      `json:"component"`
	Status    ProbeStatus `json:"status"`
	Details   string      `json:"details,omitempty"`
	Duration  string      `json:"duration"`
}

// Report aggregates probe results for a readiness evaluation.
type Report struct {
	Status ProbeStatus   `json:"status"`
	Checks []ProbeResult `json:"checks"`
}

// Check encapsulates a single dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// Manager coordinates readiness probes.
type Manager struct {
	checks []Check
}

// NewManager constructs a manager over the given checks.
func NewManager(checks ...Check) *Manager {
	return &Manager{checks: checks}
}

// Register appends additional checks.
func (m *Manager) Register(checks ...Check) {
	m.checks = append(m.checks, checks...)
}

// Evaluate runs every registered check and folds the results into a report.
// The report status is the worst individual status: one degraded probe makes
// the report degraded, one down probe makes it down.
func (m *Manager) Evaluate(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}

	report := Report{Status: StatusUp}
	for _, check := range m.checks {
		started := time.Now()
		result := check.Run(ctx)
		if result.Component == "" {
			result.Component = check.Name
		}
		if result.Duration == "" {
			result.Duration = time.Since(started).Round(time.Millisecond).String()
		}
		report.Checks = append(report.Checks, result)

		switch result.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// Healthy reports whether the evaluation found no failing probe.
func (r Report) Healthy() bool {
	return r.Status != StatusDown
}

const databaseProbeTimeout = 2 * time.Second

// DatabaseCheck pings the underlying SQL connection.
func DatabaseCheck(db *gorm.DB) Check {
	return Check{
		Name: "database",
		Run: func(ctx context.Context) ProbeResult {
			result := ProbeResult{Component: "database", Status: StatusUp}
			if db == nil {
				result.Status = StatusDown
				result.Details = "database handle is not configured"
				return result
			}

			sqlDB, err := db.DB()
			if err != nil {
				result.Status = StatusDown
				result.Details = err.Error()
				return result
			}

			pingCtx, cancel := context.WithTimeout(ctx, databaseProbeTimeout)
			defer cancel()

			if err := sqlDB.PingContext(pingCtx); err != nil {
				result.Status = StatusDown
				if errors.Is(err, context.DeadlineExceeded) {
					result.Details = "ping timed out"
				} else {
					result.Details = err.Error()
				}
			}
			return result
		},
	}
}
