// Package security evaluates deployment configuration against a small set of
// hardening checks. The server runs them once at startup and logs anything
// that is not a pass.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/app"
	"github.com/mgiordano/clasificados/internal/models"
)

// CheckStatus captures the outcome of a single audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of one audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
}

// Result aggregates all checks with a per-status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

const (
	minSecretLength  = 32
	maxRefreshTTL    = 90 * 24 * time.Hour
	maxCodeTTL       = time.Hour
	staleAccountKeep = 7 * 24 * time.Hour
)

// AuditService evaluates core security controls and configuration. Missing
// dependencies degrade the related checks to warnings instead of failing.
type AuditService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service.
func NewAuditService(db *gorm.DB, cfg *app.Config) *AuditService {
	return &AuditService{db: db, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used in results.
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkJWTSecret(),
		s.checkSessionTTL(),
		s.checkCodeTTL(),
		s.checkMailDelivery(),
		s.checkStaleAccounts(ctx),
	}

	summary := map[string]int{}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) checkJWTSecret() Check {
	check := Check{ID: "auth.jwt_secret", Status: StatusPass, Message: "jwt secret meets the minimum length"}
	if s.cfg == nil {
		check.Status = StatusWarn
		check.Message = "configuration unavailable, secret not inspected"
		return check
	}

	secret := strings.TrimSpace(s.cfg.Auth.JWT.Secret)
	switch {
	case secret == "":
		check.Status = StatusFail
		check.Message = "jwt secret is empty"
		check.Remediation = "set auth.jwt.secret to a random value of at least 32 bytes"
	case len(secret) < minSecretLength:
		check.Status = StatusWarn
		check.Message = fmt.Sprintf("jwt secret is only %d bytes", len(secret))
		check.Remediation = fmt.Sprintf("use a secret of at least %d bytes", minSecretLength)
	}
	return check
}

func (s *AuditService) checkSessionTTL() Check {
	check := Check{ID: "auth.session_ttl", Status: StatusPass, Message: "refresh token lifetime is bounded"}
	if s.cfg == nil {
		check.Status = StatusWarn
		check.Message = "configuration unavailable, session lifetime not inspected"
		return check
	}

	ttl := s.cfg.Auth.Session.RefreshTTL
	switch {
	case ttl <= 0:
		check.Status = StatusWarn
		check.Message = "refresh token lifetime is not set, the built-in default applies"
	case ttl > maxRefreshTTL:
		check.Status = StatusWarn
		check.Message = fmt.Sprintf("refresh tokens live %s", ttl)
		check.Remediation = fmt.Sprintf("keep auth.session.refresh_token_ttl at or below %s", maxRefreshTTL)
	}
	return check
}

func (s *AuditService) checkCodeTTL() Check {
	check := Check{ID: "verification.code_ttl", Status: StatusPass, Message: "verification codes are short-lived"}
	if s.cfg == nil {
		check.Status = StatusWarn
		check.Message = "configuration unavailable, code lifetime not inspected"
		return check
	}

	ttl := s.cfg.Verification.CodeTTL
	if ttl > maxCodeTTL {
		check.Status = StatusWarn
		check.Message = fmt.Sprintf("verification codes stay valid for %s", ttl)
		check.Remediation = fmt.Sprintf("keep verification.code_ttl at or below %s", maxCodeTTL)
	}
	return check
}

func (s *AuditService) checkMailDelivery() Check {
	check := Check{ID: "email.delivery", Status: StatusPass, Message: "smtp delivery is configured"}
	if s.cfg == nil {
		check.Status = StatusWarn
		check.Message = "configuration unavailable, mail delivery not inspected"
		return check
	}

	smtp := s.cfg.Email.SMTP
	switch {
	case !smtp.Enabled:
		check.Status = StatusWarn
		check.Message = "smtp delivery is disabled, activation codes only reach the log"
		check.Remediation = "enable email.smtp for production deployments"
	case strings.TrimSpace(smtp.Username) == "":
		check.Status = StatusWarn
		check.Message = "smtp is enabled without credentials"
	}
	return check
}

// checkStaleAccounts flags never-activated accounts whose registration code
// expired long ago. A growing count means the maintenance purge is not
// running.
func (s *AuditService) checkStaleAccounts(ctx context.Context) Check {
	check := Check{ID: "accounts.stale_registrations", Status: StatusPass, Message: "no stale inactive accounts"}
	if s.db == nil {
		check.Status = StatusWarn
		check.Message = "database unavailable, accounts not inspected"
		return check
	}

	cutoff := s.now().Add(-staleAccountKeep)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PendingRegistration{}).
		Where("expires_at < ?", cutoff).
		Count(&count).Error
	if err != nil {
		check.Status = StatusWarn
		check.Message = fmt.Sprintf("account inspection failed: %v", err)
		return check
	}

	if count > 0 {
		check.Status = StatusWarn
		check.Message = fmt.Sprintf("%d pending registrations expired more than %s ago", count, staleAccountKeep)
		check.Remediation = "enable the maintenance cleanup job"
	}
	return check
}
