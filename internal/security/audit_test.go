package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mgiordano/clasificados/internal/app"
	"github.com/mgiordano/clasificados/internal/database/testutil"
	"github.com/mgiordano/clasificados/internal/models"
)

func auditConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Auth.Session.RefreshTTL = 30 * 24 * time.Hour
	cfg.Verification.CodeTTL = 10 * time.Minute
	cfg.Email.SMTP.Enabled = true
	cfg.Email.SMTP.Username = "mailer"
	return cfg
}

func checkByID(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %s not found", id)
	return Check{}
}

func TestAuditPassesOnHealthyConfig(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	result := NewAuditService(db, auditConfig()).Run(context.Background())

	require.Equal(t, len(result.Checks), result.Summary[string(StatusPass)])
	require.Zero(t, result.Summary[string(StatusFail)])
}

func TestAuditFlagsWeakSecrets(t *testing.T) {
	cfg := auditConfig()
	cfg.Auth.JWT.Secret = "short"
	result := NewAuditService(nil, cfg).Run(context.Background())
	require.Equal(t, StatusWarn, checkByID(t, result, "auth.jwt_secret").Status)

	cfg.Auth.JWT.Secret = "   "
	result = NewAuditService(nil, cfg).Run(context.Background())
	require.Equal(t, StatusFail, checkByID(t, result, "auth.jwt_secret").Status)
}

func TestAuditFlagsLongLivedTokensAndCodes(t *testing.T) {
	cfg := auditConfig()
	cfg.Auth.Session.RefreshTTL = 365 * 24 * time.Hour
	cfg.Verification.CodeTTL = 2 * time.Hour

	result := NewAuditService(nil, cfg).Run(context.Background())
	require.Equal(t, StatusWarn, checkByID(t, result, "auth.session_ttl").Status)
	require.Equal(t, StatusWarn, checkByID(t, result, "verification.code_ttl").Status)
}

func TestAuditFlagsDisabledMail(t *testing.T) {
	cfg := auditConfig()
	cfg.Email.SMTP.Enabled = false

	result := NewAuditService(nil, cfg).Run(context.Background())
	require.Equal(t, StatusWarn, checkByID(t, result, "email.delivery").Status)
}

func TestAuditFlagsStaleRegistrations(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	user := models.User{Username: "ghost", Email: "ghost@example.com", Password: "x", IsActive: false}
	require.NoError(t, db.Create(&user).Error)
	pending := models.PendingRegistration{
		UserID:    user.ID,
		Code:      "123456",
		ExpiresAt: time.Now().Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(&pending).Error)

	result := NewAuditService(db, auditConfig()).Run(context.Background())
	check := checkByID(t, result, "accounts.stale_registrations")
	require.Equal(t, StatusWarn, check.Status)
	require.Contains(t, check.Message, "1 pending registrations")
}
