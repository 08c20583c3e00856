package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/mgiordano/clasificados/internal/auth"
	"github.com/mgiordano/clasificados/internal/database/testutil"
	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/internal/services"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Now()
	clock := func() time.Time { return current }

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "maintenance-secret",
		Issuer: "test",
		Clock:  clock,
	})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           clock,
	})
	require.NoError(t, err)
	registrations, err := services.NewRegistrationService(db, nil,
		services.WithRegistrationClock(clock))
	require.NoError(t, err)
	verifications, err := services.NewPhoneVerificationService(db, nil, sessions,
		services.WithPhoneClock(clock))
	require.NoError(t, err)

	// Seed an expired session, a stale pending registration and an expired
	// phone code.
	user := &models.User{Username: "stale", Email: "stale@example.com", Password: "hash", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	_, _, err = sessions.CreateSession(user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	_, err = registrations.Submit(context.Background(), services.RegisterInput{
		Username:        "ghost",
		Email:           "ghost@example.com",
		Password:        "pw",
		PasswordConfirm: "pw",
	})
	require.NoError(t, err)

	require.NoError(t, verifications.SubmitPhone(context.Background(), "sess-x", user.ID, "+54 11 5555-0001"))

	current = current.Add(72 * time.Hour)

	cleaner := NewCleaner(sessions, registrations, verifications,
		WithPendingRetention(24*time.Hour))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount, pendingCount, phoneCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.NoError(t, db.Model(&models.PendingRegistration{}).Count(&pendingCount).Error)
	require.NoError(t, db.Model(&models.PendingPhoneVerification{}).Count(&phoneCount).Error)
	require.Zero(t, sessionCount)
	require.Zero(t, pendingCount)
	require.Zero(t, phoneCount)

	// The never-activated account is gone; the real account survives.
	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	require.Equal(t, "stale", users[0].Username)
}

func TestCleanerSkipsNilDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
