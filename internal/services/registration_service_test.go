package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/database/testutil"
	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/pkg/mail"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	fail     error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages)
	return m.messages[len(m.messages)-1]
}

func registrationInput() RegisterInput {
	return RegisterInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "pw123",
		PasswordConfirm: "pw123",
	}
}

func TestRegistrationSubmitStoresCodeBeforeDispatch(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &recordingMailer{}
	service, err := NewRegistrationService(db, mailer)
	require.NoError(t, err)

	pending, err := service.Submit(context.Background(), registrationInput())
	require.NoError(t, err)
	require.NotEmpty(t, pending.Key)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "alice@example.com").Error)
	require.False(t, user.IsActive)

	var state models.PendingRegistration
	require.NoError(t, db.First(&state, "id = ?", pending.Key).Error)
	require.Equal(t, user.ID, state.UserID)
	require.Len(t, state.Code, 6)

	// The emailed code is the stored code.
	require.Contains(t, mailer.last(t).Body, state.Code)
	require.Equal(t, []string{"alice@example.com"}, mailer.last(t).To)
}

func TestRegistrationSubmitMailFailureKeepsPendingState(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &recordingMailer{fail: errors.New("smtp down")}
	service, err := NewRegistrationService(db, mailer)
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), registrationInput())
	require.Error(t, err)

	// Code generation and persistence happen before dispatch, so the
	// pending row survives the delivery failure.
	var count int64
	require.NoError(t, db.Model(&models.PendingRegistration{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegistrationSubmitValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewRegistrationService(db, nil)
	require.NoError(t, err)

	input := registrationInput()
	input.PasswordConfirm = "other"
	_, err = service.Submit(context.Background(), input)
	require.ErrorIs(t, err, ErrPasswordMismatch)

	// No account is created on a failed submit.
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRegistrationSubmitEmailConflict(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewRegistrationService(db, nil)
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), registrationInput())
	require.NoError(t, err)

	input := registrationInput()
	input.Username = "alice2"
	_, err = service.Submit(context.Background(), input)
	require.ErrorIs(t, err, ErrEmailTaken)

	input = registrationInput()
	input.Email = "other@example.com"
	_, err = service.Submit(context.Background(), input)
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegistrationConfirmActivatesOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewRegistrationService(db, nil)
	require.NoError(t, err)

	pending, err := service.Submit(context.Background(), registrationInput())
	require.NoError(t, err)

	var state models.PendingRegistration
	require.NoError(t, db.First(&state, "id = ?", pending.Key).Error)

	// Wrong code leaves state untouched and is retryable.
	_, err = service.Confirm(context.Background(), pending.Key, "000000")
	require.ErrorIs(t, err, ErrCodeMismatch)
	require.NoError(t, db.First(&models.PendingRegistration{}, "id = ?", pending.Key).Error)

	user, err := service.Confirm(context.Background(), pending.Key, " "+state.Code+" ")
	require.NoError(t, err)
	require.True(t, user.IsActive)

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	require.True(t, profile.Verified)
	require.False(t, profile.PhoneVerified)

	err = db.First(&models.PendingRegistration{}, "id = ?", pending.Key).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Re-confirming the consumed key fails.
	_, err = service.Confirm(context.Background(), pending.Key, state.Code)
	require.ErrorIs(t, err, ErrNoPendingRegistration)
}

func TestRegistrationConfirmUnknownKey(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewRegistrationService(db, nil)
	require.NoError(t, err)

	_, err = service.Confirm(context.Background(), "no-such-key", "123456")
	require.ErrorIs(t, err, ErrNoPendingRegistration)
}

func TestRegistrationConfirmExpiredCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Now()
	service, err := NewRegistrationService(db, nil,
		WithRegistrationClock(func() time.Time { return current }))
	require.NoError(t, err)

	pending, err := service.Submit(context.Background(), registrationInput())
	require.NoError(t, err)

	var state models.PendingRegistration
	require.NoError(t, db.First(&state, "id = ?", pending.Key).Error)

	current = current.Add(11 * time.Minute)
	_, err = service.Confirm(context.Background(), pending.Key, state.Code)
	require.ErrorIs(t, err, ErrCodeExpired)

	// Expired state is dropped, so the next attempt reports no pending.
	_, err = service.Confirm(context.Background(), pending.Key, state.Code)
	require.ErrorIs(t, err, ErrNoPendingRegistration)
}

func TestRegistrationConfirmAttemptLimiter(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewRegistrationService(db, nil,
		WithRegistrationLimiter(NewMemoryAttemptLimiter(2)))
	require.NoError(t, err)

	pending, err := service.Submit(context.Background(), registrationInput())
	require.NoError(t, err)

	_, err = service.Confirm(context.Background(), pending.Key, "000000")
	require.ErrorIs(t, err, ErrCodeMismatch)
	_, err = service.Confirm(context.Background(), pending.Key, "000001")
	require.ErrorIs(t, err, ErrCodeMismatch)
	_, err = service.Confirm(context.Background(), pending.Key, "000002")
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestRegistrationPurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Now()
	service, err := NewRegistrationService(db, nil,
		WithRegistrationClock(func() time.Time { return current }))
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), registrationInput())
	require.NoError(t, err)

	current = current.Add(48 * time.Hour)
	purged, err := service.PurgeExpired(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var users int64
	require.NoError(t, db.Unscoped().Model(&models.User{}).
		Where("deleted_at IS NULL").Count(&users).Error)
	require.Zero(t, users)
}
