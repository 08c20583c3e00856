package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/database/testutil"
	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/pkg/sms"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []sms.Message
}

func (s *recordingSender) Send(_ context.Context, msg sms.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

type recordingMarker struct {
	mu     sync.Mutex
	marked []string
}

func (m *recordingMarker) MarkTwoFactorVerified(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, sessionID)
	return nil
}

func seedVerificationUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSubmitPhoneIssuesSessionCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)
	sender := &recordingSender{}
	marker := &recordingMarker{}

	service, err := NewPhoneVerificationService(db, sender, marker)
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, " +54 11 5555-0001 "))

	// Profile is created on demand, carrying the unverified number.
	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	require.Equal(t, "+54 11 5555-0001", profile.Phone)
	require.False(t, profile.PhoneVerified)

	var pending models.PendingPhoneVerification
	require.NoError(t, db.First(&pending, "session_id = ?", "sess-1").Error)
	require.Len(t, pending.Code, 6)

	require.Len(t, sender.messages, 1)
	require.Contains(t, sender.messages[0].Body, pending.Code)
}

func TestSubmitPhoneRejectsEmptyNumber(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewPhoneVerificationService(db, nil, &recordingMarker{})
	require.NoError(t, err)

	err = service.SubmitPhone(context.Background(), "sess-1", "user-1", "   ")
	require.ErrorIs(t, err, ErrPhoneRequired)
}

func TestSubmitPhoneResetsVerifiedFlag(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)
	require.NoError(t, db.Create(&models.Profile{
		UserID:        user.ID,
		Phone:         "+54 11 5555-0001",
		PhoneVerified: true,
	}).Error)

	service, err := NewPhoneVerificationService(db, nil, &recordingMarker{})
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0002"))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	require.Equal(t, "+54 11 5555-0002", profile.Phone)
	require.False(t, profile.PhoneVerified)
}

func TestConfirmPhoneMarksProfileAndSession(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)
	marker := &recordingMarker{}

	service, err := NewPhoneVerificationService(db, nil, marker)
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0001"))

	var pending models.PendingPhoneVerification
	require.NoError(t, db.First(&pending, "session_id = ?", "sess-1").Error)

	// Wrong code is retryable without disturbing state.
	err = service.ConfirmPhone(context.Background(), "sess-1", user.ID, "000000")
	require.ErrorIs(t, err, ErrCodeMismatch)

	require.NoError(t, service.ConfirmPhone(context.Background(), "sess-1", user.ID, pending.Code))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
	require.True(t, profile.PhoneVerified)

	require.Equal(t, []string{"sess-1"}, marker.marked)

	err = db.First(&models.PendingPhoneVerification{}, "session_id = ?", "sess-1").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Confirming again reports no pending code.
	err = service.ConfirmPhone(context.Background(), "sess-1", user.ID, pending.Code)
	require.ErrorIs(t, err, ErrNoPendingCode)
}

func TestConfirmPhoneIsSessionScoped(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)
	service, err := NewPhoneVerificationService(db, nil, &recordingMarker{})
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0001"))

	var pending models.PendingPhoneVerification
	require.NoError(t, db.First(&pending, "session_id = ?", "sess-1").Error)

	// A different session holds no pending code, even with the right code.
	err = service.ConfirmPhone(context.Background(), "sess-2", user.ID, pending.Code)
	require.ErrorIs(t, err, ErrNoPendingCode)

	// Nor can another user consume this session's code.
	err = service.ConfirmPhone(context.Background(), "sess-1", "other-user", pending.Code)
	require.ErrorIs(t, err, ErrNoPendingCode)
}

func TestConfirmPhoneExpiredCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)

	current := time.Now()
	service, err := NewPhoneVerificationService(db, nil, &recordingMarker{},
		WithPhoneClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0001"))

	var pending models.PendingPhoneVerification
	require.NoError(t, db.First(&pending, "session_id = ?", "sess-1").Error)

	current = current.Add(11 * time.Minute)
	err = service.ConfirmPhone(context.Background(), "sess-1", user.ID, pending.Code)
	require.ErrorIs(t, err, ErrCodeExpired)
}

func TestSubmitPhoneReplacesPreviousCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)
	service, err := NewPhoneVerificationService(db, nil, &recordingMarker{})
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0001"))
	var first models.PendingPhoneVerification
	require.NoError(t, db.First(&first, "session_id = ?", "sess-1").Error)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0002"))

	var count int64
	require.NoError(t, db.Model(&models.PendingPhoneVerification{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var second models.PendingPhoneVerification
	require.NoError(t, db.First(&second, "session_id = ?", "sess-1").Error)
	require.Equal(t, "+54 11 5555-0002", second.Phone)
}

func TestPhonePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedVerificationUser(t, db)

	current := time.Now()
	service, err := NewPhoneVerificationService(db, nil, &recordingMarker{},
		WithPhoneClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, service.SubmitPhone(context.Background(), "sess-1", user.ID, "+54 11 5555-0001"))

	current = current.Add(time.Hour)
	purged, err := service.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}
