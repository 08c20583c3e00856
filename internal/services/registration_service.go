package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/internal/otp"
	"github.com/mgiordano/clasificados/pkg/crypto"
	"github.com/mgiordano/clasificados/pkg/logger"
	"github.com/mgiordano/clasificados/pkg/mail"
	"github.com/mgiordano/clasificados/pkg/metrics"
)

const defaultCodeExpiry = 10 * time.Minute

var (
	// ErrPasswordMismatch signals that password and confirmation differ.
	ErrPasswordMismatch = errors.New("registration: passwords do not match")
	// ErrEmailTaken signals the email is already registered.
	ErrEmailTaken = errors.New("registration: email already registered")
	// ErrUsernameTaken signals the username is already registered.
	ErrUsernameTaken = errors.New("registration: username already registered")
	// ErrNoPendingRegistration indicates no registration awaits confirmation
	// under the supplied key.
	ErrNoPendingRegistration = errors.New("registration: no pending registration")

	// ErrCodeMismatch signals the submitted code does not match the issued
	// one. Pending state is untouched so the caller may retry.
	ErrCodeMismatch = errors.New("verification: code mismatch")
	// ErrCodeExpired signals the issued code outlived its validity window.
	ErrCodeExpired = errors.New("verification: code expired")
	// ErrTooManyAttempts signals the attempt limiter rejected the confirm.
	ErrTooManyAttempts = errors.New("verification: too many attempts")
)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// PendingKey is the opaque handle a client holds between submitting the
// form and confirming the emailed code.
type PendingKey struct {
	Key       string
	ExpiresAt time.Time
}

// RegistrationOption customises the RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithRegistrationExpiry overrides the code validity window.
func WithRegistrationExpiry(d time.Duration) RegistrationOption {
	return func(s *RegistrationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithRegistrationClock injects a custom time source.
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithRegistrationLimiter plugs an attempt limiter into Confirm.
func WithRegistrationLimiter(limiter AttemptLimiter) RegistrationOption {
	return func(s *RegistrationService) {
		s.limiter = limiter
	}
}

// RegistrationService runs the two-step account registration flow: an
// inactive account plus an emailed numeric code, then activation once the
// code is confirmed.
type RegistrationService struct {
	db      *gorm.DB
	mailer  mail.Mailer
	limiter AttemptLimiter
	expiry  time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewRegistrationService constructs the service. The mailer may be nil,
// in which case codes are only persisted (useful in tests and dev).
func NewRegistrationService(db *gorm.DB, mailer mail.Mailer, opts ...RegistrationOption) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}

	service := &RegistrationService{
		db:     db,
		mailer: mailer,
		expiry: defaultCodeExpiry,
		now:    time.Now,
		log:    logger.WithModule("registration"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Submit validates the form, creates an inactive account and issues the
// activation code. The code is persisted before the email is dispatched so a
// delivery failure never leaves a code the server cannot verify.
func (s *RegistrationService) Submit(ctx context.Context, input RegisterInput) (*PendingKey, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, errors.New("registration: username, email and password are required")
	}
	if input.Password != input.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("registration: check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("registration: hash password: %w", err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		IsActive: false,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Email is pre-checked above, so the collision is the username.
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("registration: create user: %w", err)
	}

	code := otp.Format(otp.Generate())
	pending := models.PendingRegistration{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: s.now().Add(s.expiry),
	}
	if err := s.db.WithContext(ctx).Create(&pending).Error; err != nil {
		return nil, fmt.Errorf("registration: store pending code: %w", err)
	}
	metrics.CodesIssued.WithLabelValues("email").Inc()

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{email},
			Subject: "Confirma tu cuenta",
			Body:    fmt.Sprintf("Hola %s,\n\nTu código de verificación es: %s\n\nExpira en %s.\n", username, code, s.expiry),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			// The code is already stored; surface the failure so the client
			// can retry delivery without losing the pending state.
			return nil, fmt.Errorf("registration: send code email: %w", mailErr)
		}
	}

	s.log.Info("registration submitted",
		zap.String("user_id", user.ID),
		zap.String("pending_key", pending.ID))

	return &PendingKey{Key: pending.ID, ExpiresAt: pending.ExpiresAt}, nil
}

// Confirm checks the submitted code against the pending registration under
// key. On success the account is activated, a profile is created and the
// pending state is deleted, so a second Confirm with the same key fails.
func (s *RegistrationService) Confirm(ctx context.Context, key, code string) (*models.User, error) {
	ctx = ensureContext(ctx)

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNoPendingRegistration
	}

	var pending models.PendingRegistration
	if err := s.db.WithContext(ctx).First(&pending, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.VerificationAttempts.WithLabelValues("email", "missing").Inc()
			return nil, ErrNoPendingRegistration
		}
		return nil, fmt.Errorf("registration: load pending: %w", err)
	}

	if s.now().After(pending.ExpiresAt) {
		metrics.VerificationAttempts.WithLabelValues("email", "expired").Inc()
		if err := s.db.WithContext(ctx).Delete(&pending).Error; err != nil {
			return nil, fmt.Errorf("registration: drop expired pending: %w", err)
		}
		return nil, ErrCodeExpired
	}

	if s.limiter != nil && !s.limiter.Allow("registration:"+key) {
		return nil, ErrTooManyAttempts
	}

	if !otp.Matches(pending.Code, code) {
		metrics.VerificationAttempts.WithLabelValues("email", "invalid").Inc()
		return nil, ErrCodeMismatch
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", pending.UserID).Error; err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		if err := tx.Model(&user).Update("is_active", true).Error; err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		user.IsActive = true

		profile := models.Profile{UserID: user.ID}
		if err := tx.Where("user_id = ?", user.ID).
			Attrs(models.Profile{Verified: true}).
			FirstOrCreate(&profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}

		if err := tx.Delete(&models.PendingRegistration{}, "id = ?", pending.ID).Error; err != nil {
			return fmt.Errorf("clear pending: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("registration: confirm: %w", err)
	}

	if s.limiter != nil {
		s.limiter.Reset("registration:" + key)
	}
	metrics.VerificationAttempts.WithLabelValues("email", "success").Inc()
	s.log.Info("account activated", zap.String("user_id", user.ID))

	return &user, nil
}

// PurgeExpired removes pending registrations past their expiry, together
// with accounts that never activated within the retention window. Invoked by
// the maintenance cleaner.
func (s *RegistrationService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)
	cutoff := s.now().Add(-retention)

	var stale []models.PendingRegistration
	if err := s.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("registration: find stale pending: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, pending := range stale {
			result := tx.Where("id = ? AND is_active = ?", pending.UserID, false).
				Delete(&models.User{})
			if result.Error != nil {
				return fmt.Errorf("delete inactive user: %w", result.Error)
			}
			if err := tx.Delete(&models.PendingRegistration{}, "id = ?", pending.ID).Error; err != nil {
				return fmt.Errorf("delete pending: %w", err)
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}
