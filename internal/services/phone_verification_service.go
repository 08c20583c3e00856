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
	"github.com/mgiordano/clasificados/pkg/logger"
	"github.com/mgiordano/clasificados/pkg/metrics"
	"github.com/mgiordano/clasificados/pkg/sms"
)

var (
	// ErrPhoneRequired signals a submit with an empty phone number.
	ErrPhoneRequired = errors.New("phone verification: phone number is required")
	// ErrNoPendingCode indicates the session has no code awaiting
	// confirmation.
	ErrNoPendingCode = errors.New("phone verification: no pending code")
)

// SessionMarker flags a login session as two-factor verified. Satisfied by
// auth.SessionService.
type SessionMarker interface {
	MarkTwoFactorVerified(ctx context.Context, sessionID string) error
}

// PhoneVerificationOption customises the PhoneVerificationService.
type PhoneVerificationOption func(*PhoneVerificationService)

// WithPhoneExpiry overrides the code validity window.
func WithPhoneExpiry(d time.Duration) PhoneVerificationOption {
	return func(s *PhoneVerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithPhoneClock injects a custom time source.
func WithPhoneClock(clock func() time.Time) PhoneVerificationOption {
	return func(s *PhoneVerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithPhoneLimiter plugs an attempt limiter into ConfirmPhone.
func WithPhoneLimiter(limiter AttemptLimiter) PhoneVerificationOption {
	return func(s *PhoneVerificationService) {
		s.limiter = limiter
	}
}

// PhoneVerificationService runs the per-session phone verification flow. A
// code is issued to the session submitting the phone number; confirming it
// marks the profile phone as verified and flags that session, and only that
// session, as two-factor verified.
type PhoneVerificationService struct {
	db       *gorm.DB
	sender   sms.Sender
	sessions SessionMarker
	limiter  AttemptLimiter
	expiry   time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewPhoneVerificationService constructs the service.
func NewPhoneVerificationService(db *gorm.DB, sender sms.Sender, sessions SessionMarker, opts ...PhoneVerificationOption) (*PhoneVerificationService, error) {
	if db == nil {
		return nil, errors.New("phone verification service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("phone verification service: session marker is required")
	}

	service := &PhoneVerificationService{
		db:       db,
		sender:   sender,
		sessions: sessions,
		expiry:   defaultCodeExpiry,
		now:      time.Now,
		log:      logger.WithModule("phone_verification"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// SubmitPhone records the phone number on the user's profile, invalidating
// any previous verification, then issues and dispatches a fresh code keyed
// to the calling session. Resubmitting replaces the previous pending code.
func (s *PhoneVerificationService) SubmitPhone(ctx context.Context, sessionID, userID, phone string) error {
	ctx = ensureContext(ctx)

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ErrPhoneRequired
	}
	if sessionID == "" || userID == "" {
		return errors.New("phone verification: session and user are required")
	}

	code := otp.Format(otp.Generate())
	expiresAt := s.now().Add(s.expiry)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile := models.Profile{UserID: userID}
		if err := tx.Where("user_id = ?", userID).FirstOrCreate(&profile).Error; err != nil {
			return fmt.Errorf("load profile: %w", err)
		}

		// Writing the number always clears the verified flag, even when the
		// number is unchanged.
		updates := map[string]any{"phone": phone, "phone_verified": false}
		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return fmt.Errorf("store phone: %w", err)
		}

		if err := tx.Delete(&models.PendingPhoneVerification{}, "session_id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("clear previous code: %w", err)
		}
		pending := models.PendingPhoneVerification{
			SessionID: sessionID,
			UserID:    userID,
			Phone:     phone,
			Code:      code,
			ExpiresAt: expiresAt,
		}
		if err := tx.Create(&pending).Error; err != nil {
			return fmt.Errorf("store pending code: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("phone verification: submit: %w", err)
	}
	metrics.CodesIssued.WithLabelValues("sms").Inc()

	if s.sender != nil {
		message := sms.Message{
			To:   phone,
			Body: fmt.Sprintf("Tu código de verificación es: %s", code),
		}
		if sendErr := s.sender.Send(ctx, message); sendErr != nil {
			// Pending state is already persisted; report the failure so the
			// client can request a resend.
			return fmt.Errorf("phone verification: send sms: %w", sendErr)
		}
	}

	s.log.Info("phone code issued",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
	return nil
}

// ConfirmPhone checks the submitted code for the calling session. On success
// the profile phone becomes verified, the pending code is cleared and the
// session is marked two-factor verified. Other sessions of the same user are
// not marked.
func (s *PhoneVerificationService) ConfirmPhone(ctx context.Context, sessionID, userID, code string) error {
	ctx = ensureContext(ctx)

	var pending models.PendingPhoneVerification
	err := s.db.WithContext(ctx).First(&pending, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.VerificationAttempts.WithLabelValues("sms", "missing").Inc()
			return ErrNoPendingCode
		}
		return fmt.Errorf("phone verification: load pending: %w", err)
	}
	if pending.UserID != userID {
		metrics.VerificationAttempts.WithLabelValues("sms", "missing").Inc()
		return ErrNoPendingCode
	}

	if s.now().After(pending.ExpiresAt) {
		metrics.VerificationAttempts.WithLabelValues("sms", "expired").Inc()
		if err := s.db.WithContext(ctx).Delete(&pending).Error; err != nil {
			return fmt.Errorf("phone verification: drop expired pending: %w", err)
		}
		return ErrCodeExpired
	}

	if s.limiter != nil && !s.limiter.Allow("phone:"+sessionID) {
		return ErrTooManyAttempts
	}

	if !otp.Matches(pending.Code, code) {
		metrics.VerificationAttempts.WithLabelValues("sms", "invalid").Inc()
		return ErrCodeMismatch
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"phone": pending.Phone, "phone_verified": true}
		result := tx.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("mark phone verified: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.New("profile not found")
		}

		if err := tx.Delete(&models.PendingPhoneVerification{}, "session_id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("clear pending: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("phone verification: confirm: %w", err)
	}

	if err := s.sessions.MarkTwoFactorVerified(ctx, sessionID); err != nil {
		return fmt.Errorf("phone verification: mark session: %w", err)
	}

	if s.limiter != nil {
		s.limiter.Reset("phone:" + sessionID)
	}
	metrics.VerificationAttempts.WithLabelValues("sms", "success").Inc()
	s.log.Info("phone verified",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
	return nil
}

// PurgeExpired removes pending phone codes past their expiry. Invoked by the
// maintenance cleaner.
func (s *PhoneVerificationService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.PendingPhoneVerification{})
	if result.Error != nil {
		return 0, fmt.Errorf("phone verification: purge expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}
