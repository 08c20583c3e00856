package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
)

// ErrInvalidRole signals an unknown profile role.
var ErrInvalidRole = errors.New("profile: invalid role")

// UpdateProfileInput carries optional profile changes; nil fields are left
// untouched.
type UpdateProfileInput struct {
	Phone    *string
	Location *string
	Avatar   *string
	Role     *string
}

// ProfileService manages per-user profiles. Profiles are created lazily the
// first time they are needed rather than at registration.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService constructs the service.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// GetOrCreate returns the user's profile, creating an empty one when absent.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID string) (*models.Profile, error) {
	ctx = ensureContext(ctx)
	if userID == "" {
		return nil, errors.New("profile: user id is required")
	}

	profile := models.Profile{UserID: userID}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(&profile).Error; err != nil {
		return nil, fmt.Errorf("profile: get or create: %w", err)
	}
	return &profile, nil
}

// Update applies the provided changes. Changing the phone number always
// resets PhoneVerified; a fresh verification round is required afterwards.
func (s *ProfileService) Update(ctx context.Context, userID string, input UpdateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != profile.Phone {
			updates["phone"] = phone
			updates["phone_verified"] = false
		}
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}
	if input.Role != nil {
		role := strings.TrimSpace(*input.Role)
		switch role {
		case models.RoleBuyer, models.RoleSeller:
			updates["role"] = role
		default:
			return nil, ErrInvalidRole
		}
	}

	if len(updates) == 0 {
		return profile, nil
	}

	if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("profile: update: %w", err)
	}

	return s.GetOrCreate(ctx, userID)
}
