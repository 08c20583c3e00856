package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned for unknown identifiers or wrong passwords.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountInactive signals the account has not completed email activation.
	ErrAccountInactive = errors.New("auth: account is not active")
)

// LocalProvider authenticates users against the local credential store.
type LocalProvider struct {
	db *gorm.DB
}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider(db *gorm.DB) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("auth: db is required")
	}
	return &LocalProvider{db: db}, nil
}

// Authenticate resolves the identifier (username or email) and verifies the
// password. Inactive accounts are rejected even with correct credentials so
// unconfirmed registrations cannot log in.
func (p *LocalProvider) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := p.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	return &user, nil
}
