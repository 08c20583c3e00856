package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
)

const maxCommentLength = 255

var (
	// ErrCommentEmpty signals a comment without content.
	ErrCommentEmpty = errors.New("comment: content is required")
	// ErrCommentTooLong signals content above the length cap.
	ErrCommentTooLong = errors.New("comment: content exceeds 255 characters")
)

// CommentService manages comments attached to listings.
type CommentService struct {
	db *gorm.DB
}

// NewCommentService constructs the service.
func NewCommentService(db *gorm.DB) (*CommentService, error) {
	if db == nil {
		return nil, errors.New("comment service: db is required")
	}
	return &CommentService{db: db}, nil
}

// Create attaches a comment to an active listing.
func (s *CommentService) Create(ctx context.Context, userID, listingID, content string) (*models.Comment, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentEmpty
	}
	if len(content) > maxCommentLength {
		return nil, ErrCommentTooLong
	}

	var listing models.Listing
	if err := s.db.WithContext(ctx).
		First(&listing, "id = ? AND active = ?", listingID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("comment: load listing: %w", err)
	}

	comment := models.Comment{
		ListingID: listing.ID,
		UserID:    &userID,
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("comment: create: %w", err)
	}
	return &comment, nil
}

// List returns a listing's comments, oldest first.
func (s *CommentService) List(ctx context.Context, listingID string) ([]models.Comment, error) {
	ctx = ensureContext(ctx)

	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("comment: list: %w", err)
	}
	return comments, nil
}
