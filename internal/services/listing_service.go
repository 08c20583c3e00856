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
	"github.com/mgiordano/clasificados/pkg/logger"
	"github.com/mgiordano/clasificados/pkg/metrics"
)

const (
	defaultListingPageSize = 9
	maxListingPageSize     = 50
)

var (
	// ErrListingNotFound signals the listing does not exist or is inactive.
	ErrListingNotFound = errors.New("listing: not found")
	// ErrNotListingOwner signals the caller does not own the listing.
	ErrNotListingOwner = errors.New("listing: not the owner")
	// ErrPhoneUnverified signals publishing requires a verified phone.
	ErrPhoneUnverified = errors.New("listing: verified phone required to publish")
	// ErrInvalidCondition signals an unknown listing condition value.
	ErrInvalidCondition = errors.New("listing: invalid condition")
)

// CreateListingInput carries the fields of a new listing.
type CreateListingInput struct {
	CategoryID  string
	Title       string
	Description string
	Price       float64
	Condition   string
	Location    string
	Image       string
}

// UpdateListingInput carries optional changes; nil fields are left untouched.
type UpdateListingInput struct {
	CategoryID  *string
	Title       *string
	Description *string
	Price       *float64
	Condition   *string
	Location    *string
	Image       *string
	Active      *bool
}

// ListingFilter narrows and orders the public listing feed.
type ListingFilter struct {
	CategorySlug string
	Location     string
	Query        string
	// Sort is one of price_asc, price_desc or newest (default).
	Sort string
	// Window restricts results to listings published within 24h, 7d or 30d.
	Window   string
	Page     int
	PageSize int
}

// ListingService manages the classified ads catalog.
type ListingService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewListingService constructs the service.
func NewListingService(db *gorm.DB) (*ListingService, error) {
	if db == nil {
		return nil, errors.New("listing service: db is required")
	}
	return &ListingService{db: db, log: logger.WithModule("listings")}, nil
}

// List returns active listings matching the filter plus the total match
// count for pagination.
func (s *ListingService) List(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Listing{}).Where("active = ?", true)

	if slug := strings.TrimSpace(filter.CategorySlug); slug != "" {
		var category models.Category
		if err := s.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrCategoryNotFound
			}
			return nil, 0, fmt.Errorf("listing: resolve category: %w", err)
		}
		query = query.Where("category_id = ?", category.ID)
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		query = query.Where("location = ?", location)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if window := windowDuration(filter.Window); window > 0 {
		query = query.Where("published_at >= ?", time.Now().Add(-window))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("listing: count: %w", err)
	}

	switch filter.Sort {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	default:
		query = query.Order("published_at DESC")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultListingPageSize
	}
	if pageSize > maxListingPageSize {
		pageSize = maxListingPageSize
	}

	var listings []models.Listing
	if err := query.
		Preload("Category").
		Preload("User").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("listing: list: %w", err)
	}
	return listings, total, nil
}

// Locations returns the distinct locations of active listings, for the
// location filter dropdown.
func (s *ListingService) Locations(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)
	var locations []string
	if err := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("active = ? AND location <> ''", true).
		Distinct("location").
		Order("location ASC").
		Pluck("location", &locations).Error; err != nil {
		return nil, fmt.Errorf("listing: locations: %w", err)
	}
	return locations, nil
}

// Get returns an active listing by id.
func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	ctx = ensureContext(ctx)
	var listing models.Listing
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("User").
		First(&listing, "id = ? AND active = ?", id, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("listing: get: %w", err)
	}
	return &listing, nil
}

// ListByOwner returns all of a user's listings, newest first, including
// inactive ones.
func (s *ListingService) ListByOwner(ctx context.Context, userID string) ([]models.Listing, error) {
	ctx = ensureContext(ctx)
	var listings []models.Listing
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("published_at DESC").
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("listing: list by owner: %w", err)
	}
	return listings, nil
}

// Create publishes a new listing. Publishing requires the owner's profile to
// carry a verified, non-empty phone number.
func (s *ListingService) Create(ctx context.Context, userID string, input CreateListingInput) (*models.Listing, error) {
	ctx = ensureContext(ctx)

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhoneUnverified
		}
		return nil, fmt.Errorf("listing: load profile: %w", err)
	}
	if !profile.PhoneVerified || strings.TrimSpace(profile.Phone) == "" {
		return nil, ErrPhoneUnverified
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Description) == "" {
		return nil, errors.New("listing: title and description are required")
	}
	if input.Price < 0 {
		return nil, errors.New("listing: price must not be negative")
	}
	condition, err := normalizeCondition(input.Condition)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", input.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("listing: resolve category: %w", err)
	}

	listing := models.Listing{
		UserID:      userID,
		CategoryID:  category.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Condition:   condition,
		Location:    strings.TrimSpace(input.Location),
		Image:       strings.TrimSpace(input.Image),
		Active:      true,
	}
	if err := s.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return nil, fmt.Errorf("listing: create: %w", err)
	}

	metrics.ListingsPublished.Inc()
	s.log.Info("listing published",
		zap.String("listing_id", listing.ID),
		zap.String("user_id", userID))
	return &listing, nil
}

// Update applies changes to a listing owned by userID.
func (s *ListingService) Update(ctx context.Context, userID, id string, input UpdateListingInput) (*models.Listing, error) {
	ctx = ensureContext(ctx)

	listing, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.CategoryID != nil {
		var category models.Category
		if err := s.db.WithContext(ctx).First(&category, "id = ?", *input.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("listing: resolve category: %w", err)
		}
		updates["category_id"] = category.ID
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.New("listing: title must not be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, errors.New("listing: price must not be negative")
		}
		updates["price"] = *input.Price
	}
	if input.Condition != nil {
		condition, err := normalizeCondition(*input.Condition)
		if err != nil {
			return nil, err
		}
		updates["condition"] = condition
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Image != nil {
		updates["image"] = strings.TrimSpace(*input.Image)
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(listing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("listing: update: %w", err)
		}
	}

	var updated models.Listing
	if err := s.db.WithContext(ctx).
		Preload("Category").
		First(&updated, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("listing: reload: %w", err)
	}
	return &updated, nil
}

// Delete removes a listing owned by userID.
func (s *ListingService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	listing, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(listing).Error; err != nil {
		return fmt.Errorf("listing: delete: %w", err)
	}
	return nil
}

func (s *ListingService) loadOwned(ctx context.Context, userID, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("listing: load: %w", err)
	}
	if listing.UserID != userID {
		return nil, ErrNotListingOwner
	}
	return &listing, nil
}

func normalizeCondition(condition string) (string, error) {
	condition = strings.ToLower(strings.TrimSpace(condition))
	switch condition {
	case "":
		return models.ConditionUsed, nil
	case models.ConditionNew, models.ConditionUsed, models.ConditionRefurbished:
		return condition, nil
	default:
		return "", ErrInvalidCondition
	}
}

func windowDuration(window string) time.Duration {
	switch window {
	case "24h":
		return 24 * time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}
