package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
)

// ErrCategoryNotFound signals an unknown category slug or id.
var ErrCategoryNotFound = errors.New("category: not found")

// CategoryService exposes the listing category catalog.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs the service.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	ctx = ensureContext(ctx)
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("category: list: %w", err)
	}
	return categories, nil
}

// GetBySlug resolves a category by its URL slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	ctx = ensureContext(ctx)
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("category: get by slug: %w", err)
	}
	return &category, nil
}
