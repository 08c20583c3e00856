package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/models"
)

var (
	// ErrInvalidReportEntity signals an unknown report target kind.
	ErrInvalidReportEntity = errors.New("report: entity type must be listing or user")
	// ErrReportReasonRequired signals a report without a reason.
	ErrReportReasonRequired = errors.New("report: reason is required")
)

// CreateReportInput describes a complaint about a listing or user. The
// target is referenced by raw id without referential integrity, so reports
// outlive the entities they point at.
type CreateReportInput struct {
	EntityType  string
	EntityID    string
	Reason      string
	Description string
	Metadata    map[string]any
}

// ReportService records abuse reports.
type ReportService struct {
	db *gorm.DB
}

// NewReportService constructs the service.
func NewReportService(db *gorm.DB) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	return &ReportService{db: db}, nil
}

// Create stores a report. reporterID may be empty for anonymous reports.
func (s *ReportService) Create(ctx context.Context, reporterID string, input CreateReportInput) (*models.Report, error) {
	ctx = ensureContext(ctx)

	entityType := strings.ToLower(strings.TrimSpace(input.EntityType))
	if entityType != models.ReportEntityListing && entityType != models.ReportEntityUser {
		return nil, ErrInvalidReportEntity
	}
	entityID := strings.TrimSpace(input.EntityID)
	if entityID == "" {
		return nil, errors.New("report: entity id is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, ErrReportReasonRequired
	}

	report := models.Report{
		Reason:      reason,
		Description: strings.TrimSpace(input.Description),
		EntityType:  entityType,
		EntityID:    entityID,
	}
	if reporterID != "" {
		report.ReporterID = &reporterID
	}
	if len(input.Metadata) > 0 {
		payload, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("report: encode metadata: %w", err)
		}
		report.Metadata = datatypes.JSON(payload)
	}

	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("report: create: %w", err)
	}
	return &report, nil
}

// ListByEntity returns reports filed against one entity, newest first.
func (s *ReportService) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.Report, error) {
	ctx = ensureContext(ctx)

	var reports []models.Report
	if err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	return reports, nil
}
