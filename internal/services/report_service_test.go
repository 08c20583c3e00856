package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgiordano/clasificados/internal/models"
)

func TestReportCreate(t *testing.T) {
	db := openCatalogDB(t)
	service, err := NewReportService(db)
	require.NoError(t, err)
	reporter := seedUser(t, db, "nico", false)

	report, err := service.Create(context.Background(), reporter.ID, CreateReportInput{
		EntityType:  "Listing",
		EntityID:    "some-listing-id",
		Reason:      "spam",
		Description: "publicidad repetida",
		Metadata:    map[string]any{"source": "detail_page"},
	})
	require.NoError(t, err)
	require.Equal(t, models.ReportEntityListing, report.EntityType)
	require.Equal(t, reporter.ID, *report.ReporterID)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(report.Metadata, &meta))
	require.Equal(t, "detail_page", meta["source"])
}

func TestReportAnonymousAndDanglingTarget(t *testing.T) {
	db := openCatalogDB(t)
	service, err := NewReportService(db)
	require.NoError(t, err)

	// Targets are raw identifiers: a report against a deleted listing or
	// user still persists, and the reporter may be absent.
	report, err := service.Create(context.Background(), "", CreateReportInput{
		EntityType: models.ReportEntityUser,
		EntityID:   "long-gone-user",
		Reason:     "estafa",
	})
	require.NoError(t, err)
	require.Nil(t, report.ReporterID)

	reports, err := service.ListByEntity(context.Background(), models.ReportEntityUser, "long-gone-user")
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestReportValidation(t *testing.T) {
	db := openCatalogDB(t)
	service, err := NewReportService(db)
	require.NoError(t, err)

	_, err = service.Create(context.Background(), "", CreateReportInput{
		EntityType: "comment", EntityID: "x", Reason: "spam",
	})
	require.ErrorIs(t, err, ErrInvalidReportEntity)

	_, err = service.Create(context.Background(), "", CreateReportInput{
		EntityType: "listing", EntityID: "x",
	})
	require.ErrorIs(t, err, ErrReportReasonRequired)
}
