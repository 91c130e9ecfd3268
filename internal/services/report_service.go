package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/novaocc/cora/internal/models"
	"github.com/novaocc/cora/internal/push"
	apperrors "github.com/novaocc/cora/pkg/errors"
	"github.com/novaocc/cora/pkg/logger"
	"github.com/novaocc/cora/pkg/metrics"
)

// ReportNotifier is the fan-out trigger the report workflow invokes after a
// report is saved.
type ReportNotifier interface {
	NotifyNewReport(ctx context.Context, title string) (push.FanoutSummary, error)
}

// CreateReportInput defines the attributes required to file a report.
type CreateReportInput struct {
	Title       string
	Description string
	CreatedBy   string
}

// ListReportsInput defines filters for querying reports.
type ListReportsInput struct {
	Limit  int
	Offset int
}

// ReportService manages civic reports and triggers the notification fan-out
// when one is filed.
type ReportService struct {
	db       *gorm.DB
	notifier ReportNotifier
	log      *zap.Logger
}

// NewReportService constructs a ReportService. The notifier may be nil, in
// which case reports are saved without fan-out.
func NewReportService(db *gorm.DB, notifier ReportNotifier) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	return &ReportService{
		db:       db,
		notifier: notifier,
		log:      logger.WithModule("reports"),
	}, nil
}

// Create files a new report for the authenticated user and best-effort
// notifies subscribers. The report's outcome never depends on delivery: a
// failed fan-out is logged and dropped, the saved report is still returned.
func (s *ReportService) Create(ctx context.Context, input CreateReportInput) (*models.Report, error) {
	ctx = ensureContext(ctx)

	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" {
		return nil, apperrors.ErrUnauthorized
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewBadRequest("title and description are required")
	}

	report := models.Report{
		Title:       title,
		Description: description,
		CategoryID:  1,            // default category from seed data
		Location:    "POINT(0 0)", // placeholder until client geolocation lands
		CreatedBy:   createdBy,
	}

	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to create report")
	}

	metrics.ReportsCreated.Inc()

	if s.notifier != nil {
		summary, err := s.notifier.NotifyNewReport(ctx, report.Title)
		if err != nil {
			s.log.Warn("new report fan-out failed",
				zap.String("report_id", report.ID),
				zap.Error(err),
			)
		} else {
			s.log.Info("new report fan-out",
				zap.String("report_id", report.ID),
				zap.Int("attempted", summary.Attempted),
				zap.Int("succeeded", summary.Succeeded),
			)
		}
	}

	return &report, nil
}

// List returns reports ordered by recency.
func (s *ReportService) List(ctx context.Context, input ListReportsInput) ([]models.Report, error) {
	ctx = ensureContext(ctx)

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []models.Report
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("report service: list reports: %w", err)
	}

	return rows, nil
}
