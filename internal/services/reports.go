package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"fire-news/internal/events"
	"fire-news/internal/metrics"
	"fire-news/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxReasonLength = 2000

// ReportService is the append-only ledger of reader reports.
type ReportService struct {
	store
}

func NewReportService(db *gorm.DB, opts Options) *ReportService {
	return &ReportService{store: newStore(db, opts)}
}

// FileReport appends a report. Every call appends; anonymous readers are
// not deduplicated.
func (s *ReportService) FileReport(ctx context.Context, articleID uuid.UUID, reason string) (*models.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, invalid("reason", "reason is too long")
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	report := &models.Report{ArticleID: articleID, Reason: reason}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockArticle(tx, articleID); err != nil {
			return err
		}
		return tx.Create(report).Error
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("file report", err)
	}

	metrics.Metrics.ReportsTotal.Inc()
	s.publish(events.ReportFiled, articleID)
	return report, nil
}

// OpenReports lists the unresolved reports of an article, newest first.
func (s *ReportService) OpenReports(ctx context.Context, articleID uuid.UUID) ([]models.Report, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return nil, storageErr("load article", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("article_id = ? AND resolved_at IS NULL", articleID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, storageErr("load reports", err)
	}
	return reports, nil
}
