package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"fire-news/internal/events"
	"fire-news/internal/logging"
	"fire-news/internal/metrics"
	"fire-news/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxNotesLength = 5000

// OverrideRequest is one moderator decision
type OverrideRequest struct {
	ArticleID   uuid.UUID
	NewLabel    string
	Confidence  *float64
	Notes       string
	ModeratorID string
}

// OverrideService records moderator corrections.
type OverrideService struct {
	store
}

func NewOverrideService(db *gorm.DB, opts Options) *OverrideService {
	return &OverrideService{store: newStore(db, opts)}
}

// ApplyOverride replaces the active override of an article and resolves
// its open reports in one transaction. Concurrent calls for the same
// article are serialized on the article row; the last to commit wins.
func (s *OverrideService) ApplyOverride(ctx context.Context, req OverrideRequest) (*models.Override, error) {
	label, err := models.ParseLabel(strings.TrimSpace(req.NewLabel))
	if err != nil {
		return nil, invalid("new_label", "must be one of fake, real")
	}
	if c := req.Confidence; c != nil && (math.IsNaN(*c) || *c < 0 || *c > 1) {
		return nil, invalid("confidence", "must be between 0.0 and 1.0")
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, invalid("notes", "notes are too long")
	}
	moderator := strings.TrimSpace(req.ModeratorID)
	if moderator == "" {
		return nil, invalid("moderator_id", "moderator identity is required")
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	var override *models.Override
	var resolved int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockArticle(tx, req.ArticleID); err != nil {
			return err
		}

		// no merge with a previous decision
		if err := tx.Where("article_id = ?", req.ArticleID).Delete(&models.Override{}).Error; err != nil {
			return err
		}

		now := s.now()
		override = &models.Override{
			ArticleID:   req.ArticleID,
			Label:       label,
			Confidence:  req.Confidence,
			Notes:       notes,
			ModeratorID: moderator,
			AppliedAt:   now,
		}
		if err := tx.Create(override).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Report{}).
			Where("article_id = ? AND resolved_at IS NULL", req.ArticleID).
			Updates(map[string]any{
				"resolved_at":             now,
				"resolved_by_override_id": override.ID,
			})
		resolved = result.RowsAffected
		return result.Error
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("apply override", err)
	}

	metrics.Metrics.OverridesTotal.WithLabelValues(string(label)).Inc()
	logging.Logger.Info().
		Str("article_id", req.ArticleID.String()).
		Str("moderator_id", moderator).
		Str("label", string(label)).
		Int64("reports_resolved", resolved).
		Msg("override applied")
	s.publish(events.OverrideApplied, req.ArticleID)
	return override, nil
}

// ActiveOverride returns the override in force for an article, or nil.
func (s *OverrideService) ActiveOverride(ctx context.Context, articleID uuid.UUID) (*models.Override, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var override models.Override
	err := s.db.WithContext(ctx).Where("article_id = ?", articleID).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load override", err)
	}
	return &override, nil
}
