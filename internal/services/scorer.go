package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fire-news/internal/content"
	"fire-news/internal/events"
	"fire-news/internal/logging"
	"fire-news/internal/metrics"
	"fire-news/internal/models"
	"fire-news/internal/scoring"

	"gorm.io/gorm/clause"
)

// scorer asks the classifier for a score and stores the first answer for
// an article. Later answers for the same article are discarded.
type scorer struct {
	store
	classifier scoring.Classifier
	timeout    time.Duration
}

func newScorer(s store, classifier scoring.Classifier, timeout time.Duration) scorer {
	if timeout <= 0 {
		timeout = DefaultScoringTimeout
	}
	return scorer{store: s, classifier: classifier, timeout: timeout}
}

func (s scorer) score(ctx context.Context, article *models.Article) (*models.ScoreRecord, error) {
	if s.classifier == nil {
		return nil, fmt.Errorf("%w: no classifier configured", ErrScoringUnavailable)
	}

	input := scoring.ScoreInput{
		ArticleID: article.ID.String(),
		Title:     article.Headline,
		Content:   content.Extract(article.Body).Text,
		Source:    article.Source,
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	prediction, err := s.classifier.Score(scoreCtx, input)
	cancel()
	metrics.Metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		result := "error"
		if errors.Is(err, scoring.ErrInvalidPrediction) {
			result = "invalid"
		}
		metrics.Metrics.ScoringRequests.WithLabelValues(result).Inc()
		logging.Logger.Warn().Err(err).
			Str("article_id", article.ID.String()).
			Dur("duration_ms", time.Since(start)).
			Msg("classifier call failed")
		return nil, fmt.Errorf("%w: %w", ErrScoringUnavailable, err)
	}
	metrics.Metrics.ScoringRequests.WithLabelValues("ok").Inc()

	record, err := s.saveScore(ctx, article, prediction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoringUnavailable, err)
	}
	return record, nil
}

func (s scorer) saveScore(ctx context.Context, article *models.Article, prediction scoring.Prediction) (*models.ScoreRecord, error) {
	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	record := &models.ScoreRecord{
		ArticleID:    article.ID,
		Score:        prediction.Score,
		Label:        prediction.Label,
		Confidence:   prediction.Confidence,
		ModelVersion: prediction.ModelVersion,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "article_id"}}, DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return nil, storageErr("save score", result.Error)
	}

	if result.RowsAffected == 0 {
		// someone else scored the article first; that record stands
		var existing models.ScoreRecord
		if err := s.db.WithContext(ctx).Where("article_id = ?", article.ID).First(&existing).Error; err != nil {
			return nil, storageErr("load score", err)
		}
		return &existing, nil
	}

	s.publish(events.ArticleScored, article.ID)
	return record, nil
}
