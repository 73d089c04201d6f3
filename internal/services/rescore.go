package services

import (
	"context"
	"errors"

	"fire-news/internal/logging"
	"fire-news/internal/models"
	"fire-news/internal/scoring"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RescoreSummary reports one batch run
type RescoreSummary struct {
	Attempted int `json:"attempted"`
	Scored    int `json:"scored"`
	Failed    int `json:"failed"`
}

// RescoreService obtains scores for articles whose submission could not be
// scored.
type RescoreService struct {
	scorer
}

func NewRescoreService(db *gorm.DB, classifier scoring.Classifier, opts Options) *RescoreService {
	return &RescoreService{scorer: newScorer(newStore(db, opts), classifier, opts.ScoringTimeout)}
}

// Rescore scores an unscored article. An article that already has an
// automated score keeps it; the stored record is returned unchanged.
func (s *RescoreService) Rescore(ctx context.Context, id uuid.UUID) (*models.ScoreRecord, error) {
	article, existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.score(ctx, article)
}

// RescorePending scores up to batch unscored articles, oldest first.
func (s *RescoreService) RescorePending(ctx context.Context, batch int) (RescoreSummary, error) {
	var summary RescoreSummary
	if batch <= 0 {
		batch = 25
	}

	articles, err := s.unscored(ctx, batch)
	if err != nil {
		return summary, err
	}

	for i := range articles {
		if ctx.Err() != nil {
			break
		}
		summary.Attempted++
		if _, err := s.score(ctx, &articles[i]); err != nil {
			summary.Failed++
			continue
		}
		summary.Scored++
	}

	if summary.Attempted > 0 {
		logging.Logger.Info().
			Int("attempted", summary.Attempted).
			Int("scored", summary.Scored).
			Int("failed", summary.Failed).
			Msg("rescore batch finished")
	}
	return summary, ctx.Err()
}

func (s *RescoreService) load(ctx context.Context, id uuid.UUID) (*models.Article, *models.ScoreRecord, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var article models.Article
	err := s.db.WithContext(ctx).Preload("Score").Where("id = ?", id).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, storageErr("load article", err)
	}
	return &article, article.Score, nil
}

func (s *RescoreService) unscored(ctx context.Context, limit int) ([]models.Article, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var articles []models.Article
	err := s.db.WithContext(ctx).
		Joins("LEFT JOIN score_records ON score_records.article_id = articles.id").
		Where("score_records.id IS NULL").
		Order("articles.created_at ASC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, storageErr("list unscored articles", err)
	}
	return articles, nil
}
