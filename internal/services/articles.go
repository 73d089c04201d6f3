package services

import (
	"context"
	"errors"

	"fire-news/internal/logging"
	"fire-news/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultArticleLimit = 20
	MaxArticleLimit     = 100
)

// ArticleView is an article with the score readers should see
type ArticleView struct {
	models.Article
	FireScore *models.EffectiveScore `json:"fire_score"`
}

// ArticleList is one page of articles, newest first
type ArticleList struct {
	Articles []ArticleView `json:"articles"`
	Total    int64         `json:"total"`
	Limit    int           `json:"limit"`
	Page     int           `json:"page"`
}

// ArticleService merges stored scores and overrides on every read.
type ArticleService struct {
	store
}

func NewArticleService(db *gorm.DB, opts Options) *ArticleService {
	return &ArticleService{store: newStore(db, opts)}
}

// GetArticle returns one article with its effective score.
func (s *ArticleService) GetArticle(ctx context.Context, id uuid.UUID) (*ArticleView, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var article models.Article
	err := s.db.WithContext(ctx).
		Preload("Score").
		Preload("Override").
		Where("id = ?", id).
		First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("load article", err)
	}

	view := s.view(article)
	return &view, nil
}

// ListArticles pages through articles. An article whose score is missing
// or unusable is listed with a null fire_score.
func (s *ArticleService) ListArticles(ctx context.Context, page Page) (*ArticleList, error) {
	page = page.normalize(DefaultArticleLimit, MaxArticleLimit)

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Article{}).Count(&total).Error; err != nil {
		return nil, storageErr("count articles", err)
	}

	var articles []models.Article
	err := s.db.WithContext(ctx).
		Preload("Score").
		Preload("Override").
		Order("created_at DESC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.offset()).
		Find(&articles).Error
	if err != nil {
		return nil, storageErr("list articles", err)
	}

	views := make([]ArticleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, s.view(a))
	}

	return &ArticleList{
		Articles: views,
		Total:    total,
		Limit:    page.Limit,
		Page:     page.Page,
	}, nil
}

func (s *ArticleService) view(article models.Article) ArticleView {
	if article.Score != nil && !article.Score.Valid() {
		logging.Logger.Warn().
			Str("article_id", article.ID.String()).
			Int("score", article.Score.Score).
			Msg("stored score out of range, treating as unavailable")
	}
	return ArticleView{
		Article:   article,
		FireScore: models.ResolveEffectiveScore(article.Score, article.Override, s.policy),
	}
}
