package services

import (
	"context"
	"testing"
	"time"

	"fire-news/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetArticleNotFound(t *testing.T) {
	service := NewArticleService(setupTestDB(t), Options{})

	_, err := service.GetArticle(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListArticlesIsolatesBadScores(t *testing.T) {
	db := setupTestDB(t)
	service := NewArticleService(db, Options{})

	scored := createArticle(t, db, "scored", baseTime)
	createScore(t, db, scored.ID, 60, models.LabelReal)

	broken := createArticle(t, db, "broken score", baseTime.Add(time.Minute))
	require.NoError(t, db.Create(&models.ScoreRecord{
		ArticleID:  broken.ID,
		Score:      250,
		Label:      models.LabelReal,
		Confidence: 0.5,
	}).Error)

	unscored := createArticle(t, db, "unscored", baseTime.Add(2*time.Minute))

	list, err := service.ListArticles(context.Background(), Page{})
	require.NoError(t, err)
	require.Len(t, list.Articles, 3)
	assert.Equal(t, int64(3), list.Total)

	byID := map[uuid.UUID]ArticleView{}
	for _, a := range list.Articles {
		byID[a.ID] = a
	}
	require.NotNil(t, byID[scored.ID].FireScore)
	assert.Equal(t, models.CategoryNoRisk, byID[scored.ID].FireScore.Category)
	assert.Nil(t, byID[broken.ID].FireScore)
	assert.Nil(t, byID[unscored.ID].FireScore)

	// newest first
	assert.Equal(t, unscored.ID, list.Articles[0].ID)
}

func TestOverrideVisibleInEveryRead(t *testing.T) {
	db := setupTestDB(t)
	articles := NewArticleService(db, Options{})
	overrides := NewOverrideService(db, Options{})

	article := createArticle(t, db, "A", baseTime)
	createScore(t, db, article.ID, 20, models.LabelFake)

	_, err := overrides.ApplyOverride(context.Background(), OverrideRequest{
		ArticleID: article.ID, NewLabel: "real", Confidence: floatPtr(0.5), ModeratorID: "mod",
	})
	require.NoError(t, err)

	// list before get, then get, then list again
	for i := 0; i < 2; i++ {
		list, err := articles.ListArticles(context.Background(), Page{})
		require.NoError(t, err)
		require.Len(t, list.Articles, 1)
		assert.Equal(t, models.CategoryNoRisk, list.Articles[0].FireScore.Category)
		assert.Equal(t, models.LabelReal, list.Articles[0].FireScore.Label)

		view, err := articles.GetArticle(context.Background(), article.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CategoryNoRisk, view.FireScore.Category)
		assert.Equal(t, 0.5, view.FireScore.Confidence)
		require.NotNil(t, view.FireScore.Score)
		assert.Equal(t, 75, *view.FireScore.Score)
	}
}

func TestRetainPolicyKeepsAutomatedNumber(t *testing.T) {
	db := setupTestDB(t)
	opts := Options{ScorePolicy: models.PolicyRetain}
	articles := NewArticleService(db, opts)
	overrides := NewOverrideService(db, opts)

	article := createArticle(t, db, "A", baseTime)
	createScore(t, db, article.ID, 20, models.LabelFake)

	_, err := overrides.ApplyOverride(context.Background(), OverrideRequest{
		ArticleID: article.ID, NewLabel: "real", ModeratorID: "mod",
	})
	require.NoError(t, err)

	view, err := articles.GetArticle(context.Background(), article.ID)
	require.NoError(t, err)
	require.NotNil(t, view.FireScore.Score)
	assert.Equal(t, 20, *view.FireScore.Score)
	assert.Equal(t, models.CategoryNoRisk, view.FireScore.Category)
	assert.Equal(t, models.SourceOverride, view.FireScore.Source)
}

func TestListArticlesPagination(t *testing.T) {
	db := setupTestDB(t)
	service := NewArticleService(db, Options{})
	for i := 0; i < 5; i++ {
		createArticle(t, db, "a", baseTime.Add(time.Duration(i)*time.Hour))
	}

	list, err := service.ListArticles(context.Background(), Page{Limit: 2, Page: 3})
	require.NoError(t, err)
	assert.Len(t, list.Articles, 1)
	assert.Equal(t, int64(5), list.Total)
	assert.Equal(t, 3, list.Page)

	list, err = service.ListArticles(context.Background(), Page{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxArticleLimit, list.Limit)

	list, err = service.ListArticles(context.Background(), Page{Limit: 2, Page: 1<<62 + 1})
	require.NoError(t, err)
	assert.Empty(t, list.Articles)
	assert.Equal(t, int64(5), list.Total)
}
