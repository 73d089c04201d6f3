package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fire-news/internal/database"
	"fire-news/internal/events"
	"fire-news/internal/models"
	"fire-news/internal/scoring"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, models.AutoMigrate(db), "failed to migrate test database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// MockClassifier is a mock implementation of scoring.Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Score(ctx context.Context, input scoring.ScoreInput) (scoring.Prediction, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(scoring.Prediction), args.Error(1)
}

func prediction(score int, label models.Label, confidence float64) scoring.Prediction {
	return scoring.Prediction{
		Score:        score,
		Label:        label,
		Confidence:   confidence,
		Category:     models.CategoryForScore(score),
		ModelVersion: "test",
	}
}

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// createArticle inserts an article directly with a fixed creation time
func createArticle(t *testing.T, db *gorm.DB, headline string, createdAt time.Time) *models.Article {
	t.Helper()
	a := &models.Article{
		Headline:    headline,
		Body:        "body of " + headline,
		Source:      "Reuters",
		PublishedAt: createdAt,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func createScore(t *testing.T, db *gorm.DB, articleID uuid.UUID, score int, label models.Label) {
	t.Helper()
	require.NoError(t, db.Create(&models.ScoreRecord{
		ArticleID:  articleID,
		Score:      score,
		Label:      label,
		Confidence: 0.8,
	}).Error)
}

func createReport(t *testing.T, db *gorm.DB, articleID uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Report{
		ArticleID: articleID,
		Reason:    "wrong score",
		CreatedAt: at,
	}).Error)
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

var errDiskFull = errors.New("disk I/O error")

// failCreates makes every insert into table fail, as a full disk would
func failCreates(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(errDiskFull)
		}
	})
	require.NoError(t, err)
}
