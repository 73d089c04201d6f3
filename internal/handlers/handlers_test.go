package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fire-news/docs"
	"fire-news/internal/auth"
	"fire-news/internal/database"
	"fire-news/internal/events"
	"fire-news/internal/models"
	"fire-news/internal/scoring"
	"fire-news/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret"

// stubClassifier answers every request with the same prediction or error
type stubClassifier struct {
	prediction scoring.Prediction
	err        error
}

func (s stubClassifier) Score(ctx context.Context, input scoring.ScoreInput) (scoring.Prediction, error) {
	return s.prediction, s.err
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newTestServer(t *testing.T, classifier scoring.Classifier) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hub := events.NewHub()
	t.Cleanup(hub.Close)
	opts := services.Options{Publisher: hub}

	verifier := auth.NewJWTVerifier(testSecret, "fire-news")
	token, err := verifier.Issue("mod-7", time.Hour)
	require.NoError(t, err)

	router := SetupRouter(RouterDeps{
		DB:          db,
		Articles:    services.NewArticleService(db, opts),
		Reports:     services.NewReportService(db, opts),
		Submissions: services.NewSubmissionService(db, classifier, opts),
		Queue:       services.NewQueueService(db, opts),
		Overrides:   services.NewOverrideService(db, opts),
		Rescore:     services.NewRescoreService(db, classifier, opts),
		Hub:         hub,
		Tokens:      verifier,
		Docs:        docs.FS,
		Version:     "test",
	})

	return &testServer{router: router, db: db, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func misleading() scoring.Prediction {
	return scoring.Prediction{
		Score:        22,
		Label:        models.LabelFake,
		Confidence:   0.81,
		Category:     models.CategoryMisleading,
		ModelVersion: "v-test",
	}
}

var validSubmission = map[string]any{
	"headline": "Council approves budget",
	"body":     "The council approved the budget on Tuesday.",
	"author":   "A. Reporter",
	"source":   "Daily Ledger",
}

func submit(t *testing.T, s *testServer) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/submit", validSubmission, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["article_id"].(string)
}

func TestSubmitAndRead(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	w := s.do(t, http.MethodPost, "/api/v1/submit", validSubmission, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	id := body["article_id"].(string)
	score := body["fire_score"].(map[string]any)
	assert.EqualValues(t, 22, score["score"])
	assert.Equal(t, "Likely misleading", score["category"])

	w = s.do(t, http.MethodGet, "/api/v1/articles/"+id, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	article := decode(t, w)
	assert.Equal(t, "Council approves budget", article["headline"])
	assert.Equal(t, "automated", article["fire_score"].(map[string]any)["source"])

	w = s.do(t, http.MethodGet, "/api/v1/articles?limit=5", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.EqualValues(t, 1, list["total"])
	assert.EqualValues(t, 5, list["limit"])
}

func TestSubmitAcceptsAliases(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	w := s.do(t, http.MethodPost, "/api/v1/partner/submit", map[string]any{
		"title":       "Aliased headline",
		"content":     "Aliased body text.",
		"source":      "Wire",
		"publishedAt": "2024-03-02",
	}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var article models.Article
	require.NoError(t, s.db.First(&article).Error)
	assert.Equal(t, "Aliased headline", article.Headline)
	assert.Equal(t, "Aliased body text.", article.Body)
	assert.Equal(t, 2024, article.PublishedAt.Year())
}

func TestSubmitErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		s := newTestServer(t, stubClassifier{prediction: misleading()})
		w := s.do(t, http.MethodPost, "/api/v1/submit", map[string]any{"body": "text"}, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Invalid request", body["error"])
		assert.Contains(t, body["details"], "headline")

		var count int64
		s.db.Model(&models.Article{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("malformed json", func(t *testing.T) {
		s := newTestServer(t, stubClassifier{prediction: misleading()})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/submit", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("scoring unavailable", func(t *testing.T) {
		s := newTestServer(t, stubClassifier{err: errors.New("connection refused")})
		w := s.do(t, http.MethodPost, "/api/v1/submit", validSubmission, false)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		body := decode(t, w)
		assert.NotEmpty(t, body["article_id"])
		assert.Nil(t, body["fire_score"])

		w = s.do(t, http.MethodGet, "/api/v1/articles/"+body["article_id"].(string), nil, false)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode(t, w)["fire_score"])
	})
}

func TestGetArticleNotFound(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	for _, path := range []string{
		"/api/v1/articles/not-a-uuid",
		"/api/v1/articles/6f1c1a52-8d0c-4a43-9d2c-1f7a2f3b9e01",
	} {
		w := s.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestFileReport(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})
	id := submit(t, s)

	w := s.do(t, http.MethodPost, "/api/v1/articles/"+id+"/report", map[string]any{"reason": "   "}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/articles/6f1c1a52-8d0c-4a43-9d2c-1f7a2f3b9e01/report", map[string]any{"reason": "wrong"}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/articles/"+id+"/report", map[string]any{"reason": "Quote is fabricated"}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	report := decode(t, w)
	assert.Equal(t, id, report["article_id"])
	assert.Equal(t, "Quote is fabricated", report["reason"])
}

func TestModeratorRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	w := s.do(t, http.MethodGet, "/api/v1/moderator/queue", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/moderator/queue", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueueAndOverride(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})
	id := submit(t, s)

	w := s.do(t, http.MethodGet, "/api/v1/moderator/queue", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	queue := decode(t, w)
	assert.EqualValues(t, 1, queue["total"])
	items := queue["queue"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].(map[string]any)["article_id"])

	w = s.do(t, http.MethodPost, "/api/v1/moderator/override", map[string]any{
		"article_id": id,
		"new_label":  "real",
		"notes":      "Confirmed with the council clerk",
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	override := decode(t, w)["override"].(map[string]any)
	assert.Equal(t, "real", override["new_label"])
	assert.Equal(t, "mod-7", override["moderator_id"])

	w = s.do(t, http.MethodGet, "/api/v1/articles/"+id, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	score := decode(t, w)["fire_score"].(map[string]any)
	assert.Equal(t, "override", score["source"])
	assert.Equal(t, "real", score["label"])
	assert.Equal(t, "No risk detected", score["category"])

	w = s.do(t, http.MethodGet, "/api/v1/moderator/queue", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])
}

func TestOverrideValidation(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})
	id := submit(t, s)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"bad article id", map[string]any{"article_id": "nope", "new_label": "fake"}, http.StatusBadRequest},
		{"unknown label", map[string]any{"article_id": id, "new_label": "satire"}, http.StatusBadRequest},
		{"confidence out of range", map[string]any{"article_id": id, "new_label": "fake", "confidence": 1.5}, http.StatusBadRequest},
		{"missing article", map[string]any{"article_id": "6f1c1a52-8d0c-4a43-9d2c-1f7a2f3b9e01", "new_label": "fake"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/moderator/override", tt.body, true)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	var count int64
	s.db.Model(&models.Override{}).Count(&count)
	assert.Zero(t, count)
}

func TestRescoreEndpoint(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})
	article := &models.Article{Headline: "Unscored", Body: "Body", Source: "Wire", PublishedAt: time.Now()}
	require.NoError(t, s.db.Create(article).Error)

	w := s.do(t, http.MethodPost, "/api/v1/moderator/articles/"+article.ID.String()+"/rescore", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	score := decode(t, w)["fire_score"].(map[string]any)
	assert.EqualValues(t, 22, score["score"])
}

func TestDocs(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	w := s.do(t, http.MethodGet, "/docs/MODEL_CARD", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>Model Card - FIRE News</title>")
	assert.Contains(t, w.Body.String(), "Likely misleading")

	w = s.do(t, http.MethodGet, "/docs/api", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/docs/SECRETS", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	w := s.do(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "up", checks["database"].(map[string]any)["status"])
	assert.Equal(t, "disabled", checks["rescore_worker"].(map[string]any)["status"])
	assert.EqualValues(t, 0, body["stream_subscribers"])
}

type fakeWorker struct{}

func (fakeWorker) GetStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "schedule": "@every 10m"}
}

func TestHealthReportsWorkerAndSubscribers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hub := events.NewHub()
	defer hub.Close()
	_, release := hub.Subscribe(1)
	defer release()

	router := gin.New()
	router.GET("/health", NewHealthHandler(db, hub, fakeWorker{}, "test").Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	worker := body["checks"].(map[string]any)["rescore_worker"].(map[string]any)
	assert.Equal(t, true, worker["running"])
	assert.Equal(t, "@every 10m", worker["schedule"])
	assert.EqualValues(t, 1, body["stream_subscribers"])
}

func TestGetReports(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})
	id := submit(t, s)

	w := s.do(t, http.MethodGet, "/api/v1/moderator/articles/"+id+"/reports", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/moderator/articles/6f1c1a52-8d0c-4a43-9d2c-1f7a2f3b9e01/reports", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, reason := range []string{"Quote is fabricated", "Photo is from 2019"} {
		w = s.do(t, http.MethodPost, "/api/v1/articles/"+id+"/report", map[string]any{"reason": reason}, false)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/v1/moderator/articles/"+id+"/reports", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Len(t, body["reports"], 2)
	assert.Nil(t, body["override"])

	w = s.do(t, http.MethodPost, "/api/v1/moderator/override", map[string]any{
		"article_id": id,
		"new_label":  "fake",
	}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/moderator/articles/"+id+"/reports", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Empty(t, body["reports"])
	override := body["override"].(map[string]any)
	assert.Equal(t, "fake", override["new_label"])
	assert.Equal(t, "mod-7", override["moderator_id"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/submit", nil)
	req.Header.Set("Origin", "https://partner.example")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowList(t *testing.T) {
	router := gin.New()
	router.Use(corsMiddleware([]string{"https://console.example"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://console.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://console.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestFileReportStorageFailure(t *testing.T) {
	s := newTestServer(t, stubClassifier{prediction: misleading()})
	id := submit(t, s)

	err := s.db.Callback().Create().Before("gorm:create").Register("test:fail_reports", func(tx *gorm.DB) {
		if tx.Statement.Table == "reports" {
			tx.AddError(errors.New("disk I/O error"))
		}
	})
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/v1/articles/"+id+"/report", map[string]any{"reason": "Quote is fabricated"}, false)
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Failed to file report", body["error"])
	assert.Equal(t, true, body["retryable"])
	assert.NotContains(t, w.Body.String(), "disk I/O error")

	var count int64
	require.NoError(t, s.db.Model(&models.Report{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		retryable bool
	}{
		{"validation", &services.ValidationError{Field: "reason", Message: "reason is required"}, http.StatusBadRequest, false},
		{"not found", fmt.Errorf("load: %w", services.ErrNotFound), http.StatusNotFound, false},
		{"scoring", fmt.Errorf("%w: timeout", services.ErrScoringUnavailable), http.StatusServiceUnavailable, true},
		{"storage", fmt.Errorf("file report: %w: locked", services.ErrStorage), http.StatusServiceUnavailable, true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, false},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err, "do the thing")

			assert.Equal(t, tt.code, w.Code)
			body := decode(t, w)
			assert.NotEmpty(t, body["error"])
			if tt.retryable {
				assert.Equal(t, true, body["retryable"])
			} else {
				assert.Nil(t, body["retryable"])
			}
		})
	}
}
