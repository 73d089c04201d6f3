package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"fire-news/internal/content"
	"fire-news/internal/events"
	"fire-news/internal/logging"
	"fire-news/internal/metrics"
	"fire-news/internal/models"
	"fire-news/internal/scoring"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxHeadlineLength = 500
	maxSourceLength   = 200
	maxAuthorLength   = 200
)

// Submission is a candidate article. PublishedDate accepts RFC3339 or
// YYYY-MM-DD and defaults to the submission time.
type Submission struct {
	Headline      string
	Body          string
	Author        string
	Source        string
	URL           string
	PublishedDate string
}

// SubmissionResult is returned for every accepted submission. FireScore is
// nil when scoring failed.
type SubmissionResult struct {
	ArticleID uuid.UUID              `json:"article_id"`
	FireScore *models.EffectiveScore `json:"fire_score"`
}

// SubmissionService stores new articles and scores them synchronously.
type SubmissionService struct {
	scorer
}

func NewSubmissionService(db *gorm.DB, classifier scoring.Classifier, opts Options) *SubmissionService {
	return &SubmissionService{scorer: newScorer(newStore(db, opts), classifier, opts.ScoringTimeout)}
}

// Submit validates, persists and scores an article. A scoring failure
// still returns the result with the new article id alongside an error
// wrapping ErrScoringUnavailable; the article is never rolled back.
func (s *SubmissionService) Submit(ctx context.Context, sub Submission) (*SubmissionResult, error) {
	article, err := s.buildArticle(sub)
	if err != nil {
		metrics.Metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.createArticle(ctx, article); err != nil {
		metrics.Metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	s.publish(events.ArticleSubmitted, article.ID)

	result := &SubmissionResult{ArticleID: article.ID}

	record, err := s.score(ctx, article)
	if err != nil {
		metrics.Metrics.SubmissionsTotal.WithLabelValues("unscored").Inc()
		logging.Logger.Warn().Err(err).
			Str("article_id", article.ID.String()).
			Str("source", article.Source).
			Msg("article saved without score")
		return result, err
	}

	metrics.Metrics.SubmissionsTotal.WithLabelValues("scored").Inc()
	result.FireScore = models.ResolveEffectiveScore(record, nil, s.policy)
	return result, nil
}

func (s *SubmissionService) createArticle(ctx context.Context, article *models.Article) error {
	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return storageErr("create article", err)
	}
	return nil
}

// buildArticle checks every field before anything is written
func (s *SubmissionService) buildArticle(sub Submission) (*models.Article, error) {
	headline := strings.TrimSpace(sub.Headline)
	body := strings.TrimSpace(sub.Body)
	source := strings.TrimSpace(sub.Source)
	author := strings.TrimSpace(sub.Author)
	link := strings.TrimSpace(sub.URL)

	var errs []error
	if headline == "" {
		errs = append(errs, invalid("headline", "headline or title is required"))
	} else if utf8.RuneCountInString(headline) > maxHeadlineLength {
		errs = append(errs, invalid("headline", "headline is too long"))
	}
	if body == "" {
		errs = append(errs, invalid("body", "body or content is required"))
	}
	if source == "" {
		errs = append(errs, invalid("source", "source is required"))
	} else if utf8.RuneCountInString(source) > maxSourceLength {
		errs = append(errs, invalid("source", "source is too long"))
	}
	if utf8.RuneCountInString(author) > maxAuthorLength {
		errs = append(errs, invalid("author", "author is too long"))
	}
	if link != "" && !validURL(link) {
		errs = append(errs, invalid("url", "url must be an absolute http(s) URL"))
	}

	published, err := parsePublishedDate(sub.PublishedDate)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, joinValidation(errs)
	}

	// submitted value, then HTML metadata, then the submission time
	doc := content.Extract(body)
	if author == "" {
		author = doc.Author
	}
	if published == nil {
		published = doc.PublishedAt
	}
	if published == nil {
		now := s.now()
		published = &now
	}

	return &models.Article{
		Headline:    headline,
		Body:        body,
		Author:      author,
		Source:      source,
		URL:         link,
		PublishedAt: published.UTC(),
		WordCount:   doc.WordCount,
		ReadingTime: doc.ReadingTime,
	}, nil
}

var publishedDateLayouts = []string{time.RFC3339, "2006-01-02"}

func parsePublishedDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range publishedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, invalid("published_date", "expected RFC3339 or YYYY-MM-DD")
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// joinValidation folds every field problem into one error
func joinValidation(errs []error) error {
	var first *ValidationError
	if !errors.As(errs[0], &first) {
		return errs[0]
	}
	if len(errs) == 1 {
		return first
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return &ValidationError{Message: strings.Join(msgs, "; ")}
}
