package services

import (
	"context"
	"errors"
	"math"
	"time"

	"fire-news/internal/events"
	"fire-news/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Defaults used when Options leave a timeout unset
const (
	DefaultStorageTimeout = 5 * time.Second
	DefaultScoringTimeout = 10 * time.Second
)

// Publisher receives an event after each committed queue-changing write
type Publisher interface {
	Publish(events.Event)
}

// Options are shared by every service
type Options struct {
	StorageTimeout   time.Duration
	ScoringTimeout   time.Duration
	ScorePolicy      models.ScorePolicy
	ReviewCategories []models.Category
	Publisher        Publisher
	// Now is overridable in tests
	Now func() time.Time
}

// store wraps the gorm handle with the timeout and event plumbing the
// services share.
type store struct {
	db        *gorm.DB
	timeout   time.Duration
	policy    models.ScorePolicy
	publisher Publisher
	now       func() time.Time
}

func newStore(db *gorm.DB, opts Options) store {
	s := store{
		db:        db,
		timeout:   opts.StorageTimeout,
		policy:    opts.ScorePolicy,
		publisher: opts.Publisher,
		now:       opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultStorageTimeout
	}
	if s.policy == "" {
		s.policy = models.PolicyDerive
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// readContext bounds a read by the storage timeout and the caller.
func (s store) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// writeContext detaches a write from caller cancellation so an abandoned
// request still commits or rolls back as a whole.
func (s store) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

func (s store) publish(kind events.Kind, articleID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{Kind: kind, ArticleID: articleID, At: s.now()})
}

// lockArticle loads the article row inside tx, holding a row lock on
// postgres until the transaction ends. sqlite serializes writers itself.
func lockArticle(tx *gorm.DB, id uuid.UUID) (*models.Article, error) {
	var article models.Article
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// Page selects a window of an ordered result. Page numbers start at 1.
type Page struct {
	Limit int
	Page  int
}

func (p Page) normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Page < 1 {
		p.Page = 1
	}
	// bound Page so offset() cannot overflow
	if p.Page-1 > math.MaxInt/p.Limit-1 {
		p.Page = math.MaxInt / p.Limit
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// window returns the [start, end) bounds of p over n items
func (p Page) window(n int) (int, int) {
	start := p.offset()
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
