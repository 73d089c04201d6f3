package services

import (
	"context"
	"sort"
	"time"

	"fire-news/internal/metrics"
	"fire-news/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultQueueLimit = 50
	MaxQueueLimit     = 200
)

// QueueItem is one row of the moderation worklist. Never stored.
type QueueItem struct {
	ArticleID      uuid.UUID              `json:"article_id"`
	Headline       string                 `json:"headline"`
	Source         string                 `json:"source"`
	FireScore      *models.EffectiveScore `json:"fire_score"`
	Category       *models.Category       `json:"category"`
	OpenReports    int                    `json:"open_reports"`
	LastReportedAt *time.Time             `json:"last_reported_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// QueuePage is one window of the ordered queue
type QueuePage struct {
	Queue []QueueItem `json:"queue"`
	Total int         `json:"total"`
	Limit int         `json:"limit"`
	Page  int         `json:"page"`
}

// QueueService builds the moderation queue on demand from stored state.
type QueueService struct {
	store
	reviewCategories []models.Category
}

func NewQueueService(db *gorm.DB, opts Options) *QueueService {
	categories := opts.ReviewCategories
	if categories == nil {
		categories = []models.Category{models.CategoryMisleading}
	}
	return &QueueService{store: newStore(db, opts), reviewCategories: categories}
}

// BuildQueue returns every article without an override that has open
// reports or an effective category in the review band. Items with more
// open reports come first, then the most recently reported, then the
// newest article, then the lowest id.
func (s *QueueService) BuildQueue(ctx context.Context, page Page) (*QueuePage, error) {
	page = page.normalize(DefaultQueueLimit, MaxQueueLimit)

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	items, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	metrics.Metrics.QueueSize.Set(float64(len(items)))

	start, end := page.window(len(items))
	return &QueuePage{
		Queue: items[start:end],
		Total: len(items),
		Limit: page.Limit,
		Page:  page.Page,
	}, nil
}

func (s *QueueService) items(ctx context.Context) ([]QueueItem, error) {
	ids, err := s.candidateIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []QueueItem{}, nil
	}

	var articles []models.Article
	err = s.db.WithContext(ctx).
		Preload("Score").
		Preload("Override").
		Where("id IN ?", ids).
		Find(&articles).Error
	if err != nil {
		return nil, storageErr("load queue articles", err)
	}

	var reports []models.Report
	err = s.db.WithContext(ctx).
		Where("article_id IN ? AND resolved_at IS NULL", ids).
		Find(&reports).Error
	if err != nil {
		return nil, storageErr("load open reports", err)
	}

	type tally struct {
		open int
		last time.Time
	}
	tallies := make(map[uuid.UUID]*tally, len(ids))
	for _, r := range reports {
		t, ok := tallies[r.ArticleID]
		if !ok {
			t = &tally{}
			tallies[r.ArticleID] = t
		}
		t.open++
		if r.CreatedAt.After(t.last) {
			t.last = r.CreatedAt
		}
	}

	items := make([]QueueItem, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		// an override committed after the candidate query still excludes
		if a.Override != nil {
			continue
		}

		item := QueueItem{
			ArticleID: a.ID,
			Headline:  a.Headline,
			Source:    a.Source,
			FireScore: models.ResolveEffectiveScore(a.Score, nil, s.policy),
			CreatedAt: a.CreatedAt,
		}
		if item.FireScore != nil {
			category := item.FireScore.Category
			item.Category = &category
		}
		if t, ok := tallies[a.ID]; ok {
			item.OpenReports = t.open
			last := t.last
			item.LastReportedAt = &last
		}

		if item.OpenReports == 0 && !s.inReviewBand(item.Category) {
			continue
		}
		items = append(items, item)
	}

	sortQueue(items)
	return items, nil
}

// candidateIDs narrows the articles in SQL. The final membership test runs
// in Go against the recomputed effective score.
func (s *QueueService) candidateIDs(ctx context.Context) ([]uuid.UUID, error) {
	openReports := sq.Select("reports.article_id").
		From("reports").
		Where(sq.Eq{"reports.resolved_at": nil})
	reportSQL, reportArgs, err := openReports.ToSql()
	if err != nil {
		return nil, storageErr("build queue query", err)
	}

	bands := make([]string, 0, len(s.reviewCategories))
	for _, c := range s.reviewCategories {
		bands = append(bands, string(c))
	}

	query, args, err := sq.Select("articles.id").
		From("articles").
		LeftJoin("score_records ON score_records.article_id = articles.id").
		LeftJoin("overrides ON overrides.article_id = articles.id").
		Where(sq.Eq{"overrides.id": nil}).
		Where(sq.Or{
			sq.Eq{"score_records.category": bands},
			sq.Expr("articles.id IN ("+reportSQL+")", reportArgs...),
		}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, storageErr("build queue query", err)
	}

	rows, err := s.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, storageErr("query queue candidates", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan queue candidate", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query queue candidates", err)
	}
	return ids, nil
}

func (s *QueueService) inReviewBand(category *models.Category) bool {
	if category == nil {
		return false
	}
	for _, c := range s.reviewCategories {
		if c == *category {
			return true
		}
	}
	return false
}

func sortQueue(items []QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.OpenReports != b.OpenReports {
			return a.OpenReports > b.OpenReports
		}
		la, lb := lastReported(a), lastReported(b)
		if !la.Equal(lb) {
			return la.After(lb)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ArticleID.String() < b.ArticleID.String()
	})
}

func lastReported(item QueueItem) time.Time {
	if item.LastReportedAt == nil {
		return time.Time{}
	}
	return *item.LastReportedAt
}
