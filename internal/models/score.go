package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Label is the binary verdict attached to a FIRE score
type Label string

const (
	LabelFake Label = "fake"
	LabelReal Label = "real"
)

// ParseLabel validates a label coming from a request or a classifier
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelFake, LabelReal:
		return Label(s), nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// Category is the risk band shown next to a score
type Category string

const (
	CategoryMisleading Category = "Likely misleading"
	CategoryUnverified Category = "Unverified"
	CategoryNoRisk     Category = "No risk detected"
)

// Band boundaries. Every reader and writer goes through CategoryForScore.
const (
	MisleadingBelow = 35
	UnverifiedBelow = 50

	MinScore = 0
	MaxScore = 100
)

// AllCategories returns the categories from riskiest to safest.
func AllCategories() []Category {
	return []Category{CategoryMisleading, CategoryUnverified, CategoryNoRisk}
}

// ParseCategory validates a category name, e.g. from configuration
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// CategoryForScore bands a 0-100 score
func CategoryForScore(score int) Category {
	switch {
	case score < MisleadingBelow:
		return CategoryMisleading
	case score < UnverifiedBelow:
		return CategoryUnverified
	default:
		return CategoryNoRisk
	}
}

// CategoryForLabel is the band a moderator verdict implies
func CategoryForLabel(label Label) Category {
	if label == LabelReal {
		return CategoryNoRisk
	}
	return CategoryMisleading
}

// LabelForScore is used when the classifier reports a score without a label
func LabelForScore(score int) Label {
	if score >= UnverifiedBelow {
		return LabelReal
	}
	return LabelFake
}

// ScoreRecord is the automated classifier output for one article.
// It is written once and never updated.
type ScoreRecord struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID    uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex"`
	Score        int       `json:"score" db:"score" gorm:"not null"`
	Label        Label     `json:"label" db:"label" gorm:"type:varchar(8);not null"`
	Confidence   float64   `json:"confidence" db:"confidence" gorm:"not null"`
	Category     Category  `json:"category" db:"category" gorm:"type:varchar(32);not null;index"`
	ModelVersion string    `json:"model_version" db:"model_version"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the ScoreRecord model
func (ScoreRecord) TableName() string {
	return "score_records"
}

// BeforeCreate assigns the id and pins the category to the canonical band
func (s *ScoreRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Category = CategoryForScore(s.Score)
	return nil
}

// Valid reports whether the stored values are inside their domains
func (s *ScoreRecord) Valid() bool {
	if s.Score < MinScore || s.Score > MaxScore {
		return false
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return false
	}
	_, err := ParseLabel(string(s.Label))
	return err == nil
}
