package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Article represents a submitted news article and its moderation state
type Article struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Headline    string    `json:"headline" db:"headline" gorm:"not null"`
	Body        string    `json:"body" db:"body" gorm:"type:text;not null"`
	Author      string    `json:"author" db:"author"`
	Source      string    `json:"source" db:"source" gorm:"not null;index"`
	URL         string    `json:"url" db:"url"`
	PublishedAt time.Time `json:"published_date" db:"published_at"`

	// Derived from the body at submission time
	WordCount   int `json:"word_count" db:"word_count" gorm:"default:0"`
	ReadingTime int `json:"reading_time" db:"reading_time" gorm:"default:0"` // in minutes

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Score    *ScoreRecord `json:"-" gorm:"foreignKey:ArticleID;references:ID"`
	Override *Override    `json:"-" gorm:"foreignKey:ArticleID;references:ID"`
	Reports  []Report     `json:"-" gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName sets the table name for the Article model
func (Article) TableName() string {
	return "articles"
}

// BeforeCreate assigns the article identity before the first insert
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
