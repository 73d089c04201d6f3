package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Override is a moderator's correction of an article's displayed score.
// The unique index on article_id keeps at most one active override.
type Override struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID   uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex"`
	Label       Label     `json:"new_label" db:"label" gorm:"type:varchar(8);not null"`
	Confidence  *float64  `json:"confidence,omitempty" db:"confidence"`
	Notes       string    `json:"notes,omitempty" db:"notes" gorm:"type:text"`
	ModeratorID string    `json:"moderator_id" db:"moderator_id" gorm:"not null"`
	AppliedAt   time.Time `json:"applied_at" db:"applied_at" gorm:"not null"`
}

// TableName sets the table name for the Override model
func (Override) TableName() string {
	return "overrides"
}

// BeforeCreate assigns the override id
func (o *Override) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
