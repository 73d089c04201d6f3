package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report is a reader's claim that an article is mis-scored. Reports are
// append-only; an override resolves every open report of its article.
type Report struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;index"`
	Reason    string    `json:"reason" db:"reason" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`

	ResolvedAt           *time.Time `json:"resolved_at,omitempty" db:"resolved_at" gorm:"index"`
	ResolvedByOverrideID *uuid.UUID `json:"resolved_by_override_id,omitempty" db:"resolved_by_override_id" gorm:"type:uuid"`
}

// TableName sets the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

// BeforeCreate assigns the report id
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsOpen reports whether no override has resolved this report yet
func (r *Report) IsOpen() bool {
	return r.ResolvedAt == nil
}
