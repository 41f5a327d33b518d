package models

import (
	"time"
)

// Article represents a page readers are discussing
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	URL         string    `gorm:"uniqueIndex" json:"url"`
	Title       string    `json:"title"`
	Summary     string    `gorm:"type:text" json:"summary"`
	SummaryMini string    `gorm:"type:text" json:"summarymini"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
