package models

import "time"

// FeedbackEntry is one evaluator judgment on an iteration. Entries are
// append-only; re-feedback inserts a new row and the newest entry is
// authoritative for the iteration gate.
type FeedbackEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	IterationID uint      `gorm:"not null;index" json:"iteration_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	AllowsNext  bool      `gorm:"not null" json:"allows_next"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
