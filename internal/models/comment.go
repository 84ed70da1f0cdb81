package models

import "time"

// Comment is a discussion note attached to a submission. Comments do not
// participate in gating but count as activity for re-verification checks.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	AuthorID     uint      `gorm:"not null" json:"author_id"`
	AuthorRole   string    `gorm:"size:32;not null" json:"author_role"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
