package models

import "time"

// Iteration is one numbered version of a learner's answer to a slot within
// one submission. Numbers are gapless and 1-based per (slot, submission);
// at most one iteration per pair is still open (is_submitted=false).
type Iteration struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SlotID          uint       `gorm:"not null;uniqueIndex:idx_iteration_seq;uniqueIndex:idx_iteration_open,where:is_submitted = false" json:"slot_id"`
	SubmissionID    uint       `gorm:"not null;uniqueIndex:idx_iteration_seq;uniqueIndex:idx_iteration_open,where:is_submitted = false" json:"submission_id"`
	IterationNumber int        `gorm:"not null;uniqueIndex:idx_iteration_seq" json:"iteration_number"`
	Content         string     `gorm:"type:text" json:"content"`
	BlobURL         string     `gorm:"size:512" json:"blob_url"`
	IsSubmitted     bool       `gorm:"not null;default:false" json:"is_submitted"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Slot            AnswerSlot `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"slot"`
}

// IsOpen reports whether the iteration is still an editable draft.
func (i Iteration) IsOpen() bool {
	return !i.IsSubmitted
}
