package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment represents a unit of work learners answer slot by slot.
type Assignment struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	DueDate     time.Time    `gorm:"not null" json:"due_date"`
	RubricID    *uint        `json:"rubric_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Slots       []AnswerSlot `json:"slots"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// Answer slot kinds.
const (
	SlotKindQuestion = "question"
	SlotKindField    = "field"
	SlotKindFile     = "file"
)

// AnswerSlot is a stable reference to one question, text field, or file
// channel within an assignment. Slots are immutable once created.
type AnswerSlot struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	AssignmentID uint              `gorm:"not null;index" json:"assignment_id"`
	Kind         string            `gorm:"size:32;not null" json:"kind"`
	Label        string            `gorm:"size:255;not null" json:"label"`
	Position     int               `gorm:"not null" json:"position"`
	Definition   datatypes.JSONMap `gorm:"type:json" json:"definition"`
	CreatedAt    time.Time         `json:"created_at"`
}

// IsFile reports whether iterations for this slot carry uploaded content.
func (s AnswerSlot) IsFile() bool {
	return s.Kind == SlotKindFile
}
