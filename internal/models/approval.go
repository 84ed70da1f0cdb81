package models

import "time"

// ApprovalRecord is one administrative verification decision over a
// submission's full record. History is append-only; exactly one record per
// submission is current at any time.
type ApprovalRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubmissionID  uint      `gorm:"not null;index;uniqueIndex:idx_approval_current,where:is_current" json:"submission_id"`
	Status        string    `gorm:"size:32;not null" json:"status"`
	Feedback      string    `gorm:"type:text" json:"feedback"`
	ApprovedBy    uint      `gorm:"not null" json:"approved_by"`
	ApprovalDate  time.Time `gorm:"not null;index" json:"approval_date"`
	IsCurrent     bool      `gorm:"not null;default:false;index" json:"is_current"`
	TriggerReason string    `gorm:"size:255" json:"trigger_reason"`
	CreatedAt     time.Time `json:"created_at"`
}
