package models

import "time"

// Submission lifecycle statuses.
const (
	// SubmissionStatusNotGraded covers both the initial draft condition and
	// work resubmitted after a return.
	SubmissionStatusNotGraded = "not_graded"
	// SubmissionStatusSubmitted indicates the learner has handed the work in.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates an evaluator recorded a final grade.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusReturned indicates the work was handed back for rework.
	SubmissionStatusReturned = "returned"
	// SubmissionStatusMissing marks work that was never handed in.
	SubmissionStatusMissing = "missing"
	// SubmissionStatusExcused exempts the learner from the assignment.
	SubmissionStatusExcused = "excused"
	// SubmissionStatusLate marks work handed in after the deadline.
	SubmissionStatusLate = "late"
)

// Administrative approval statuses.
const (
	ApprovalStatusApproved      = "approved"
	ApprovalStatusNeedsRevision = "needs_revision"
)

// Submission is the per (assignment, learner) record the whole workflow
// hangs off. Grading fields are written by evaluators, admin_approval_*
// fields are denormalized from the current ApprovalRecord for fast reads.
type Submission struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	AssignmentID          uint       `gorm:"not null;uniqueIndex:idx_submission_pair" json:"assignment_id"`
	StudentID             uint       `gorm:"not null;uniqueIndex:idx_submission_pair" json:"student_id"`
	Status                string     `gorm:"size:32;not null" json:"status"`
	Grade                 *float64   `json:"grade"`
	GradedBy              *uint      `json:"graded_by"`
	GradedAt              *time.Time `json:"graded_at"`
	SubmittedAt           *time.Time `json:"submitted_at"`
	AdminApprovalStatus   *string    `gorm:"size:32" json:"admin_approval_status"`
	AdminApprovalFeedback string     `gorm:"type:text" json:"admin_approval_feedback"`
	AdminApprovedBy       *uint      `json:"admin_approved_by"`
	AdminApprovalDate     *time.Time `json:"admin_approval_date"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Assignment            Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student               Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsGraded reports whether the submission carries a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// IsReturned reports whether the work was handed back for rework. A returned
// submission overrides every per-slot feedback gate.
func (s Submission) IsReturned() bool {
	return s.Status == SubmissionStatusReturned
}

// CanBeEditedByStudent reports whether the learner may still change content.
func (s Submission) CanBeEditedByStudent() bool {
	switch s.Status {
	case SubmissionStatusNotGraded, SubmissionStatusSubmitted, SubmissionStatusReturned, SubmissionStatusLate:
		return true
	default:
		return false
	}
}

// IsApproved reports whether the current administrative decision is approved.
func (s Submission) IsApproved() bool {
	return s.AdminApprovalStatus != nil && *s.AdminApprovalStatus == ApprovalStatusApproved
}

// StatusHistory records one lifecycle transition, including grades set as
// part of a grading transition. Rows are append-only.
type StatusHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	FromStatus   string    `gorm:"size:32;not null" json:"from_status"`
	ToStatus     string    `gorm:"size:32;not null" json:"to_status"`
	Grade        *float64  `json:"grade"`
	ChangedBy    uint      `gorm:"not null" json:"changed_by"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
