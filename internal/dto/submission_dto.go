package dto

import (
	"time"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// SubmissionSubmitRequest is the learner hand-in payload.
type SubmissionSubmitRequest struct {
	AssignmentID uint `json:"assignment_id" validate:"required,gt=0"`
}

// SubmissionStatusRequest changes a submission's lifecycle status. Grade is
// required when (and only accepted when) status is graded.
type SubmissionStatusRequest struct {
	Status string   `json:"status" validate:"required,oneof=graded returned missing excused late"`
	Grade  *float64 `json:"grade" validate:"omitempty,gte=0,lte=100"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=not_graded submitted graded returned missing excused late"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                    uint           `json:"id"`
	AssignmentID          uint           `json:"assignment_id"`
	StudentID             uint           `json:"student_id"`
	Status                string         `json:"status"`
	Grade                 *float64       `json:"grade"`
	GradedBy              *uint          `json:"graded_by"`
	GradedAt              *time.Time     `json:"graded_at"`
	SubmittedAt           *time.Time     `json:"submitted_at"`
	AdminApprovalStatus   *string        `json:"admin_approval_status"`
	AdminApprovalFeedback string         `json:"admin_approval_feedback,omitempty"`
	AdminApprovedBy       *uint          `json:"admin_approved_by"`
	AdminApprovalDate     *time.Time     `json:"admin_approval_date"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	Assignment            AssignmentLite `json:"assignment"`
	Student               StudentLite    `json:"student"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID      uint      `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:                    model.ID,
		AssignmentID:          model.AssignmentID,
		StudentID:             model.StudentID,
		Status:                model.Status,
		Grade:                 model.Grade,
		GradedBy:              model.GradedBy,
		GradedAt:              model.GradedAt,
		SubmittedAt:           model.SubmittedAt,
		AdminApprovalStatus:   model.AdminApprovalStatus,
		AdminApprovalFeedback: model.AdminApprovalFeedback,
		AdminApprovedBy:       model.AdminApprovedBy,
		AdminApprovalDate:     model.AdminApprovalDate,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:      model.Assignment.ID,
			Title:   model.Assignment.Title,
			DueDate: model.Assignment.DueDate,
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// CommentCreateRequest attaches a discussion comment to a submission.
type CommentCreateRequest struct {
	Body string `json:"body" validate:"required,min=1"`
}

// CommentResponse serializes a submission comment.
type CommentResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	AuthorID     uint      `json:"author_id"`
	AuthorRole   string    `json:"author_role"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCommentResponse converts a Comment model into a DTO.
func NewCommentResponse(model models.Comment) CommentResponse {
	return CommentResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		AuthorID:     model.AuthorID,
		AuthorRole:   model.AuthorRole,
		Body:         model.Body,
		CreatedAt:    model.CreatedAt,
	}
}
