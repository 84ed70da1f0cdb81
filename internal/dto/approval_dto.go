package dto

import (
	"time"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// ApprovalCreateRequest records an administrative verification decision.
type ApprovalCreateRequest struct {
	Status   string  `json:"status" validate:"required,oneof=approved needs_revision"`
	Feedback *string `json:"feedback" validate:"omitempty,min=1"`
}

// ApprovalResponse serializes an approval record.
type ApprovalResponse struct {
	ID            uint      `json:"id"`
	SubmissionID  uint      `json:"submission_id"`
	Status        string    `json:"status"`
	Feedback      string    `json:"feedback,omitempty"`
	ApprovedBy    uint      `json:"approved_by"`
	ApprovalDate  time.Time `json:"approval_date"`
	IsCurrent     bool      `json:"is_current"`
	TriggerReason string    `json:"trigger_reason,omitempty"`
}

// NewApprovalResponse converts an ApprovalRecord model into a DTO.
func NewApprovalResponse(model models.ApprovalRecord) ApprovalResponse {
	return ApprovalResponse{
		ID:            model.ID,
		SubmissionID:  model.SubmissionID,
		Status:        model.Status,
		Feedback:      model.Feedback,
		ApprovedBy:    model.ApprovedBy,
		ApprovalDate:  model.ApprovalDate,
		IsCurrent:     model.IsCurrent,
		TriggerReason: model.TriggerReason,
	}
}

// NewApprovalResponseSlice converts approval models into DTOs.
func NewApprovalResponseSlice(models []models.ApprovalRecord) []ApprovalResponse {
	responses := make([]ApprovalResponse, 0, len(models))
	for _, record := range models {
		responses = append(responses, NewApprovalResponse(record))
	}

	return responses
}
