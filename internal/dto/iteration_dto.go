package dto

import (
	"time"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// IterationOpenRequest asks for the current open draft of a slot, creating
// the next iteration when the gate permits.
type IterationOpenRequest struct {
	SubmissionID uint `json:"submission_id" validate:"required,gt=0"`
}

// IterationSubmitRequest carries the content for submitting an open draft.
type IterationSubmitRequest struct {
	SubmissionID uint   `json:"submission_id" form:"submission_id" validate:"required,gt=0"`
	Content      string `json:"content" form:"content"`
}

// IterationResponse is returned to API clients when viewing iterations.
type IterationResponse struct {
	ID              uint       `json:"id"`
	SlotID          uint       `json:"slot_id"`
	SubmissionID    uint       `json:"submission_id"`
	IterationNumber int        `json:"iteration_number"`
	Content         string     `json:"content"`
	BlobURL         string     `json:"blob_url,omitempty"`
	IsSubmitted     bool       `json:"is_submitted"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewIterationResponse converts an Iteration model into a DTO.
func NewIterationResponse(model models.Iteration) IterationResponse {
	return IterationResponse{
		ID:              model.ID,
		SlotID:          model.SlotID,
		SubmissionID:    model.SubmissionID,
		IterationNumber: model.IterationNumber,
		Content:         model.Content,
		BlobURL:         model.BlobURL,
		IsSubmitted:     model.IsSubmitted,
		SubmittedAt:     model.SubmittedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewIterationResponseSlice converts iteration models into DTOs.
func NewIterationResponseSlice(models []models.Iteration) []IterationResponse {
	responses := make([]IterationResponse, 0, len(models))
	for _, iteration := range models {
		responses = append(responses, NewIterationResponse(iteration))
	}

	return responses
}
