package dto

import (
	"time"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// FeedbackCreateRequest appends an evaluator judgment to an iteration.
type FeedbackCreateRequest struct {
	Text       string `json:"text" validate:"required,min=1"`
	AllowsNext *bool  `json:"allows_next" validate:"required"`
}

// FeedbackResponse serializes a feedback entry.
type FeedbackResponse struct {
	ID          uint      `json:"id"`
	IterationID uint      `json:"iteration_id"`
	Text        string    `json:"text"`
	AllowsNext  bool      `json:"allows_next"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFeedbackResponse converts a FeedbackEntry model into a DTO.
func NewFeedbackResponse(model models.FeedbackEntry) FeedbackResponse {
	return FeedbackResponse{
		ID:          model.ID,
		IterationID: model.IterationID,
		Text:        model.Text,
		AllowsNext:  model.AllowsNext,
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
	}
}

// NewFeedbackResponseSlice converts feedback models into DTOs.
func NewFeedbackResponseSlice(models []models.FeedbackEntry) []FeedbackResponse {
	responses := make([]FeedbackResponse, 0, len(models))
	for _, entry := range models {
		responses = append(responses, NewFeedbackResponse(entry))
	}

	return responses
}
