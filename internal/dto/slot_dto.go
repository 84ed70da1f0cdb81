package dto

import (
	"time"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// SlotCreateRequest registers one answer slot on an assignment. The
// definition document is validated against the slot JSON schema.
type SlotCreateRequest struct {
	Kind       string                 `json:"kind" validate:"required,oneof=question field file"`
	Label      string                 `json:"label" validate:"required,min=1,max=255"`
	Position   int                    `json:"position" validate:"gte=0"`
	Definition map[string]interface{} `json:"definition"`
}

// SlotRegisterRequest registers a batch of slots in one call.
type SlotRegisterRequest struct {
	Slots []SlotCreateRequest `json:"slots" validate:"required,min=1,dive"`
}

// SlotResponse serializes an answer slot.
type SlotResponse struct {
	ID           uint                   `json:"id"`
	AssignmentID uint                   `json:"assignment_id"`
	Kind         string                 `json:"kind"`
	Label        string                 `json:"label"`
	Position     int                    `json:"position"`
	Definition   map[string]interface{} `json:"definition,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewSlotResponse converts an AnswerSlot model into a DTO.
func NewSlotResponse(model models.AnswerSlot) SlotResponse {
	return SlotResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Kind:         model.Kind,
		Label:        model.Label,
		Position:     model.Position,
		Definition:   model.Definition,
		CreatedAt:    model.CreatedAt,
	}
}

// NewSlotResponseSlice converts slot models into DTOs.
func NewSlotResponseSlice(models []models.AnswerSlot) []SlotResponse {
	responses := make([]SlotResponse, 0, len(models))
	for _, slot := range models {
		responses = append(responses, NewSlotResponse(slot))
	}

	return responses
}
