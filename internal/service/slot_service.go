package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
)

// slotDefinitionSchema constrains the free-form definition document an
// assignment author may attach to a slot.
const slotDefinitionSchema = `{
  "type": "object",
  "properties": {
    "prompt": {"type": "string", "minLength": 1},
    "max_length": {"type": "integer", "minimum": 1},
    "allowed_types": {
      "type": "array",
      "items": {"type": "string"},
      "uniqueItems": true
    },
    "points": {"type": "number", "minimum": 0}
  },
  "additionalProperties": false
}`

// SlotService registers answer slots on assignments. Slots are immutable
// once created.
type SlotService interface {
	Register(ctx context.Context, assignmentID uint, payload dto.SlotRegisterRequest, actor Actor) ([]dto.SlotResponse, error)
	List(ctx context.Context, assignmentID uint) ([]dto.SlotResponse, error)
}

type slotService struct {
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	schema      *jsonschema.Schema
	logger      zerolog.Logger
}

// NewSlotService constructs a SlotService instance. It panics when the
// embedded slot schema does not compile, which is a programming error.
func NewSlotService(assignmentRepo repository.AssignmentRepository, validate *validator.Validate, logger zerolog.Logger) SlotService {
	schema := jsonschema.MustCompileString("slot.json", slotDefinitionSchema)

	return &slotService{
		assignments: assignmentRepo,
		validator:   validate,
		schema:      schema,
		logger:      logger.With().Str("component", "slot_service").Logger(),
	}
}

func (s *slotService) Register(ctx context.Context, assignmentID uint, payload dto.SlotRegisterRequest, actor Actor) ([]dto.SlotResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	if !actor.IsEvaluator() {
		return nil, ErrUnauthorized
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	slots := make([]models.AnswerSlot, 0, len(payload.Slots))
	for i, slot := range payload.Slots {
		if slot.Definition != nil {
			if err := s.schema.Validate(mapToInterface(slot.Definition)); err != nil {
				return nil, fmt.Errorf("slot %d definition: %w", i, err)
			}
		}

		slots = append(slots, models.AnswerSlot{
			AssignmentID: assignment.ID,
			Kind:         slot.Kind,
			Label:        slot.Label,
			Position:     slot.Position,
			Definition:   datatypes.JSONMap(slot.Definition),
		})
	}

	if err := s.assignments.CreateSlots(ctx, slots); err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Int("count", len(slots)).
		Msg("answer slots registered")

	return dto.NewSlotResponseSlice(slots), nil
}

func (s *slotService) List(ctx context.Context, assignmentID uint) ([]dto.SlotResponse, error) {
	slots, err := s.assignments.ListSlots(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewSlotResponseSlice(slots), nil
}

// mapToInterface rebuilds the definition as plain interface values so the
// schema validator sees JSON-shaped data.
func mapToInterface(in map[string]interface{}) interface{} {
	out := make(map[string]interface{}, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
