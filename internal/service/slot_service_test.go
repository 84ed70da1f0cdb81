package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
)

func TestSlotServiceRegisterValidatesDefinitions(t *testing.T) {
	db := setupWorkflowDB(t, "slot_register")
	assignment := models.Assignment{Title: "Worksheet", DueDate: time.Now().Add(24 * time.Hour)}
	require.NoError(t, db.Create(&assignment).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSlotService(repository.NewAssignmentRepository(db), validate, testLogger())
	teacher := Actor{ID: 2, Role: RoleTeacher}

	payload := dto.SlotRegisterRequest{Slots: []dto.SlotCreateRequest{
		{Kind: models.SlotKindQuestion, Label: "Q1", Position: 1, Definition: map[string]interface{}{"prompt": "Explain.", "max_length": float64(500)}},
		{Kind: models.SlotKindFile, Label: "Report", Position: 2},
	}}

	slots, err := svc.Register(context.Background(), assignment.ID, payload, teacher)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, models.SlotKindQuestion, slots[0].Kind)

	listed, err := svc.List(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestSlotServiceRegisterRejectsUnknownDefinitionKeys(t *testing.T) {
	db := setupWorkflowDB(t, "slot_schema")
	assignment := models.Assignment{Title: "Quiz", DueDate: time.Now().Add(24 * time.Hour)}
	require.NoError(t, db.Create(&assignment).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSlotService(repository.NewAssignmentRepository(db), validate, testLogger())

	payload := dto.SlotRegisterRequest{Slots: []dto.SlotCreateRequest{
		{Kind: models.SlotKindQuestion, Label: "Q1", Position: 1, Definition: map[string]interface{}{"surprise": true}},
	}}

	_, err := svc.Register(context.Background(), assignment.ID, payload, Actor{ID: 2, Role: RoleTeacher})
	require.Error(t, err)
}

func TestSlotServiceRegisterAuthorization(t *testing.T) {
	db := setupWorkflowDB(t, "slot_authz")
	assignment := models.Assignment{Title: "Quiz", DueDate: time.Now().Add(24 * time.Hour)}
	require.NoError(t, db.Create(&assignment).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSlotService(repository.NewAssignmentRepository(db), validate, testLogger())

	payload := dto.SlotRegisterRequest{Slots: []dto.SlotCreateRequest{
		{Kind: models.SlotKindQuestion, Label: "Q1", Position: 1},
	}}

	_, err := svc.Register(context.Background(), assignment.ID, payload, Actor{ID: 1, Role: RoleStudent})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Register(context.Background(), 555, payload, Actor{ID: 2, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
