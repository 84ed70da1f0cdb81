package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// AssignmentRepository defines data operations for assignments and their
// answer slots.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	GetSlot(ctx context.Context, slotID uint) (models.AnswerSlot, error)
	ListSlots(ctx context.Context, assignmentID uint) ([]models.AnswerSlot, error)
	CreateSlots(ctx context.Context, slots []models.AnswerSlot) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) GetSlot(ctx context.Context, slotID uint) (models.AnswerSlot, error) {
	var slot models.AnswerSlot
	if err := r.db.WithContext(ctx).First(&slot, slotID).Error; err != nil {
		return models.AnswerSlot{}, err
	}

	return slot, nil
}

func (r *assignmentRepository) ListSlots(ctx context.Context, assignmentID uint) ([]models.AnswerSlot, error) {
	var slots []models.AnswerSlot
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("position ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *assignmentRepository) CreateSlots(ctx context.Context, slots []models.AnswerSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&slots).Error
}
