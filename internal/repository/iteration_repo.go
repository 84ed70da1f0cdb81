package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// IterationRepository defines data operations for per-slot answer versions.
type IterationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Iteration, error)
	GetByNumber(ctx context.Context, slotID, submissionID uint, number int) (models.Iteration, error)
	List(ctx context.Context, slotID, submissionID uint) ([]models.Iteration, error)
	Latest(ctx context.Context, slotID, submissionID uint) (models.Iteration, error)
	Open(ctx context.Context, slotID, submissionID uint) (models.Iteration, error)
	CreateNext(ctx context.Context, slotID, submissionID uint) (models.Iteration, error)
	Update(ctx context.Context, iteration *models.Iteration) error
	ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.Iteration, error)
}

type iterationRepository struct {
	db *gorm.DB
}

// NewIterationRepository instantiates the repository.
func NewIterationRepository(db *gorm.DB) IterationRepository {
	return &iterationRepository{db: db}
}

func (r *iterationRepository) chainQuery(ctx context.Context, slotID, submissionID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Iteration{}).
		Where("slot_id = ?", slotID).
		Where("submission_id = ?", submissionID)
}

func (r *iterationRepository) GetByID(ctx context.Context, id uint) (models.Iteration, error) {
	var iteration models.Iteration
	if err := r.db.WithContext(ctx).Preload("Slot").First(&iteration, id).Error; err != nil {
		return models.Iteration{}, err
	}

	return iteration, nil
}

func (r *iterationRepository) GetByNumber(ctx context.Context, slotID, submissionID uint, number int) (models.Iteration, error) {
	var iteration models.Iteration
	if err := r.chainQuery(ctx, slotID, submissionID).
		Where("iteration_number = ?", number).
		First(&iteration).Error; err != nil {
		return models.Iteration{}, err
	}

	return iteration, nil
}

func (r *iterationRepository) List(ctx context.Context, slotID, submissionID uint) ([]models.Iteration, error) {
	var iterations []models.Iteration
	if err := r.chainQuery(ctx, slotID, submissionID).
		Order("iteration_number ASC").
		Find(&iterations).Error; err != nil {
		return nil, err
	}

	return iterations, nil
}

func (r *iterationRepository) Latest(ctx context.Context, slotID, submissionID uint) (models.Iteration, error) {
	var iteration models.Iteration
	if err := r.chainQuery(ctx, slotID, submissionID).
		Order("iteration_number DESC").
		First(&iteration).Error; err != nil {
		return models.Iteration{}, err
	}

	return iteration, nil
}

func (r *iterationRepository) Open(ctx context.Context, slotID, submissionID uint) (models.Iteration, error) {
	var iteration models.Iteration
	if err := r.chainQuery(ctx, slotID, submissionID).
		Where("is_submitted = ?", false).
		First(&iteration).Error; err != nil {
		return models.Iteration{}, err
	}

	return iteration, nil
}

// CreateNext inserts iteration max+1 for the chain inside a transaction. A
// draft that landed after the caller's pre-check, or a concurrent insert of
// the same number, surfaces as gorm.ErrDuplicatedKey; callers treat that as
// a retryable conflict and re-read the open row. The partial unique index
// idx_iteration_open backs the same guarantee at the database level.
func (r *iterationRepository) CreateNext(ctx context.Context, slotID, submissionID uint) (models.Iteration, error) {
	var created models.Iteration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var openDrafts int64
		if err := tx.Model(&models.Iteration{}).
			Where("slot_id = ?", slotID).
			Where("submission_id = ?", submissionID).
			Where("is_submitted = ?", false).
			Count(&openDrafts).Error; err != nil {
			return err
		}
		if openDrafts > 0 {
			return gorm.ErrDuplicatedKey
		}

		var maxNumber int
		if err := tx.Model(&models.Iteration{}).
			Where("slot_id = ?", slotID).
			Where("submission_id = ?", submissionID).
			Select("COALESCE(MAX(iteration_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}

		created = models.Iteration{
			SlotID:          slotID,
			SubmissionID:    submissionID,
			IterationNumber: maxNumber + 1,
		}

		return tx.Create(&created).Error
	})
	if err != nil {
		return models.Iteration{}, err
	}

	return created, nil
}

func (r *iterationRepository) Update(ctx context.Context, iteration *models.Iteration) error {
	return r.db.WithContext(ctx).Save(iteration).Error
}

func (r *iterationRepository) ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.Iteration, error) {
	var iterations []models.Iteration
	if err := r.db.WithContext(ctx).Model(&models.Iteration{}).
		Preload("Slot").
		Where("submission_id = ?", submissionID).
		Where("updated_at > ?", watermark).
		Order("updated_at DESC").
		Find(&iterations).Error; err != nil {
		return nil, err
	}

	return iterations, nil
}
