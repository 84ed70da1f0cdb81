package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// StatusHistoryRepository persists lifecycle transition records.
type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *models.StatusHistory) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.StatusHistory, error)
	ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.StatusHistory, error)
}

type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository instantiates the repository.
func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

func (r *statusHistoryRepository) Create(ctx context.Context, entry *models.StatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *statusHistoryRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.StatusHistory, error) {
	var entries []models.StatusHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *statusHistoryRepository) ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.StatusHistory, error) {
	var entries []models.StatusHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Where("created_at > ?", watermark).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
