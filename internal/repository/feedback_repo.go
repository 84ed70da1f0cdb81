package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// FeedbackRepository persists evaluator feedback entries.
type FeedbackRepository interface {
	Create(ctx context.Context, entry *models.FeedbackEntry) error
	Latest(ctx context.Context, iterationID uint) (models.FeedbackEntry, error)
	ListByIteration(ctx context.Context, iterationID uint) ([]models.FeedbackEntry, error)
	ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.FeedbackEntry, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository instantiates the repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, entry *models.FeedbackEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *feedbackRepository) Latest(ctx context.Context, iterationID uint) (models.FeedbackEntry, error) {
	var entry models.FeedbackEntry
	if err := r.db.WithContext(ctx).
		Where("iteration_id = ?", iterationID).
		Order("created_at DESC").
		Order("id DESC").
		First(&entry).Error; err != nil {
		return models.FeedbackEntry{}, err
	}

	return entry, nil
}

func (r *feedbackRepository) ListByIteration(ctx context.Context, iterationID uint) ([]models.FeedbackEntry, error) {
	var entries []models.FeedbackEntry
	if err := r.db.WithContext(ctx).
		Where("iteration_id = ?", iterationID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *feedbackRepository) ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.FeedbackEntry, error) {
	var entries []models.FeedbackEntry
	if err := r.db.WithContext(ctx).Model(&models.FeedbackEntry{}).
		Joins("JOIN iterations ON iterations.id = feedback_entries.iteration_id").
		Where("iterations.submission_id = ?", submissionID).
		Where("feedback_entries.created_at > ?", watermark).
		Order("feedback_entries.created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
