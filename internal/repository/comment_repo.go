package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// CommentRepository persists submission discussion comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Comment, error)
	ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository instantiates the repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	return comments, nil
}

func (r *commentRepository) ListSince(ctx context.Context, submissionID uint, watermark time.Time) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Where("created_at > ?", watermark).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	return comments, nil
}
