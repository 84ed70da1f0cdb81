package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

// ApprovalRepository persists administrative verification decisions.
type ApprovalRepository interface {
	Current(ctx context.Context, submissionID uint) (models.ApprovalRecord, error)
	History(ctx context.Context, submissionID uint) ([]models.ApprovalRecord, error)
	// RecordCurrent demotes the previous current record, inserts the new one
	// as current, and denormalizes the decision onto the submission, all in
	// one transaction.
	RecordCurrent(ctx context.Context, record *models.ApprovalRecord) error
}

type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository instantiates the repository.
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Current(ctx context.Context, submissionID uint) (models.ApprovalRecord, error) {
	var record models.ApprovalRecord
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Where("is_current = ?", true).
		First(&record).Error; err != nil {
		return models.ApprovalRecord{}, err
	}

	return record, nil
}

func (r *approvalRepository) History(ctx context.Context, submissionID uint) ([]models.ApprovalRecord, error) {
	var records []models.ApprovalRecord
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("approval_date DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *approvalRepository) RecordCurrent(ctx context.Context, record *models.ApprovalRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ApprovalRecord{}).
			Where("submission_id = ?", record.SubmissionID).
			Where("is_current = ?", true).
			Update("is_current", false).Error; err != nil {
			return err
		}

		record.IsCurrent = true
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		return tx.Model(&models.Submission{}).
			Where("id = ?", record.SubmissionID).
			Updates(map[string]interface{}{
				"admin_approval_status":   record.Status,
				"admin_approval_feedback": record.Feedback,
				"admin_approved_by":       record.ApprovedBy,
				"admin_approval_date":     record.ApprovalDate,
			}).Error
	})
}
