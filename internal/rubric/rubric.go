// Package rubric exposes a read-only view of the rubric scoring engine.
// This service never computes rubric totals itself and never writes
// evaluation rows; it only reads timestamps and point totals recorded by the
// scoring engine.
package rubric

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Evaluation is one rubric evaluation row as seen by this service.
type Evaluation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	RubricID     uint      `gorm:"not null" json:"rubric_id"`
	Score        float64   `gorm:"not null" json:"score"`
	EvaluatedBy  uint      `gorm:"not null" json:"evaluated_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName matches the scoring engine's table.
func (Evaluation) TableName() string {
	return "rubric_evaluations"
}

// Service reads rubric data owned by the external scoring engine.
type Service interface {
	TotalPoints(ctx context.Context, rubricID uint) (float64, error)
	EvaluationsFor(ctx context.Context, submissionID uint) ([]Evaluation, error)
}

type gormService struct {
	db *gorm.DB
}

// NewService builds a rubric reader over the shared database.
func NewService(db *gorm.DB) Service {
	return &gormService{db: db}
}

func (s *gormService) TotalPoints(ctx context.Context, rubricID uint) (float64, error) {
	var total float64
	if err := s.db.WithContext(ctx).Model(&Evaluation{}).
		Where("rubric_id = ?", rubricID).
		Select("COALESCE(SUM(score), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

func (s *gormService) EvaluationsFor(ctx context.Context, submissionID uint) ([]Evaluation, error) {
	var evaluations []Evaluation
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("updated_at DESC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}
