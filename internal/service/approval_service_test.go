package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/internal/rubric"
	"github.com/noah-isme/koreksi-go-api/pkg/notify"
)

func newApprovalFixture(t *testing.T, db *gorm.DB) (ApprovalService, ActivityService) {
	t.Helper()

	require.NoError(t, db.AutoMigrate(&rubric.Evaluation{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	sources := DefaultActivitySources(
		repository.NewFeedbackRepository(db),
		repository.NewIterationRepository(db),
		repository.NewStatusHistoryRepository(db),
		repository.NewCommentRepository(db),
		rubric.NewService(db),
	)
	detector := NewActivityService(sources, repository.NewSubmissionRepository(db), repository.NewApprovalRepository(db), nil, time.Second, testLogger())

	svc := NewApprovalService(
		repository.NewApprovalRepository(db),
		repository.NewSubmissionRepository(db),
		detector,
		validate,
		notify.NewNoop(),
		testLogger(),
	)

	return svc, detector
}

func TestApprovalServiceRequiresAdmin(t *testing.T) {
	db := setupWorkflowDB(t, "approval_role")
	_, submission := seedWorkflow(t, db, models.SubmissionStatusGraded)
	svc, _ := newApprovalFixture(t, db)

	_, err := svc.Record(context.Background(), submission.ID, dto.ApprovalCreateRequest{Status: models.ApprovalStatusApproved}, Actor{ID: 3, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestApprovalServiceRecordStampsTriggerReason(t *testing.T) {
	db := setupWorkflowDB(t, "approval_trigger")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusGraded)
	svc, _ := newApprovalFixture(t, db)
	admin := Actor{ID: 99, Role: RoleAdmin}

	iteration := models.Iteration{SlotID: slot.ID, SubmissionID: submission.ID, IterationNumber: 1, IsSubmitted: true}
	require.NoError(t, db.Create(&iteration).Error)
	entry := models.FeedbackEntry{IterationID: iteration.ID, Text: "ok", AllowsNext: false, CreatedBy: 3, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&entry).Error)

	record, err := svc.Record(context.Background(), submission.ID, dto.ApprovalCreateRequest{Status: models.ApprovalStatusApproved}, admin)
	require.NoError(t, err)
	require.Equal(t, models.ApprovalStatusApproved, record.Status)
	require.Contains(t, record.TriggerReason, dto.ActivityKindFeedback)
	require.Contains(t, record.TriggerReason, dto.ActivityKindIteration)

	var reloaded models.Submission
	require.NoError(t, db.First(&reloaded, submission.ID).Error)
	require.True(t, reloaded.IsApproved())
	require.NotNil(t, reloaded.AdminApprovedBy)
	require.Equal(t, admin.ID, *reloaded.AdminApprovedBy)
}

func TestApprovalServiceSecondDecisionFlipsCurrent(t *testing.T) {
	db := setupWorkflowDB(t, "approval_second")
	_, submission := seedWorkflow(t, db, models.SubmissionStatusGraded)
	svc, _ := newApprovalFixture(t, db)
	admin := Actor{ID: 99, Role: RoleAdmin}

	first, err := svc.Record(context.Background(), submission.ID, dto.ApprovalCreateRequest{Status: models.ApprovalStatusApproved}, admin)
	require.NoError(t, err)

	revisionNote := "grade revised"
	second, err := svc.Record(context.Background(), submission.ID, dto.ApprovalCreateRequest{Status: models.ApprovalStatusNeedsRevision, Feedback: &revisionNote}, admin)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	history, err := svc.History(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	var currents []models.ApprovalRecord
	require.NoError(t, db.Where("submission_id = ? AND is_current = ?", submission.ID, true).Find(&currents).Error)
	require.Len(t, currents, 1)
	require.Equal(t, second.ID, currents[0].ID)

	var reloaded models.Submission
	require.NoError(t, db.First(&reloaded, submission.ID).Error)
	require.False(t, reloaded.IsApproved())
	require.Equal(t, "grade revised", reloaded.AdminApprovalFeedback)
}

func TestApprovalServiceHistoryUnknownSubmission(t *testing.T) {
	db := setupWorkflowDB(t, "approval_unknown")
	svc, _ := newApprovalFixture(t, db)

	_, err := svc.History(context.Background(), 12345)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestTriggerReasonDistinctKindsInOrder(t *testing.T) {
	events := []dto.ActivityEvent{
		{Kind: dto.ActivityKindFeedback},
		{Kind: dto.ActivityKindIteration},
		{Kind: dto.ActivityKindFeedback},
		{Kind: dto.ActivityKindComment},
	}

	require.Equal(t, "feedback, iteration, comment", TriggerReason(events))
	require.Equal(t, "", TriggerReason(nil))
}
