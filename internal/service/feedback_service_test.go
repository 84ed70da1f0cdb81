package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/pkg/notify"
)

func newFeedbackFixture(t *testing.T, db *gorm.DB) FeedbackService {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewFeedbackService(
		repository.NewFeedbackRepository(db),
		repository.NewIterationRepository(db),
		validate,
		notify.NewNoop(),
		testLogger(),
	)
}

func seedIteration(t *testing.T, db *gorm.DB) models.Iteration {
	t.Helper()

	slot, submission := seedWorkflow(t, db, models.SubmissionStatusSubmitted)
	iteration := models.Iteration{SlotID: slot.ID, SubmissionID: submission.ID, IterationNumber: 1, IsSubmitted: true}
	require.NoError(t, db.Create(&iteration).Error)
	return iteration
}

func boolPointer(v bool) *bool { return &v }

func TestFeedbackServiceAddRequiresEvaluator(t *testing.T) {
	db := setupWorkflowDB(t, "feedback_role")
	iteration := seedIteration(t, db)
	svc := newFeedbackFixture(t, db)

	_, err := svc.Add(context.Background(), iteration.ID, dto.FeedbackCreateRequest{Text: "hi", AllowsNext: boolPointer(true)}, Actor{ID: 1, Role: RoleStudent})
	require.ErrorIs(t, err, ErrUnauthorized)

	entry, err := svc.Add(context.Background(), iteration.ID, dto.FeedbackCreateRequest{Text: "solid work", AllowsNext: boolPointer(true)}, Actor{ID: 2, Role: RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, "solid work", entry.Text)
	require.True(t, entry.AllowsNext)
	require.Equal(t, uint(2), entry.CreatedBy)
}

func TestFeedbackServiceAddSanitizesMarkup(t *testing.T) {
	db := setupWorkflowDB(t, "feedback_sanitize")
	iteration := seedIteration(t, db)
	svc := newFeedbackFixture(t, db)

	entry, err := svc.Add(context.Background(), iteration.ID, dto.FeedbackCreateRequest{Text: "<script>alert(1)</script>rework the intro", AllowsNext: boolPointer(false)}, Actor{ID: 2, Role: RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, "rework the intro", entry.Text)

	// Markup-only text is empty after sanitization.
	_, err = svc.Add(context.Background(), iteration.ID, dto.FeedbackCreateRequest{Text: "<b></b>", AllowsNext: boolPointer(true)}, Actor{ID: 2, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestFeedbackServiceAppendOnlyLatestWins(t *testing.T) {
	db := setupWorkflowDB(t, "feedback_append")
	iteration := seedIteration(t, db)
	svc := newFeedbackFixture(t, db)
	teacher := Actor{ID: 2, Role: RoleTeacher}

	_, err := svc.Add(context.Background(), iteration.ID, dto.FeedbackCreateRequest{Text: "not yet", AllowsNext: boolPointer(false)}, teacher)
	require.NoError(t, err)
	second, err := svc.Add(context.Background(), iteration.ID, dto.FeedbackCreateRequest{Text: "go ahead", AllowsNext: boolPointer(true)}, teacher)
	require.NoError(t, err)

	latest, err := svc.Latest(context.Background(), iteration.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.True(t, latest.AllowsNext)

	entries, err := svc.ListByIteration(context.Background(), iteration.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestFeedbackServiceLatestMissing(t *testing.T) {
	db := setupWorkflowDB(t, "feedback_missing")
	iteration := seedIteration(t, db)
	svc := newFeedbackFixture(t, db)

	_, err := svc.Latest(context.Background(), iteration.ID)
	require.ErrorIs(t, err, ErrFeedbackNotFound)

	_, err = svc.Add(context.Background(), iteration.ID+999, dto.FeedbackCreateRequest{Text: "hello", AllowsNext: boolPointer(true)}, Actor{ID: 2, Role: RoleTeacher})
	require.ErrorIs(t, err, ErrIterationNotFound)
}
