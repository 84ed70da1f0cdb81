package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/models"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Assignment{},
		&models.AnswerSlot{},
		&models.Submission{},
		&models.Iteration{},
		&models.FeedbackEntry{},
		&models.ApprovalRecord{},
		&models.StatusHistory{},
		&models.Comment{},
	))

	return db
}

func TestIterationRepositoryCreateNextIsGapless(t *testing.T) {
	db := setupTestDB(t, "iteration_gapless")
	repo := NewIterationRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		created, err := repo.CreateNext(ctx, 1, 1)
		require.NoError(t, err)
		require.Equal(t, want, created.IterationNumber)

		created.IsSubmitted = true
		require.NoError(t, repo.Update(ctx, &created))
	}

	// A second chain numbers independently from one.
	other, err := repo.CreateNext(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, 1, other.IterationNumber)
}

func TestIterationRepositoryDuplicateNumberIsDetected(t *testing.T) {
	db := setupTestDB(t, "iteration_duplicate")
	repo := NewIterationRepository(db)
	ctx := context.Background()

	created, err := repo.CreateNext(ctx, 1, 1)
	require.NoError(t, err)

	clash := models.Iteration{
		SlotID:          created.SlotID,
		SubmissionID:    created.SubmissionID,
		IterationNumber: created.IterationNumber,
	}
	err = db.Create(&clash).Error
	require.Error(t, err)
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestIterationRepositoryCreateNextRefusesSecondOpenDraft(t *testing.T) {
	db := setupTestDB(t, "iteration_single_draft")
	repo := NewIterationRepository(db)
	ctx := context.Background()

	first, err := repo.CreateNext(ctx, 1, 1)
	require.NoError(t, err)

	// A second racer that already passed its open-draft pre-check still hits
	// the in-transaction guard instead of minting draft #2.
	_, err = repo.CreateNext(ctx, 1, 1)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Writing the row directly trips the partial unique index as well.
	clash := models.Iteration{SlotID: 1, SubmissionID: 1, IterationNumber: 2}
	require.ErrorIs(t, db.Create(&clash).Error, gorm.ErrDuplicatedKey)

	var openCount int64
	require.NoError(t, db.Model(&models.Iteration{}).
		Where("slot_id = ? AND submission_id = ? AND is_submitted = ?", 1, 1, false).
		Count(&openCount).Error)
	require.EqualValues(t, 1, openCount)

	open, err := repo.Open(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, first.ID, open.ID)

	// Submitting the draft releases the guard for the next number.
	first.IsSubmitted = true
	require.NoError(t, repo.Update(ctx, &first))

	second, err := repo.CreateNext(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, second.IterationNumber)
}

func TestIterationRepositoryOpenAndLatest(t *testing.T) {
	db := setupTestDB(t, "iteration_open")
	repo := NewIterationRepository(db)
	ctx := context.Background()

	first, err := repo.CreateNext(ctx, 1, 1)
	require.NoError(t, err)

	_, err = repo.Open(ctx, 1, 1)
	require.NoError(t, err)

	first.IsSubmitted = true
	require.NoError(t, repo.Update(ctx, &first))

	_, err = repo.Open(ctx, 1, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	second, err := repo.CreateNext(ctx, 1, 1)
	require.NoError(t, err)

	latest, err := repo.Latest(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.Equal(t, 2, latest.IterationNumber)

	open, err := repo.Open(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, second.ID, open.ID)
}

func TestIterationRepositoryListSinceFiltersByWatermark(t *testing.T) {
	db := setupTestDB(t, "iteration_since")
	repo := NewIterationRepository(db)
	ctx := context.Background()

	slot := models.AnswerSlot{AssignmentID: 1, Kind: models.SlotKindQuestion, Label: "Q1", Position: 1}
	require.NoError(t, db.Create(&slot).Error)

	old := models.Iteration{SlotID: slot.ID, SubmissionID: 7, IterationNumber: 1, IsSubmitted: true}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error)

	recent := models.Iteration{SlotID: slot.ID, SubmissionID: 7, IterationNumber: 2}
	require.NoError(t, db.Create(&recent).Error)

	iterations, err := repo.ListSince(ctx, 7, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, iterations, 1)
	require.Equal(t, recent.ID, iterations[0].ID)
	require.Equal(t, slot.ID, iterations[0].Slot.ID, "expected slot preloaded")
}
