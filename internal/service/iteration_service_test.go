package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupWorkflowDB(t *testing.T, name string) *gorm.DB {
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

// seedWorkflow creates a student, an assignment with one question slot, and
// a submission in the given status.
func seedWorkflow(t *testing.T, db *gorm.DB, status string) (models.AnswerSlot, models.Submission) {
	t.Helper()

	student := models.Student{Name: "Jane Doe", Email: fmt.Sprintf("jane_%d@example.com", time.Now().UnixNano())}
	require.NoError(t, db.Create(&student).Error)

	assignment := models.Assignment{Title: "Essay", DueDate: time.Now().Add(48 * time.Hour)}
	require.NoError(t, db.Create(&assignment).Error)

	slot := models.AnswerSlot{AssignmentID: assignment.ID, Kind: models.SlotKindQuestion, Label: "Q1", Position: 1}
	require.NoError(t, db.Create(&slot).Error)

	submission := models.Submission{AssignmentID: assignment.ID, StudentID: student.ID, Status: status}
	require.NoError(t, db.Create(&submission).Error)

	return slot, submission
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func newIterationFixture(t *testing.T, db *gorm.DB) IterationService {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewIterationService(
		repository.NewIterationRepository(db),
		repository.NewFeedbackRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewAssignmentRepository(db),
		validate,
		stubUploader{},
		testLogger(),
	)
}

func TestIterationServiceFirstTouchOpensIterationOne(t *testing.T) {
	db := setupWorkflowDB(t, "iter_first")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)
	student := Actor{ID: submission.StudentID, Role: RoleStudent}

	opened, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	require.Equal(t, 1, opened.IterationNumber)
	require.False(t, opened.IsSubmitted)

	// Asking again returns the same open draft instead of a new number.
	again, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	require.Equal(t, opened.ID, again.ID)
}

func TestIterationServiceGateLocksWithoutFeedback(t *testing.T) {
	db := setupWorkflowDB(t, "iter_gate_locked")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)
	student := Actor{ID: submission.StudentID, Role: RoleStudent}

	opened, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)

	_, err = svc.SubmitText(context.Background(), slot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "my answer"}, student)
	require.NoError(t, err)

	// No evaluator feedback yet: the learner waits.
	_, err = svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.ErrorIs(t, err, ErrSlotLocked)
}

func TestIterationServiceGateFollowsLatestFeedback(t *testing.T) {
	db := setupWorkflowDB(t, "iter_gate_feedback")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)
	student := Actor{ID: submission.StudentID, Role: RoleStudent}

	opened, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	submitted, err := svc.SubmitText(context.Background(), slot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "draft one"}, student)
	require.NoError(t, err)

	deny := models.FeedbackEntry{IterationID: submitted.ID, Text: "stop here", AllowsNext: false, CreatedBy: 2, CreatedAt: time.Now().Add(-time.Minute)}
	require.NoError(t, db.Create(&deny).Error)

	_, err = svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.ErrorIs(t, err, ErrSlotLocked)

	// A newer entry supersedes the denial.
	allow := models.FeedbackEntry{IterationID: submitted.ID, Text: "one more pass", AllowsNext: true, CreatedBy: 2, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&allow).Error)

	next, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	require.Equal(t, 2, next.IterationNumber)
}

func TestIterationServiceReturnedStatusOverridesGate(t *testing.T) {
	db := setupWorkflowDB(t, "iter_returned")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)
	student := Actor{ID: submission.StudentID, Role: RoleStudent}

	opened, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	submitted, err := svc.SubmitText(context.Background(), slot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "draft"}, student)
	require.NoError(t, err)

	deny := models.FeedbackEntry{IterationID: submitted.ID, Text: "no", AllowsNext: false, CreatedBy: 2, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&deny).Error)

	require.NoError(t, db.Model(&models.Submission{}).Where("id = ?", submission.ID).Update("status", models.SubmissionStatusReturned).Error)

	next, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	require.Equal(t, 2, next.IterationNumber)
}

func TestIterationServiceSubmitRejectsEmptyAndDoubleSubmit(t *testing.T) {
	db := setupWorkflowDB(t, "iter_submit")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)
	student := Actor{ID: submission.StudentID, Role: RoleStudent}

	opened, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)

	_, err = svc.SubmitText(context.Background(), slot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "   \n\t "}, student)
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.SubmitText(context.Background(), slot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "final answer"}, student)
	require.NoError(t, err)

	_, err = svc.SubmitText(context.Background(), slot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "changed my mind"}, student)
	require.ErrorIs(t, err, ErrSlotLocked)
}

func TestIterationServiceRejectsForeignStudent(t *testing.T) {
	db := setupWorkflowDB(t, "iter_foreign")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)

	intruder := Actor{ID: submission.StudentID + 100, Role: RoleStudent}
	_, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, intruder)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestIterationServiceRejectsTextOnFileSlot(t *testing.T) {
	db := setupWorkflowDB(t, "iter_file_slot")
	_, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	svc := newIterationFixture(t, db)
	student := Actor{ID: submission.StudentID, Role: RoleStudent}

	fileSlot := models.AnswerSlot{AssignmentID: submission.AssignmentID, Kind: models.SlotKindFile, Label: "Upload", Position: 2}
	require.NoError(t, db.Create(&fileSlot).Error)

	opened, err := svc.GetOrOpen(context.Background(), fileSlot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)

	_, err = svc.SubmitText(context.Background(), fileSlot.ID, opened.IterationNumber, dto.IterationSubmitRequest{SubmissionID: submission.ID, Content: "text"}, student)
	require.Error(t, err)
}

// conflictIterationRepo simulates a concurrent writer: CreateNext stores the
// row through the real repository but reports a duplicated key.
type conflictIterationRepo struct {
	repository.IterationRepository
	conflicts int
	persist   bool
}

func (r *conflictIterationRepo) CreateNext(ctx context.Context, slotID, submissionID uint) (models.Iteration, error) {
	r.conflicts++
	if r.persist {
		if _, err := r.IterationRepository.CreateNext(ctx, slotID, submissionID); err != nil {
			return models.Iteration{}, err
		}
	}
	return models.Iteration{}, gorm.ErrDuplicatedKey
}

func TestIterationServiceConflictResolvesOnReRead(t *testing.T) {
	db := setupWorkflowDB(t, "iter_conflict_ok")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	validate := validator.New(validator.WithRequiredStructEnabled())

	fake := &conflictIterationRepo{IterationRepository: repository.NewIterationRepository(db), persist: true}
	svc := NewIterationService(
		fake,
		repository.NewFeedbackRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewAssignmentRepository(db),
		validate,
		stubUploader{},
		testLogger(),
	)

	student := Actor{ID: submission.StudentID, Role: RoleStudent}
	opened, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.NoError(t, err)
	require.Equal(t, 1, opened.IterationNumber)
	require.Equal(t, 1, fake.conflicts)
}

func TestIterationServiceConflictWithoutRowSurfaces(t *testing.T) {
	db := setupWorkflowDB(t, "iter_conflict_err")
	slot, submission := seedWorkflow(t, db, models.SubmissionStatusNotGraded)
	validate := validator.New(validator.WithRequiredStructEnabled())

	fake := &conflictIterationRepo{IterationRepository: repository.NewIterationRepository(db)}
	svc := NewIterationService(
		fake,
		repository.NewFeedbackRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewAssignmentRepository(db),
		validate,
		stubUploader{},
		testLogger(),
	)

	student := Actor{ID: submission.StudentID, Role: RoleStudent}
	_, err := svc.GetOrOpen(context.Background(), slot.ID, dto.IterationOpenRequest{SubmissionID: submission.ID}, student)
	require.ErrorIs(t, err, ErrConcurrentModification)
}
