package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
)

// FileUploader stores opaque blobs and returns a stable reference.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// IterationService owns the ordered, numbered versions of a learner's answer
// to one slot within one submission.
type IterationService interface {
	GetOrOpen(ctx context.Context, slotID uint, payload dto.IterationOpenRequest, actor Actor) (dto.IterationResponse, error)
	SubmitText(ctx context.Context, slotID uint, number int, payload dto.IterationSubmitRequest, actor Actor) (dto.IterationResponse, error)
	SubmitFile(ctx context.Context, slotID uint, number int, submissionID uint, actor Actor, file *multipart.FileHeader) (dto.IterationResponse, error)
	List(ctx context.Context, slotID, submissionID uint) ([]dto.IterationResponse, error)
}

type iterationService struct {
	iterations  repository.IterationRepository
	feedback    repository.FeedbackRepository
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	uploader    FileUploader
	logger      zerolog.Logger
	now         func() time.Time
}

// NewIterationService constructs an IterationService instance.
func NewIterationService(
	iterationRepo repository.IterationRepository,
	feedbackRepo repository.FeedbackRepository,
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	validate *validator.Validate,
	uploader FileUploader,
	logger zerolog.Logger,
) IterationService {
	return &iterationService{
		iterations:  iterationRepo,
		feedback:    feedbackRepo,
		submissions: submissionRepo,
		assignments: assignmentRepo,
		validator:   validate,
		uploader:    uploader,
		logger:      logger.With().Str("component", "iteration_service").Logger(),
		now:         time.Now,
	}
}

func (s *iterationService) GetOrOpen(ctx context.Context, slotID uint, payload dto.IterationOpenRequest, actor Actor) (dto.IterationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.IterationResponse{}, err
	}

	slot, submission, err := s.loadPair(ctx, slotID, payload.SubmissionID)
	if err != nil {
		return dto.IterationResponse{}, err
	}

	if actor.Role == RoleStudent && actor.ID != submission.StudentID {
		return dto.IterationResponse{}, ErrUnauthorized
	}

	// The returned status is a lifecycle-level escape hatch: it overrides
	// every per-slot gate, so it is checked before the gate logic runs.
	if submission.IsReturned() {
		return s.openNext(ctx, slot, submission)
	}

	if actor.Role == RoleStudent && !submission.CanBeEditedByStudent() {
		return dto.IterationResponse{}, ErrSubmissionLocked
	}

	open, err := s.iterations.Open(ctx, slot.ID, submission.ID)
	if err == nil {
		return dto.NewIterationResponse(open), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.IterationResponse{}, err
	}

	latest, err := s.iterations.Latest(ctx, slot.ID, submission.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First touch of the slot: open iteration #1.
			return s.openNext(ctx, slot, submission)
		}
		return dto.IterationResponse{}, err
	}

	allowed, err := s.gateAllows(ctx, latest)
	if err != nil {
		return dto.IterationResponse{}, err
	}
	if !allowed {
		return dto.IterationResponse{}, ErrSlotLocked
	}

	return s.openNext(ctx, slot, submission)
}

// gateAllows evaluates the per-slot gate: the most recent feedback entry on
// the most recent submitted iteration. No feedback yet means locked, since
// the learner is waiting on an evaluator.
func (s *iterationService) gateAllows(ctx context.Context, latest models.Iteration) (bool, error) {
	entry, err := s.feedback.Latest(ctx, latest.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return entry.AllowsNext, nil
}

// openNext returns the existing open draft or creates the next iteration.
// A concurrent creation race surfaces as a duplicated key; the freshly
// created row is observed on a single re-read before giving up.
func (s *iterationService) openNext(ctx context.Context, slot models.AnswerSlot, submission models.Submission) (dto.IterationResponse, error) {
	open, err := s.iterations.Open(ctx, slot.ID, submission.ID)
	if err == nil {
		return dto.NewIterationResponse(open), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.IterationResponse{}, err
	}

	created, err := s.iterations.CreateNext(ctx, slot.ID, submission.ID)
	if err == nil {
		s.logger.Info().
			Uint("slot_id", slot.ID).
			Uint("submission_id", submission.ID).
			Int("iteration_number", created.IterationNumber).
			Msg("iteration opened")
		return dto.NewIterationResponse(created), nil
	}

	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return dto.IterationResponse{}, err
	}

	open, retryErr := s.iterations.Open(ctx, slot.ID, submission.ID)
	if retryErr == nil {
		return dto.NewIterationResponse(open), nil
	}
	if !errors.Is(retryErr, gorm.ErrRecordNotFound) {
		return dto.IterationResponse{}, retryErr
	}

	return dto.IterationResponse{}, ErrConcurrentModification
}

func (s *iterationService) SubmitText(ctx context.Context, slotID uint, number int, payload dto.IterationSubmitRequest, actor Actor) (dto.IterationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.IterationResponse{}, err
	}

	slot, submission, err := s.loadPair(ctx, slotID, payload.SubmissionID)
	if err != nil {
		return dto.IterationResponse{}, err
	}

	if slot.IsFile() {
		return dto.IterationResponse{}, fmt.Errorf("slot %d expects an uploaded file", slot.ID)
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return dto.IterationResponse{}, ErrEmptyContent
	}

	iteration, err := s.writableIteration(ctx, slot, submission, number, actor)
	if err != nil {
		return dto.IterationResponse{}, err
	}

	iteration.Content = content
	return s.markSubmitted(ctx, iteration)
}

func (s *iterationService) SubmitFile(ctx context.Context, slotID uint, number int, submissionID uint, actor Actor, file *multipart.FileHeader) (dto.IterationResponse, error) {
	slot, submission, err := s.loadPair(ctx, slotID, submissionID)
	if err != nil {
		return dto.IterationResponse{}, err
	}

	if !slot.IsFile() {
		return dto.IterationResponse{}, fmt.Errorf("slot %d does not accept file uploads", slot.ID)
	}

	if file == nil || file.Size == 0 {
		return dto.IterationResponse{}, ErrEmptyContent
	}

	if err := validateUploadType(file); err != nil {
		return dto.IterationResponse{}, err
	}

	iteration, err := s.writableIteration(ctx, slot, submission, number, actor)
	if err != nil {
		return dto.IterationResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.IterationResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	reference, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.IterationResponse{}, fmt.Errorf("failed to store file: %w", err)
	}

	iteration.BlobURL = reference
	iteration.Content = file.Filename
	return s.markSubmitted(ctx, iteration)
}

func (s *iterationService) List(ctx context.Context, slotID, submissionID uint) ([]dto.IterationResponse, error) {
	iterations, err := s.iterations.List(ctx, slotID, submissionID)
	if err != nil {
		return nil, err
	}

	return dto.NewIterationResponseSlice(iterations), nil
}

func (s *iterationService) loadPair(ctx context.Context, slotID, submissionID uint) (models.AnswerSlot, models.Submission, error) {
	slot, err := s.assignments.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AnswerSlot{}, models.Submission{}, ErrSlotNotFound
		}
		return models.AnswerSlot{}, models.Submission{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AnswerSlot{}, models.Submission{}, ErrSubmissionNotFound
		}
		return models.AnswerSlot{}, models.Submission{}, err
	}

	if slot.AssignmentID != submission.AssignmentID {
		return models.AnswerSlot{}, models.Submission{}, ErrSlotNotFound
	}

	return slot, submission, nil
}

// writableIteration resolves the iteration the learner may write into.
// Writes to an already-submitted iteration require opening a new one first.
func (s *iterationService) writableIteration(ctx context.Context, slot models.AnswerSlot, submission models.Submission, number int, actor Actor) (models.Iteration, error) {
	if actor.Role == RoleStudent && actor.ID != submission.StudentID {
		return models.Iteration{}, ErrUnauthorized
	}

	if !submission.CanBeEditedByStudent() {
		return models.Iteration{}, ErrSubmissionLocked
	}

	iteration, err := s.iterations.GetByNumber(ctx, slot.ID, submission.ID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Iteration{}, ErrIterationNotFound
		}
		return models.Iteration{}, err
	}

	if iteration.IsSubmitted {
		return models.Iteration{}, ErrSlotLocked
	}

	return iteration, nil
}

func (s *iterationService) markSubmitted(ctx context.Context, iteration models.Iteration) (dto.IterationResponse, error) {
	submittedAt := s.now()
	iteration.IsSubmitted = true
	iteration.SubmittedAt = &submittedAt

	if err := s.iterations.Update(ctx, &iteration); err != nil {
		return dto.IterationResponse{}, err
	}

	s.logger.Info().
		Uint("slot_id", iteration.SlotID).
		Uint("submission_id", iteration.SubmissionID).
		Int("iteration_number", iteration.IterationNumber).
		Msg("iteration submitted")

	return dto.NewIterationResponse(iteration), nil
}

func validateUploadType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain", "image/png", "image/jpeg"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
