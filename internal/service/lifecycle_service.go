package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/pkg/notify"
)

// LifecycleService owns the overall status of one (assignment, learner)
// submission. Transition rules are fixed: learner hand-in, evaluator
// grading/return, administrative marks.
type LifecycleService interface {
	Submit(ctx context.Context, payload dto.SubmissionSubmitRequest, actor Actor) (dto.SubmissionResponse, error)
	UpdateStatus(ctx context.Context, submissionID uint, payload dto.SubmissionStatusRequest, actor Actor) (dto.SubmissionResponse, error)
	Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
}

type lifecycleService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	history     repository.StatusHistoryRepository
	validator   *validator.Validate
	notifier    notify.Notifier
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewLifecycleService constructs a LifecycleService instance.
func NewLifecycleService(
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	historyRepo repository.StatusHistoryRepository,
	validate *validator.Validate,
	notifier notify.Notifier,
	logger zerolog.Logger,
) LifecycleService {
	return &lifecycleService{
		submissions: submissionRepo,
		assignments: assignmentRepo,
		history:     historyRepo,
		validator:   validate,
		notifier:    notifier,
		logger:      logger.With().Str("component", "lifecycle_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/koreksi-go-api/internal/service/lifecycle"),
		now:         time.Now,
	}
}

// Submit is the learner hand-in action. On a fresh submission it moves
// not_graded to submitted; on a returned submission it moves back to
// not_graded, which also re-opens every per-slot iteration gate.
func (s *lifecycleService) Submit(ctx context.Context, payload dto.SubmissionSubmitRequest, actor Actor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if actor.Role != RoleStudent {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}

	ctx, span := s.tracer.Start(ctx, "lifecycle.submit", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.student_id", int64(actor.ID)),
	))
	defer span.End()

	if _, err := s.assignments.GetByID(ctx, payload.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "assignment_not_found")
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByAssignmentAndStudent(ctx, payload.AssignmentID, actor.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, err
		}
		submission = models.Submission{
			AssignmentID: payload.AssignmentID,
			StudentID:    actor.ID,
			Status:       models.SubmissionStatusNotGraded,
		}
		if err := s.submissions.Create(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	from := submission.Status
	submittedAt := s.now()

	switch submission.Status {
	case models.SubmissionStatusNotGraded, models.SubmissionStatusLate:
		submission.Status = models.SubmissionStatusSubmitted
		submission.SubmittedAt = &submittedAt
	case models.SubmissionStatusSubmitted:
		// Re-submit of already handed-in work refreshes the timestamp.
		submission.SubmittedAt = &submittedAt
	case models.SubmissionStatusReturned:
		submission.Status = models.SubmissionStatusNotGraded
	default:
		span.SetStatus(codes.Error, "submission_locked")
		return dto.SubmissionResponse{}, ErrSubmissionLocked
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.recordTransition(ctx, submission, from, nil, actor)
	span.SetAttributes(attribute.String("submission.status", submission.Status))

	reloaded, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(reloaded), nil
}

func (s *lifecycleService) UpdateStatus(ctx context.Context, submissionID uint, payload dto.SubmissionStatusRequest, actor Actor) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "lifecycle.update_status", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
		attribute.String("submission.target_status", payload.Status),
		attribute.Int64("actor.id", int64(actor.ID)),
	))
	defer span.End()

	if err := allowedActor(payload.Status, actor); err != nil {
		span.SetStatus(codes.Error, "unauthorized")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	from := submission.Status

	switch payload.Status {
	case models.SubmissionStatusGraded:
		if payload.Grade == nil {
			return dto.SubmissionResponse{}, fmt.Errorf("grade is required when marking as graded")
		}
		gradedAt := s.now()
		gradedBy := actor.ID
		submission.Status = models.SubmissionStatusGraded
		submission.Grade = payload.Grade
		submission.GradedBy = &gradedBy
		submission.GradedAt = &gradedAt
	case models.SubmissionStatusReturned:
		// The returner is stamped into graded_by; no grade is required.
		returnedBy := actor.ID
		submission.Status = models.SubmissionStatusReturned
		submission.GradedBy = &returnedBy
	case models.SubmissionStatusMissing, models.SubmissionStatusExcused, models.SubmissionStatusLate:
		submission.Status = payload.Status
	default:
		return dto.SubmissionResponse{}, fmt.Errorf("unsupported status %q", payload.Status)
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.recordTransition(ctx, submission, from, payload.Grade, actor)
	span.SetAttributes(attribute.String("submission.status", submission.Status))

	reloaded, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(reloaded), nil
}

func (s *lifecycleService) Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *lifecycleService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// allowedActor is the fixed allowed-actor predicate per transition. Grading
// and returning belong to evaluators; missing/excused/late are
// administrative overrides.
func allowedActor(status string, actor Actor) error {
	switch status {
	case models.SubmissionStatusGraded, models.SubmissionStatusReturned:
		if !actor.IsEvaluator() {
			return ErrUnauthorized
		}
	case models.SubmissionStatusMissing, models.SubmissionStatusExcused, models.SubmissionStatusLate:
		if !actor.IsAdmin() {
			return ErrUnauthorized
		}
	default:
		return ErrUnauthorized
	}

	return nil
}

func (s *lifecycleService) recordTransition(ctx context.Context, submission models.Submission, from string, grade *float64, actor Actor) {
	entry := models.StatusHistory{
		SubmissionID: submission.ID,
		FromStatus:   from,
		ToStatus:     submission.Status,
		Grade:        grade,
		ChangedBy:    actor.ID,
		CreatedAt:    s.now(),
	}
	if err := s.history.Create(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist status history")
	}

	s.notifier.Publish(ctx, notify.Event{
		Action:       "submission.status_changed",
		SubmissionID: submission.ID,
		ActorID:      actor.ID,
		OccurredAt:   entry.CreatedAt,
		Metadata: map[string]interface{}{
			"from": from,
			"to":   submission.Status,
		},
	})
}
