package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/observability"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/pkg/notify"
)

// ApprovalService records administrative verification decisions over a
// submission's full record. Decisions are append-only; recording a new one
// demotes the previous current record in the same transaction.
type ApprovalService interface {
	Record(ctx context.Context, submissionID uint, payload dto.ApprovalCreateRequest, actor Actor) (dto.ApprovalResponse, error)
	History(ctx context.Context, submissionID uint) ([]dto.ApprovalResponse, error)
}

type approvalService struct {
	approvals   repository.ApprovalRepository
	submissions repository.SubmissionRepository
	detector    ActivityService
	validator   *validator.Validate
	notifier    notify.Notifier
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewApprovalService constructs an ApprovalService instance.
func NewApprovalService(
	approvalRepo repository.ApprovalRepository,
	submissionRepo repository.SubmissionRepository,
	detector ActivityService,
	validate *validator.Validate,
	notifier notify.Notifier,
	logger zerolog.Logger,
) ApprovalService {
	return &approvalService{
		approvals:   approvalRepo,
		submissions: submissionRepo,
		detector:    detector,
		validator:   validate,
		notifier:    notifier,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "approval_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/koreksi-go-api/internal/service/approval"),
		now:         time.Now,
	}
}

func (s *approvalService) Record(ctx context.Context, submissionID uint, payload dto.ApprovalCreateRequest, actor Actor) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	if !actor.IsAdmin() {
		return dto.ApprovalResponse{}, ErrUnauthorized
	}

	ctx, span := s.tracer.Start(ctx, "approval.record", trace.WithAttributes(
		attribute.Int64("approval.submission_id", int64(submissionID)),
		attribute.String("approval.status", payload.Status),
		attribute.Int64("approval.actor_id", int64(actor.ID)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.ApprovalResponse{}, ErrSubmissionNotFound
		}
		return dto.ApprovalResponse{}, err
	}

	// The watermark for trigger detection is the previous current decision,
	// or the submission's creation when this is the first one.
	watermark := submission.CreatedAt
	if current, err := s.approvals.Current(ctx, submissionID); err == nil {
		watermark = current.ApprovalDate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ApprovalResponse{}, err
	}

	events := s.detector.DetectSince(ctx, submissionID, watermark)
	reason := TriggerReason(events)

	feedback := ""
	if payload.Feedback != nil {
		feedback = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Feedback))
	}

	record := models.ApprovalRecord{
		SubmissionID:  submissionID,
		Status:        payload.Status,
		Feedback:      feedback,
		ApprovedBy:    actor.ID,
		ApprovalDate:  s.now(),
		TriggerReason: reason,
	}

	if err := s.approvals.RecordCurrent(ctx, &record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another decision landed between the read and the flip; retry
			// the atomic step once before surfacing a conflict.
			if retryErr := s.approvals.RecordCurrent(ctx, &record); retryErr != nil {
				span.SetStatus(codes.Error, "approval_conflict")
				return dto.ApprovalResponse{}, ErrConcurrentModification
			}
		} else {
			span.RecordError(err)
			return dto.ApprovalResponse{}, err
		}
	}

	observability.ApprovalDecisions().WithLabelValues(record.Status).Inc()

	s.logger.Info().
		Uint("submission_id", submissionID).
		Str("status", record.Status).
		Str("trigger_reason", reason).
		Msg("approval recorded")

	s.notifier.Publish(ctx, notify.Event{
		Action:       "submission.approval_recorded",
		SubmissionID: submissionID,
		ActorID:      actor.ID,
		OccurredAt:   record.ApprovalDate,
		Metadata: map[string]interface{}{
			"status":         record.Status,
			"trigger_reason": reason,
		},
	})

	span.SetAttributes(attribute.String("approval.trigger_reason", reason))

	return dto.NewApprovalResponse(record), nil
}

func (s *approvalService) History(ctx context.Context, submissionID uint) ([]dto.ApprovalResponse, error) {
	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	records, err := s.approvals.History(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	return dto.NewApprovalResponseSlice(records), nil
}
