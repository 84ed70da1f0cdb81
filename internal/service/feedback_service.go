package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/pkg/notify"
)

// FeedbackService appends evaluator feedback to iterations. Entries are
// immutable; corrections are new entries, and the newest entry drives the
// iteration gate.
type FeedbackService interface {
	Add(ctx context.Context, iterationID uint, payload dto.FeedbackCreateRequest, actor Actor) (dto.FeedbackResponse, error)
	Latest(ctx context.Context, iterationID uint) (dto.FeedbackResponse, error)
	ListByIteration(ctx context.Context, iterationID uint) ([]dto.FeedbackResponse, error)
}

type feedbackService struct {
	feedback   repository.FeedbackRepository
	iterations repository.IterationRepository
	validator  *validator.Validate
	notifier   notify.Notifier
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewFeedbackService constructs a FeedbackService instance.
func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	iterationRepo repository.IterationRepository,
	validate *validator.Validate,
	notifier notify.Notifier,
	logger zerolog.Logger,
) FeedbackService {
	return &feedbackService{
		feedback:   feedbackRepo,
		iterations: iterationRepo,
		validator:  validate,
		notifier:   notifier,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "feedback_service").Logger(),
		now:        time.Now,
	}
}

func (s *feedbackService) Add(ctx context.Context, iterationID uint, payload dto.FeedbackCreateRequest, actor Actor) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	if !actor.IsEvaluator() {
		return dto.FeedbackResponse{}, ErrUnauthorized
	}

	iteration, err := s.iterations.GetByID(ctx, iterationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrIterationNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if text == "" {
		return dto.FeedbackResponse{}, ErrEmptyContent
	}

	entry := models.FeedbackEntry{
		IterationID: iteration.ID,
		Text:        text,
		AllowsNext:  *payload.AllowsNext,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now(),
	}

	if err := s.feedback.Create(ctx, &entry); err != nil {
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().
		Uint("iteration_id", iteration.ID).
		Bool("allows_next", entry.AllowsNext).
		Msg("feedback recorded")

	s.notifier.Publish(ctx, notify.Event{
		Action:       "feedback.recorded",
		SubmissionID: iteration.SubmissionID,
		ActorID:      actor.ID,
		OccurredAt:   entry.CreatedAt,
		Metadata: map[string]interface{}{
			"iteration_id": iteration.ID,
			"allows_next":  entry.AllowsNext,
		},
	})

	return dto.NewFeedbackResponse(entry), nil
}

func (s *feedbackService) Latest(ctx context.Context, iterationID uint) (dto.FeedbackResponse, error) {
	entry, err := s.feedback.Latest(ctx, iterationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	return dto.NewFeedbackResponse(entry), nil
}

func (s *feedbackService) ListByIteration(ctx context.Context, iterationID uint) ([]dto.FeedbackResponse, error) {
	entries, err := s.feedback.ListByIteration(ctx, iterationID)
	if err != nil {
		return nil, err
	}

	return dto.NewFeedbackResponseSlice(entries), nil
}
