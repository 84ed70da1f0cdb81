package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/observability"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/internal/rubric"
)

// ActivitySource reports the events one record family produced after the
// watermark. Each family (feedback, iterations, rubric evaluations, status
// history, comments) implements this once, and the detector composes them.
type ActivitySource interface {
	Family() string
	EventsSince(ctx context.Context, submissionID uint, watermark time.Time) ([]dto.ActivityEvent, error)
}

// ActivityService is the read-only staleness detector. It never mutates
// approval state; it only reports what happened after a watermark.
type ActivityService interface {
	DetectSince(ctx context.Context, submissionID uint, watermark time.Time) []dto.ActivityEvent
	Report(ctx context.Context, submissionID uint, since *time.Time) (dto.ActivityReportResponse, error)
}

type activityService struct {
	sources     []ActivitySource
	submissions repository.SubmissionRepository
	approvals   repository.ApprovalRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewActivityService composes the staleness detector from activity sources.
func NewActivityService(
	sources []ActivitySource,
	submissionRepo repository.SubmissionRepository,
	approvalRepo repository.ApprovalRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) ActivityService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &activityService{
		sources:     sources,
		submissions: submissionRepo,
		approvals:   approvalRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "activity_service").Logger(),
	}
}

// DetectSince scans every record family for entries strictly newer than the
// watermark and returns them ordered newest first. A failing family degrades
// to a single "unknown activity" marker instead of aborting the scan.
func (s *activityService) DetectSince(ctx context.Context, submissionID uint, watermark time.Time) []dto.ActivityEvent {
	start := time.Now()
	defer func() {
		observability.StalenessScanLatency().Observe(time.Since(start).Seconds())
	}()

	events := make([]dto.ActivityEvent, 0)
	for _, source := range s.sources {
		found, err := source.EventsSince(ctx, submissionID, watermark)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("family", source.Family()).
				Uint("submission_id", submissionID).
				Msg("activity source failed, degrading to unknown")
			events = append(events, dto.ActivityEvent{
				Kind:         source.Family(),
				Timestamp:    watermark,
				Summary:      "unknown activity",
				CorrelatesTo: fmt.Sprintf("%s:unknown", source.Family()),
			})
			continue
		}
		events = append(events, found...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	return events
}

// TriggerReason summarizes a detector run as the distinct event kinds in
// order of appearance, for stamping onto the next approval record.
func TriggerReason(events []dto.ActivityEvent) string {
	seen := make(map[string]struct{}, len(events))
	kinds := make([]string, 0, len(events))
	for _, event := range events {
		if _, ok := seen[event.Kind]; ok {
			continue
		}
		seen[event.Kind] = struct{}{}
		kinds = append(kinds, event.Kind)
	}

	return strings.Join(kinds, ", ")
}

func (s *activityService) Report(ctx context.Context, submissionID uint, since *time.Time) (dto.ActivityReportResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityReportResponse{}, ErrSubmissionNotFound
		}
		return dto.ActivityReportResponse{}, err
	}

	watermark := submission.CreatedAt
	if current, err := s.approvals.Current(ctx, submissionID); err == nil {
		watermark = current.ApprovalDate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ActivityReportResponse{}, err
	}

	// Caller-supplied watermarks bypass the cache so the report stays a pure
	// function of the requested bound.
	cacheable := since == nil
	if since != nil {
		watermark = *since
	}

	cacheKey := fmt.Sprintf("koreksi:activity:%d:%d", submissionID, watermark.UnixNano())
	if cacheable && s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.ActivityReportResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				return response, nil
			}
		}
	}

	events := s.DetectSince(ctx, submissionID, watermark)

	response := dto.ActivityReportResponse{
		SubmissionID:        submissionID,
		Watermark:           watermark,
		Events:              events,
		NeedsReverification: submission.IsApproved() && len(events) > 0,
	}

	if cacheable && s.cache != nil {
		if encoded, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache activity report")
			}
		}
	}

	return response, nil
}

// feedbackActivitySource reports evaluator feedback entries.
type feedbackActivitySource struct {
	repo repository.FeedbackRepository
}

// NewFeedbackActivitySource builds the feedback family source.
func NewFeedbackActivitySource(repo repository.FeedbackRepository) ActivitySource {
	return &feedbackActivitySource{repo: repo}
}

func (s *feedbackActivitySource) Family() string { return dto.ActivityKindFeedback }

func (s *feedbackActivitySource) EventsSince(ctx context.Context, submissionID uint, watermark time.Time) ([]dto.ActivityEvent, error) {
	entries, err := s.repo.ListSince(ctx, submissionID, watermark)
	if err != nil {
		return nil, err
	}

	events := make([]dto.ActivityEvent, 0, len(entries))
	for _, entry := range entries {
		events = append(events, dto.ActivityEvent{
			Kind:         dto.ActivityKindFeedback,
			Timestamp:    entry.CreatedAt,
			ActorID:      entry.CreatedBy,
			Summary:      fmt.Sprintf("feedback on iteration %d", entry.IterationID),
			CorrelatesTo: fmt.Sprintf("feedback:%d", entry.ID),
		})
	}

	return events, nil
}

// iterationActivitySource reports new and updated answer versions, split
// into the file and question/field families by slot kind.
type iterationActivitySource struct {
	repo repository.IterationRepository
}

// NewIterationActivitySource builds the iteration family source.
func NewIterationActivitySource(repo repository.IterationRepository) ActivitySource {
	return &iterationActivitySource{repo: repo}
}

func (s *iterationActivitySource) Family() string { return dto.ActivityKindIteration }

func (s *iterationActivitySource) EventsSince(ctx context.Context, submissionID uint, watermark time.Time) ([]dto.ActivityEvent, error) {
	iterations, err := s.repo.ListSince(ctx, submissionID, watermark)
	if err != nil {
		return nil, err
	}

	events := make([]dto.ActivityEvent, 0, len(iterations))
	for _, iteration := range iterations {
		kind := dto.ActivityKindIteration
		if iteration.Slot.IsFile() {
			kind = dto.ActivityKindFileIteration
		}
		events = append(events, dto.ActivityEvent{
			Kind:         kind,
			Timestamp:    iteration.UpdatedAt,
			Summary:      fmt.Sprintf("iteration %d on slot %d", iteration.IterationNumber, iteration.SlotID),
			CorrelatesTo: fmt.Sprintf("iteration:%d", iteration.ID),
		})
	}

	return events, nil
}

// rubricActivitySource reports evaluation rows written by the external
// scoring engine.
type rubricActivitySource struct {
	rubrics rubric.Service
}

// NewRubricActivitySource builds the rubric evaluation family source.
func NewRubricActivitySource(rubrics rubric.Service) ActivitySource {
	return &rubricActivitySource{rubrics: rubrics}
}

func (s *rubricActivitySource) Family() string { return dto.ActivityKindRubric }

func (s *rubricActivitySource) EventsSince(ctx context.Context, submissionID uint, watermark time.Time) ([]dto.ActivityEvent, error) {
	evaluations, err := s.rubrics.EvaluationsFor(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	events := make([]dto.ActivityEvent, 0, len(evaluations))
	for _, evaluation := range evaluations {
		if !evaluation.UpdatedAt.After(watermark) {
			continue
		}
		events = append(events, dto.ActivityEvent{
			Kind:         dto.ActivityKindRubric,
			Timestamp:    evaluation.UpdatedAt,
			ActorID:      evaluation.EvaluatedBy,
			Summary:      fmt.Sprintf("rubric %d scored %.1f", evaluation.RubricID, evaluation.Score),
			CorrelatesTo: fmt.Sprintf("rubric_evaluation:%d", evaluation.ID),
		})
	}

	return events, nil
}

// statusActivitySource reports lifecycle transitions and grade changes.
type statusActivitySource struct {
	repo repository.StatusHistoryRepository
}

// NewStatusActivitySource builds the grade/status family source.
func NewStatusActivitySource(repo repository.StatusHistoryRepository) ActivitySource {
	return &statusActivitySource{repo: repo}
}

func (s *statusActivitySource) Family() string { return dto.ActivityKindStatusChange }

func (s *statusActivitySource) EventsSince(ctx context.Context, submissionID uint, watermark time.Time) ([]dto.ActivityEvent, error) {
	entries, err := s.repo.ListSince(ctx, submissionID, watermark)
	if err != nil {
		return nil, err
	}

	events := make([]dto.ActivityEvent, 0, len(entries))
	for _, entry := range entries {
		events = append(events, dto.ActivityEvent{
			Kind:         dto.ActivityKindStatusChange,
			Timestamp:    entry.CreatedAt,
			ActorID:      entry.ChangedBy,
			Summary:      fmt.Sprintf("status %s to %s", entry.FromStatus, entry.ToStatus),
			CorrelatesTo: fmt.Sprintf("status_change:%d", entry.ID),
		})
	}

	return events, nil
}

// commentActivitySource reports discussion comments.
type commentActivitySource struct {
	repo repository.CommentRepository
}

// NewCommentActivitySource builds the comment family source.
func NewCommentActivitySource(repo repository.CommentRepository) ActivitySource {
	return &commentActivitySource{repo: repo}
}

func (s *commentActivitySource) Family() string { return dto.ActivityKindComment }

func (s *commentActivitySource) EventsSince(ctx context.Context, submissionID uint, watermark time.Time) ([]dto.ActivityEvent, error) {
	comments, err := s.repo.ListSince(ctx, submissionID, watermark)
	if err != nil {
		return nil, err
	}

	events := make([]dto.ActivityEvent, 0, len(comments))
	for _, comment := range comments {
		events = append(events, dto.ActivityEvent{
			Kind:         dto.ActivityKindComment,
			Timestamp:    comment.CreatedAt,
			ActorID:      comment.AuthorID,
			Summary:      fmt.Sprintf("comment by %s", comment.AuthorRole),
			CorrelatesTo: fmt.Sprintf("comment:%d", comment.ID),
		})
	}

	return events, nil
}

// DefaultActivitySources wires every record family scanned by the detector.
func DefaultActivitySources(
	feedbackRepo repository.FeedbackRepository,
	iterationRepo repository.IterationRepository,
	historyRepo repository.StatusHistoryRepository,
	commentRepo repository.CommentRepository,
	rubrics rubric.Service,
) []ActivitySource {
	return []ActivitySource{
		NewFeedbackActivitySource(feedbackRepo),
		NewIterationActivitySource(iterationRepo),
		NewRubricActivitySource(rubrics),
		NewStatusActivitySource(historyRepo),
		NewCommentActivitySource(commentRepo),
	}
}
