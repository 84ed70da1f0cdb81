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
)

// CommentService manages the discussion thread on a submission.
type CommentService interface {
	Add(ctx context.Context, submissionID uint, payload dto.CommentCreateRequest, actor Actor) (dto.CommentResponse, error)
	List(ctx context.Context, submissionID uint) ([]dto.CommentResponse, error)
}

type commentService struct {
	comments    repository.CommentRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(
	commentRepo repository.CommentRepository,
	submissionRepo repository.SubmissionRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) CommentService {
	return &commentService{
		comments:    commentRepo,
		submissions: submissionRepo,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "comment_service").Logger(),
		now:         time.Now,
	}
}

func (s *commentService) Add(ctx context.Context, submissionID uint, payload dto.CommentCreateRequest, actor Actor) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CommentResponse{}, ErrSubmissionNotFound
		}
		return dto.CommentResponse{}, err
	}

	if actor.Role == RoleStudent && actor.ID != submission.StudentID {
		return dto.CommentResponse{}, ErrUnauthorized
	}

	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if body == "" {
		return dto.CommentResponse{}, ErrEmptyContent
	}

	comment := models.Comment{
		SubmissionID: submission.ID,
		AuthorID:     actor.ID,
		AuthorRole:   actor.Role,
		Body:         body,
		CreatedAt:    s.now(),
	}

	if err := s.comments.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) List(ctx context.Context, submissionID uint) ([]dto.CommentResponse, error) {
	comments, err := s.comments.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, dto.NewCommentResponse(comment))
	}

	return responses, nil
}
