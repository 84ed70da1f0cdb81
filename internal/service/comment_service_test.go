package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
)

func TestCommentServiceOwnershipAndSanitization(t *testing.T) {
	db := setupWorkflowDB(t, "comment_owner")
	_, submission := seedWorkflow(t, db, models.SubmissionStatusSubmitted)

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewCommentService(
		repository.NewCommentRepository(db),
		repository.NewSubmissionRepository(db),
		validate,
		testLogger(),
	)

	owner := Actor{ID: submission.StudentID, Role: RoleStudent}
	stranger := Actor{ID: submission.StudentID + 50, Role: RoleStudent}
	teacher := Actor{ID: 2, Role: RoleTeacher}

	_, err := svc.Add(context.Background(), submission.ID, dto.CommentCreateRequest{Body: "is this due friday?"}, stranger)
	require.ErrorIs(t, err, ErrUnauthorized)

	created, err := svc.Add(context.Background(), submission.ID, dto.CommentCreateRequest{Body: "<img src=x>is this due friday?"}, owner)
	require.NoError(t, err)
	require.Equal(t, "is this due friday?", created.Body)
	require.Equal(t, RoleStudent, created.AuthorRole)

	_, err = svc.Add(context.Background(), submission.ID, dto.CommentCreateRequest{Body: "yes, friday"}, teacher)
	require.NoError(t, err)

	comments, err := svc.List(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	_, err = svc.Add(context.Background(), 777, dto.CommentCreateRequest{Body: "lost"}, teacher)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
