package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
	"github.com/sakif/blog-backend/internal/validate"
)

const MsgCommentDeleted = "comment has been deleted"

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		logger:   logger,
	}
}

// Create adds a comment to an existing post. The author's current username
// is copied onto the comment.
func (s *CommentService) Create(ctx context.Context, userID, postID, text string) (*model.Comment, error) {
	postID = strings.TrimSpace(postID)
	text = strings.TrimSpace(text)

	if err := validate.NewComment(postID, text); err != nil {
		return nil, err
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: loading author %s: %w", userID, err)
	}

	comment := &model.Comment{
		PostID:   postID,
		UserID:   userID,
		Username: user.Username,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment: %w", err)
	}
	return s.comments.GetByID(ctx, comment.ID)
}

func (s *CommentService) List(ctx context.Context) ([]model.Comment, error) {
	comments, err := s.comments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments: %w", err)
	}
	return comments, nil
}

// Update edits the text. Only the author may do this.
func (s *CommentService) Update(ctx context.Context, caller *auth.Claims, id, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if err := validate.CommentText(text); err != nil {
		return nil, err
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.UserID != comment.UserID {
		return nil, apperror.Forbidden("access denied, only user himself can edit his comment")
	}

	comment.Text = text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: updating %s: %w", id, err)
	}
	return s.comments.GetByID(ctx, id)
}

// Delete removes the comment. The author and admins may do this.
func (s *CommentService) Delete(ctx context.Context, caller *auth.Claims, id string) (string, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !caller.IsAdmin && caller.UserID != comment.UserID {
		return "", apperror.Forbidden("access denied, not allowed")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("service/comment: deleting %s: %w", id, err)
	}
	return MsgCommentDeleted, nil
}
