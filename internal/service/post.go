package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/media"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
	"github.com/sakif/blog-backend/internal/validate"
)

// PostsPerPage is the page size of ?pageNumber listings.
const PostsPerPage = 3

const MsgPostDeleted = "post has been deleted successfully"

type NewPost struct {
	Title       string
	Description string
	Category    string
}

// PostUpdate carries the optional fields of a post update.
type PostUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// PostQuery selects a listing. PageNumber starts at 1; zero means all posts.
type PostQuery struct {
	PageNumber int
	Category   string
}

type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	media    media.Host
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	host media.Host,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		media:    host,
		logger:   logger,
	}
}

// Create stores the image first and then the post. If the post can't be
// saved the uploaded image is removed again.
func (s *PostService) Create(ctx context.Context, userID string, in NewPost, image Upload) (*model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	if err := validate.NewPost(in.Title, in.Description, in.Category); err != nil {
		return nil, err
	}

	img, err := s.media.Upload(ctx, image.Name, image.ContentType, image.Body)
	if err != nil {
		return nil, apperror.Upstream(msgUploadFailed, err)
	}

	post := &model.Post{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		UserID:      userID,
		Image:       img,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.discard(ctx, img.PublicID)
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created", slog.String("postID", post.ID), slog.String("userID", userID))
	return s.posts.GetByID(ctx, post.ID)
}

// List returns posts newest first. With a page number it returns that page
// of PostsPerPage posts; the category filter applies either way.
func (s *PostService) List(ctx context.Context, q PostQuery) ([]model.Post, error) {
	filter := repository.PostFilter{Category: strings.TrimSpace(q.Category)}
	if q.PageNumber > 0 {
		filter.Limit = PostsPerPage
		filter.Offset = (q.PageNumber - 1) * PostsPerPage
	}

	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) Count(ctx context.Context) (int, error) {
	n, err := s.posts.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/post: counting posts: %w", err)
	}
	return n, nil
}

// Get returns the post with its comments, newest first.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing comments of %s: %w", id, err)
	}
	post.Comments = comments
	return post, nil
}

// Update edits the text fields. Only the author may do this.
func (s *PostService) Update(ctx context.Context, caller *auth.Claims, id string, in PostUpdate) (*model.Post, error) {
	for _, f := range []*string{in.Title, in.Description, in.Category} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if err := validate.PostUpdate(in.Title, in.Description, in.Category); err != nil {
		return nil, err
	}

	post, err := s.ownedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Description != nil {
		post.Description = *in.Description
	}
	if in.Category != nil {
		post.Category = *in.Category
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating %s: %w", id, err)
	}
	return s.posts.GetByID(ctx, id)
}

// UpdateImage replaces the post image. Only the author may do this.
func (s *PostService) UpdateImage(ctx context.Context, caller *auth.Claims, id string, image Upload) (*model.Post, error) {
	post, err := s.ownedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	img, err := s.media.Upload(ctx, image.Name, image.ContentType, image.Body)
	if err != nil {
		return nil, apperror.Upstream(msgUploadFailed, err)
	}

	old := post.Image
	post.Image = img
	if err := s.posts.Update(ctx, post); err != nil {
		s.discard(ctx, img.PublicID)
		return nil, fmt.Errorf("service/post: saving image of %s: %w", id, err)
	}

	s.discard(ctx, old.PublicID)
	return s.posts.GetByID(ctx, id)
}

// Delete removes the post, its comments and likes, and its image. The author
// and admins may do this.
func (s *PostService) Delete(ctx context.Context, caller *auth.Claims, id string) (string, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !caller.IsAdmin && caller.UserID != post.UserID {
		return "", apperror.Forbidden("access denied, forbidden")
	}

	if err := s.media.Remove(ctx, post.Image.PublicID); err != nil {
		return "", apperror.Upstream(msgMediaRemoveError, err)
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("service/post: deleting %s: %w", id, err)
	}

	s.logger.Info("post deleted", slog.String("postID", id), slog.String("by", caller.UserID))
	return MsgPostDeleted, nil
}

// ToggleLike adds the user's like, or takes it back if it is already there.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (*model.Post, error) {
	if err := s.posts.ToggleLike(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID)
}

func (s *PostService) ownedPost(ctx context.Context, caller *auth.Claims, id string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.UserID != post.UserID {
		return nil, apperror.Forbidden("access denied, you are not allowed")
	}
	return post, nil
}

func (s *PostService) discard(ctx context.Context, publicID string) {
	if err := s.media.Remove(ctx, publicID); err != nil {
		s.logger.Warn("orphaned media file",
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
	}
}
