package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/media"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
	"github.com/sakif/blog-backend/internal/validate"
)

const (
	MsgProfileDeleted   = "your profile has been deleted"
	msgUploadFailed     = "failed to upload image, please try again later"
	msgMediaRemoveError = "failed to remove images, please try again later"
)

// Upload is an image received from a client.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// ProfileUpdate carries the optional fields of a profile update. A nil
// field is left as is.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
}

// UserService manages profiles. Authorization (self, admin) is enforced by
// the route middleware before these methods run.
type UserService struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	passwords *auth.PasswordService
	media     media.Host
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	posts repository.PostRepository,
	passwords *auth.PasswordService,
	host media.Host,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		posts:     posts,
		passwords: passwords,
		media:     host,
		logger:    logger,
	}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/user: counting users: %w", err)
	}
	return n, nil
}

// Get returns the public profile together with the user's posts.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing posts of %s: %w", id, err)
	}
	user.Posts = posts
	return user, nil
}

// Update changes username, bio and password. A new password goes through
// the same complexity policy as registration and is re-hashed.
func (s *UserService) Update(ctx context.Context, id string, in ProfileUpdate) (*model.User, error) {
	if in.Username != nil {
		trimmed := strings.TrimSpace(*in.Username)
		in.Username = &trimmed
	}
	if in.Bio != nil {
		trimmed := strings.TrimSpace(*in.Bio)
		in.Bio = &trimmed
	}

	if err := validate.ProfileUpdate(in.Username, in.Password, in.Bio); err != nil {
		return nil, err
	}

	changes := repository.ProfileChanges{Username: in.Username, Bio: in.Bio}
	if in.Password != nil {
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		changes.PasswordHash = &hash
	}

	if err := s.users.UpdateProfile(ctx, id, changes); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("service/user: updating %s: %w", id, err)
	}
	return s.getUser(ctx, id)
}

// UploadPhoto replaces the profile photo. The previous photo is removed
// from the media host after the new one is saved; a failed removal only
// leaves an orphaned file behind and is logged.
//
// Only the photo columns are written, so a password reset that finishes
// while the upload is in flight stays in effect.
func (s *UserService) UploadPhoto(ctx context.Context, id string, up Upload) (model.Image, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return model.Image{}, err
	}

	img, err := s.media.Upload(ctx, up.Name, up.ContentType, up.Body)
	if err != nil {
		return model.Image{}, apperror.Upstream(msgUploadFailed, err)
	}

	old, err := s.users.SetProfilePhoto(ctx, user.ID, img)
	if err != nil {
		s.discard(ctx, img.PublicID)
		return model.Image{}, fmt.Errorf("service/user: saving photo of %s: %w", id, err)
	}

	s.discard(ctx, old.PublicID)
	return img, nil
}

// Delete removes the profile photo and every post image from the media
// host, then deletes the user and everything they own. If the media host
// fails nothing is deleted, so the request can be retried.
func (s *UserService) Delete(ctx context.Context, id string) (string, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return "", err
	}

	posts, err := s.posts.ListByUser(ctx, id)
	if err != nil {
		return "", fmt.Errorf("service/user: listing posts of %s: %w", id, err)
	}

	ids := make([]string, 0, len(posts)+1)
	for _, p := range posts {
		ids = append(ids, p.Image.PublicID)
	}
	ids = append(ids, user.ProfilePhoto.PublicID)

	if err := s.media.RemoveMany(ctx, ids); err != nil {
		return "", apperror.Upstream(msgMediaRemoveError, err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("service/user: deleting %s: %w", id, err)
	}

	s.logger.Info("user deleted", slog.String("userID", id), slog.Int("posts", len(posts)))
	return MsgProfileDeleted, nil
}

func (s *UserService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("service/user: getting %s: %w", id, err)
	}
	return user, nil
}

// discard removes a file that is no longer referenced.
func (s *UserService) discard(ctx context.Context, publicID string) {
	if err := s.media.Remove(ctx, publicID); err != nil {
		s.logger.Warn("orphaned media file",
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
	}
}
