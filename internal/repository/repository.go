// Package repository declares the storage contracts used by the service layer.
//
// Implementations must enforce uniqueness themselves (unique indexes) and
// report violations as apperror.ErrConflict, and report missing rows as
// apperror.ErrNotFound. Services rely on this instead of check-then-write.
package repository

import (
	"context"

	"github.com/sakif/blog-backend/internal/model"
)

// PostFilter narrows a post listing. A zero Limit means "no limit".
type PostFilter struct {
	Category string
	Limit    int
	Offset   int
}

// ProfileChanges lists the profile columns to overwrite. Nil fields keep
// their stored value.
type ProfileChanges struct {
	Username     *string
	Bio          *string
	PasswordHash *string
}

// UserRepository is the credential store.
//
// There is no whole-row update. Each write names the columns it changes, so
// a flow that read the user earlier (e.g. a photo upload waiting on the
// media host) can't put back a password that was reset in the meantime.
type UserRepository interface {
	// Create fails with ErrConflict when the email is already registered.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)

	MarkVerified(ctx context.Context, id string) error
	// SetPassword replaces the hash and marks the account verified.
	SetPassword(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, id string, changes ProfileChanges) error
	// SetProfilePhoto stores photo and returns the one it replaced.
	SetProfilePhoto(ctx context.Context, id string, photo model.Image) (model.Image, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) error

	// Delete removes the user together with everything they own.
	Delete(ctx context.Context, id string) error
}

// VerificationTokenRepository stores single-use verification/reset tokens.
type VerificationTokenRepository interface {
	// Create fails with ErrConflict when the user already has a token.
	Create(ctx context.Context, token *model.VerificationToken) error
	GetByUserID(ctx context.Context, userID string) (*model.VerificationToken, error)
	// Find matches the exact (userID, token) pair.
	Find(ctx context.Context, userID, token string) (*model.VerificationToken, error)
	Delete(ctx context.Context, id string) error
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, filter PostFilter) ([]model.Post, error)
	ListByUser(ctx context.Context, userID string) ([]model.Post, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	// ToggleLike adds userID to the post's likes, or removes it if present.
	ToggleLike(ctx context.Context, postID, userID string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	List(ctx context.Context) ([]model.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	Update(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, id string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Delete(ctx context.Context, id string) error
}
