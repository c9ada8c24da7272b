package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// PromoteAdmin grants admin rights to the account registered with email.
// It is run from the command line, not over HTTP. The user has to log in
// again to get a session carrying the flag.
func PromoteAdmin(ctx context.Context, users repository.UserRepository, email string) (*model.User, error) {
	email = strings.TrimSpace(email)

	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("no user with email " + email)
		}
		return nil, fmt.Errorf("service/admin: looking up %s: %w", email, err)
	}
	if user.IsAdmin {
		return nil, apperror.ConflictMessage(email + " is already an admin")
	}

	if err := users.SetAdmin(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("service/admin: promoting %s: %w", user.ID, err)
	}
	user.IsAdmin = true
	return user, nil
}
