package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

var _ repository.VerificationTokenRepository = (*TokenStore)(nil)

// TokenStore persists verification tokens.
type TokenStore struct {
	conn *sql.DB
}

// Create inserts a token for token.UserID.
//
// The unique index on user_id is what guarantees "at most one outstanding
// token per user": a second Create for the same user fails with
// apperror.ErrConflict and the caller re-reads the existing token.
func (s *TokenStore) Create(ctx context.Context, token *model.VerificationToken) error {
	token.ID = xid.New().String()
	token.CreatedAt = time.Now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO verification_tokens (id, user_id, token, created_at)
		 VALUES (?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.Token,
		token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("verification token", token.UserID)
		}
		return fmt.Errorf("sqlite: inserting verification token: %w", err)
	}

	return nil
}

func (s *TokenStore) GetByUserID(ctx context.Context, userID string) (*model.VerificationToken, error) {
	return s.getOne(ctx,
		`SELECT id, user_id, token, created_at FROM verification_tokens WHERE user_id = ?`,
		userID,
	)
}

// Find returns the token only if both the owner and the token string match.
func (s *TokenStore) Find(ctx context.Context, userID, token string) (*model.VerificationToken, error) {
	return s.getOne(ctx,
		`SELECT id, user_id, token, created_at FROM verification_tokens
		 WHERE user_id = ? AND token = ?`,
		userID, token,
	)
}

func (s *TokenStore) getOne(ctx context.Context, query string, args ...any) (*model.VerificationToken, error) {
	var t model.VerificationToken

	err := s.conn.QueryRowContext(ctx, query, args...).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("verification token not found")
		}
		return nil, fmt.Errorf("sqlite: getting verification token: %w", err)
	}

	return &t, nil
}

// Delete consumes a token. Deleting a token that no longer exists returns
// ErrNotFound, so two concurrent consumers cannot both succeed.
func (s *TokenStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM verification_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting verification token %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("verification token", id) })
}
