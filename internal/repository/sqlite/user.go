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

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore is the credential store.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, bio,
	profile_photo_url, profile_photo_public_id, is_admin, is_account_verified,
	created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, u *model.User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Bio,
		&u.ProfilePhoto.URL,
		&u.ProfilePhoto.PublicID,
		&u.IsAdmin,
		&u.IsAccountVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// Create inserts a new user and fills in ID and timestamps.
//
// There is deliberately no "SELECT ... WHERE email = ?" before the INSERT.
// Two concurrent registrations would both pass such a check. The UNIQUE
// index on users.email rejects the second INSERT instead, and we report it
// as a conflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Bio,
		user.ProfilePhoto.URL,
		user.ProfilePhoto.PublicID,
		user.IsAdmin,
		user.IsAccountVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := scanUser(s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	), &u)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// GetByEmail looks a user up by email. The column is COLLATE NOCASE, so the
// match is case-insensitive.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := scanUser(s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	), &u)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	return &u, nil
}

// List returns every user, newest first.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}

// MarkVerified sets is_account_verified and nothing else.
func (s *UserStore) MarkVerified(ctx context.Context, id string) error {
	return s.exec(ctx, id, "marking user verified",
		`UPDATE users SET is_account_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id)
}

// SetPassword replaces the password hash. Whoever could set it through a
// mailed link owns the mailbox, so the account is verified too.
func (s *UserStore) SetPassword(ctx context.Context, id, hash string) error {
	return s.exec(ctx, id, "setting password",
		`UPDATE users SET password_hash = ?, is_account_verified = 1, updated_at = ?
		 WHERE id = ?`,
		hash, time.Now(), id)
}

// UpdateProfile overwrites the non-nil fields of changes. COALESCE keeps the
// stored value for the nil ones inside the same statement.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, changes repository.ProfileChanges) error {
	return s.exec(ctx, id, "updating profile",
		`UPDATE users SET
			username = COALESCE(?, username),
			bio = COALESCE(?, bio),
			password_hash = COALESCE(?, password_hash),
			updated_at = ?
		 WHERE id = ?`,
		nullable(changes.Username),
		nullable(changes.Bio),
		nullable(changes.PasswordHash),
		time.Now(),
		id)
}

// SetProfilePhoto stores photo and returns the previous one, read in the
// same transaction so two concurrent uploads each get back the photo they
// actually replaced.
func (s *UserStore) SetProfilePhoto(ctx context.Context, id string, photo model.Image) (model.Image, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Image{}, fmt.Errorf("sqlite: beginning photo update: %w", err)
	}
	defer tx.Rollback()

	var previous model.Image
	err = tx.QueryRowContext(ctx,
		`SELECT profile_photo_url, profile_photo_public_id FROM users WHERE id = ?`, id,
	).Scan(&previous.URL, &previous.PublicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Image{}, apperror.NotFound("user", id)
		}
		return model.Image{}, fmt.Errorf("sqlite: reading photo of user %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET profile_photo_url = ?, profile_photo_public_id = ?, updated_at = ?
		 WHERE id = ?`,
		photo.URL, photo.PublicID, time.Now(), id)
	if err != nil {
		return model.Image{}, fmt.Errorf("sqlite: setting photo of user %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Image{}, fmt.Errorf("sqlite: committing photo update: %w", err)
	}
	return previous, nil
}

func (s *UserStore) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return s.exec(ctx, id, "setting admin flag",
		`UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`,
		isAdmin, time.Now(), id)
}

// exec runs a single-row UPDATE and reports NotFound when no row matched.
func (s *UserStore) exec(ctx context.Context, id, action, query string, args ...any) error {
	result, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: %s for user %s: %w", action, id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("user", id) })
}

// nullable passes nil for a nil pointer and the string otherwise.
func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Delete removes a user and everything they own in one transaction:
// likes and comments on their posts, their own likes and comments, their
// posts, their verification token, and finally the user row.
//
// The foreign keys also cascade, but we delete explicitly so the outcome
// does not depend on the foreign_keys pragma being active.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user delete: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM post_likes WHERE post_id IN (SELECT id FROM posts WHERE user_id = ?)`,
		`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE user_id = ?)`,
		`DELETE FROM post_likes WHERE user_id = ?`,
		`DELETE FROM comments WHERE user_id = ?`,
		`DELETE FROM posts WHERE user_id = ?`,
		`DELETE FROM verification_tokens WHERE user_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("sqlite: deleting data of user %s: %w", id, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if err := checkAffected(result, func() error { return apperror.NotFound("user", id) }); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user delete: %w", err)
	}
	return nil
}
