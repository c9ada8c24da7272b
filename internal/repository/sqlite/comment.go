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

var _ repository.CommentRepository = (*CommentStore)(nil)

type CommentStore struct {
	conn *sql.DB
}

const commentSelect = `SELECT c.id, c.post_id, c.user_id, c.username, c.text,
	c.created_at, c.updated_at, u.profile_photo_url, u.profile_photo_public_id
	FROM comments c JOIN users u ON u.id = c.user_id`

func scanComment(row rowScanner, c *model.Comment) error {
	author := &model.Author{}
	err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.UserID,
		&c.Username,
		&c.Text,
		&c.CreatedAt,
		&c.UpdatedAt,
		&author.ProfilePhoto.URL,
		&author.ProfilePhoto.PublicID,
	)
	if err != nil {
		return err
	}
	author.ID = c.UserID
	author.Username = c.Username
	c.Author = author
	return nil
}

func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, user_id, username, text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.UserID,
		comment.Username,
		comment.Text,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment

	err := scanComment(s.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id), &c)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("comment not found")
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

// List returns every comment, newest first.
func (s *CommentStore) List(ctx context.Context) ([]model.Comment, error) {
	return s.query(ctx, commentSelect+` ORDER BY c.created_at DESC, c.id DESC`)
}

// ListByPost returns a post's comments, newest first.
func (s *CommentStore) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	return s.query(ctx,
		commentSelect+` WHERE c.post_id = ? ORDER BY c.created_at DESC, c.id DESC`,
		postID,
	)
}

func (s *CommentStore) query(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := scanComment(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}
	return comments, nil
}

// Update writes the comment text.
func (s *CommentStore) Update(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE comments SET text = ?, updated_at = ? WHERE id = ?`,
		comment.Text,
		comment.UpdatedAt,
		comment.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", comment.ID, err)
	}
	return checkAffected(result, func() error { return apperror.NotFoundMessage("comment not found") })
}

func (s *CommentStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFoundMessage("comment not found") })
}
