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

var _ repository.PostRepository = (*PostStore)(nil)

type PostStore struct {
	conn *sql.DB
}

// postSelect joins the author so read views can embed a model.Author
// without a second query per post.
const postSelect = `SELECT p.id, p.title, p.description, p.category, p.user_id,
	p.image_url, p.image_public_id, p.created_at, p.updated_at,
	u.username, u.profile_photo_url, u.profile_photo_public_id
	FROM posts p JOIN users u ON u.id = p.user_id`

func scanPost(row rowScanner, p *model.Post) error {
	author := &model.Author{}
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.UserID,
		&p.Image.URL,
		&p.Image.PublicID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&author.Username,
		&author.ProfilePhoto.URL,
		&author.ProfilePhoto.PublicID,
	)
	if err != nil {
		return err
	}
	author.ID = p.UserID
	p.Author = author
	p.Likes = []string{}
	return nil
}

// Create inserts a post. The likes list always starts empty.
func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.Likes = []string{}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, description, category, user_id,
			image_url, image_public_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Description,
		post.Category,
		post.UserID,
		post.Image.URL,
		post.Image.PublicID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

func (s *PostStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post

	err := scanPost(s.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id), &post)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("post not found")
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	posts := []model.Post{post}
	if err := s.loadLikes(ctx, posts); err != nil {
		return nil, err
	}

	return &posts[0], nil
}

// List returns posts newest first.
//
// SQLite only accepts OFFSET after a LIMIT, so "no limit" is written as
// LIMIT -1.
func (s *PostStore) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	query := postSelect
	var args []any

	if filter.Category != "" {
		query += ` WHERE p.category = ?`
		args = append(args, filter.Category)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	return s.query(ctx, query, args...)
}

func (s *PostStore) ListByUser(ctx context.Context, userID string) ([]model.Post, error) {
	return s.query(ctx,
		postSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC`,
		userID,
	)
}

func (s *PostStore) query(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}

	// rows is closed before the likes query runs (see New on in-memory pools).
	if err := s.loadLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// loadLikes fills Likes for every post with a single IN (...) query.
func (s *PostStore) loadLikes(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	index := make(map[string]int, len(posts))
	args := make([]any, 0, len(posts))
	for i := range posts {
		index[posts[i].ID] = i
		args = append(args, posts[i].ID)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT post_id, user_id FROM post_likes
		 WHERE post_id IN (`+placeholders(len(args))+`)
		 ORDER BY created_at, user_id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return fmt.Errorf("sqlite: scanning like row: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Likes = append(posts[i].Likes, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating like rows: %w", err)
	}
	return nil
}

func (s *PostStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// Update writes title, description, category and image.
func (s *PostStore) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, description = ?, category = ?,
			image_url = ?, image_public_id = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Description,
		post.Category,
		post.Image.URL,
		post.Image.PublicID,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	return checkAffected(result, func() error { return apperror.NotFoundMessage("post not found") })
}

// Delete removes a post with its likes and comments.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning post delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting likes of post %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting comments of post %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	if err := checkAffected(result, func() error { return apperror.NotFoundMessage("post not found") }); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing post delete: %w", err)
	}
	return nil
}

// ToggleLike removes the (post, user) like if it exists, otherwise adds it.
// The composite primary key keeps a user from liking a post twice.
func (s *PostStore) ToggleLike(ctx context.Context, postID, userID string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning like toggle: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE id = ?`, postID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking post %s: %w", postID, err)
	}
	if exists == 0 {
		return apperror.NotFoundMessage("post not found")
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: removing like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
			postID, userID, time.Now())
		if err != nil {
			return fmt.Errorf("sqlite: adding like: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing like toggle: %w", err)
	}
	return nil
}
