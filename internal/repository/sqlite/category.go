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

var _ repository.CategoryRepository = (*CategoryStore)(nil)

type CategoryStore struct {
	conn *sql.DB
}

func (s *CategoryStore) Create(ctx context.Context, category *model.Category) error {
	category.ID = xid.New().String()
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		category.ID,
		category.UserID,
		category.Title,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating category: %w", err)
	}
	return nil
}

func (s *CategoryStore) GetByID(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("category not found")
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", id, err)
	}
	return &c, nil
}

// List returns categories in creation order.
func (s *CategoryStore) List(ctx context.Context) ([]model.Category, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM categories
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating category rows: %w", err)
	}
	return categories, nil
}

func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting category %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFoundMessage("category not found") })
}
