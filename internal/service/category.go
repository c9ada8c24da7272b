package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
	"github.com/sakif/blog-backend/internal/validate"
)

const MsgCategoryDeleted = "category has been deleted successfully"

// CategoryService manages the category list. Only admins reach Create and
// Delete; the routes enforce that.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *slog.Logger
}

func NewCategoryService(categories repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, userID, title string) (*model.Category, error) {
	title = strings.TrimSpace(title)
	if err := validate.CategoryTitle(title); err != nil {
		return nil, err
	}

	c := &model.Category{UserID: userID, Title: title}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("service/category: creating %q: %w", title, err)
	}
	s.logger.Info("category created", slog.String("title", title))
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) (string, error) {
	if err := s.categories.Delete(ctx, id); err != nil {
		return "", err
	}
	return MsgCategoryDeleted, nil
}
