package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-backend/internal/service"
)

// CategoryHandler serves /api/categories.
type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

type categoryRequest struct {
	Title string `json:"title"`
}

type categoryDeletedResponse struct {
	Message    string `json:"message"`
	CategoryID string `json:"categoryId"`
}

// HTTP: POST /api/categories (admin)
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.categories.Create(r.Context(), claims.UserID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HTTP: DELETE /api/categories/{id} (admin)
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := h.categories.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryDeletedResponse{Message: msg, CategoryID: id})
}
