package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/service"
)

// PostHandler serves /api/posts.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postDeletedResponse struct {
	Message string `json:"message"`
	PostID  string `json:"postId"`
}

// caller returns the claims RequireAuth stored in the context.
func caller(r *http.Request) (*auth.Claims, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("no token provided, access denied")
	}
	return claims, nil
}

// HandleCreate publishes a post with its cover image.
//
// HTTP: POST /api/posts
// BODY: multipart/form-data with "image", "title", "description", "category"
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	img, err := readImage(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer img.Close()

	post, err := h.posts.Create(r.Context(), claims.UserID, service.NewPost{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}, img.Upload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleList lists posts newest first.
//
// HTTP: GET /api/posts?pageNumber=N&category=X
//
// A missing or malformed pageNumber lists every post.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := service.PostQuery{Category: r.URL.Query().Get("category")}
	if n, err := strconv.Atoi(r.URL.Query().Get("pageNumber")); err == nil && n > 0 {
		q.PageNumber = n
	}

	posts, err := h.posts.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HTTP: GET /api/posts/count
func (h *PostHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.posts.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HTTP: PUT /api/posts/{id}
// REQUEST BODY: {"title"?, "description"?, "category"?}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	claims, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req service.PostUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Update(r.Context(), claims, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HTTP: PUT /api/posts/update-image/{id}
// BODY: multipart/form-data with an "image" file
func (h *PostHandler) HandleUpdateImage(w http.ResponseWriter, r *http.Request) {
	claims, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	img, err := readImage(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer img.Close()

	post, err := h.posts.UpdateImage(r.Context(), claims, chi.URLParam(r, "id"), img.Upload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	msg, err := h.posts.Delete(r.Context(), claims, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postDeletedResponse{Message: msg, PostID: id})
}

// HTTP: PUT /api/posts/like/{id}
func (h *PostHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	claims, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.ToggleLike(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
