package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/service"
)

// UserHandler serves /api/users. Route middleware has already checked
// admin/self permissions by the time these run.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type photoResponse struct {
	Message      string      `json:"message"`
	ProfilePhoto model.Image `json:"profilePhoto"`
}

// HTTP: GET /api/users/profile (admin)
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HTTP: GET /api/users/count (admin)
//
// The body is the bare number.
func (h *UserHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HTTP: GET /api/users/profile/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HTTP: PUT /api/users/profile/{id} (self)
// REQUEST BODY: {"username"?, "password"?, "bio"?}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUploadPhoto replaces the caller's profile photo.
//
// HTTP: POST /api/users/profile/profile-photo-upload
// BODY: multipart/form-data with an "image" file
func (h *UserHandler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("no token provided, access denied"))
		return
	}

	img, err := readImage(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer img.Close()

	photo, err := h.users.UploadPhoto(r.Context(), userID, img.Upload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, photoResponse{
		Message:      "your profile photo uploaded successfully",
		ProfilePhoto: photo,
	})
}

// HTTP: DELETE /api/users/profile/{id} (self or admin)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := h.users.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("profile deleted", slog.String("userID", id))
	writeMessage(w, http.StatusOK, msg)
}
