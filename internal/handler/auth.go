package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-backend/internal/service"
)

// AuthFlow is the account lifecycle the auth and password handlers drive.
// *service.AuthService implements it; tests substitute a stub.
type AuthFlow interface {
	Register(ctx context.Context, in service.RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	VerifyAccount(ctx context.Context, userID, token string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	CheckResetLink(ctx context.Context, userID, token string) (string, error)
	ResetPassword(ctx context.Context, userID, token, password string) (string, error)
}

var _ AuthFlow = (*service.AuthService)(nil)

// AuthHandler serves registration, login, email verification and the
// password reset links.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an unverified account, mail the link
//   - HandleLogin          → issue a session token for a verified account
//   - HandleVerify         → consume a verification link
//   - HandleResetLink      → mail a password reset link
//   - HandleCheckResetLink → tell the client whether a reset link is usable
//   - HandleResetPassword  → consume a reset link and set the new password
//
// None of these require a session.
type AuthHandler struct {
	flow   AuthFlow
	logger *slog.Logger
}

func NewAuthHandler(flow AuthFlow, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{flow: flow, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "...", "email": "...", "password": "..."}
// RESPONSE: 201 {"message": "We sent to you an email, please verify your email address"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.flow.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, msg)
}

// HandleLogin exchanges credentials for a session token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
// RESPONSE: {"id", "username", "email", "isAdmin", "profilePhoto", "token"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.flow.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user logged in", slog.String("userID", res.ID))
	writeJSON(w, http.StatusOK, res)
}

// HandleVerify consumes a verification link.
//
// HTTP: GET /api/auth/{userId}/verify/{token}
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	msg, err := h.flow.VerifyAccount(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// HandleResetLink mails a password reset link.
//
// HTTP: POST /api/password/reset-password-link
// REQUEST BODY: {"email": "..."}
func (h *AuthHandler) HandleResetLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.flow.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// HandleCheckResetLink reports whether a reset link is usable. The client
// calls this before showing the new-password form.
//
// HTTP: GET /api/password/reset-password/{userId}/{token}
func (h *AuthHandler) HandleCheckResetLink(w http.ResponseWriter, r *http.Request) {
	msg, err := h.flow.CheckResetLink(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// HandleResetPassword sets a new password through a reset link.
//
// HTTP: POST /api/password/reset-password/{userId}/{token}
// REQUEST BODY: {"password": "..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.flow.ResetPassword(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}
