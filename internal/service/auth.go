// Package service holds the business rules. Handlers translate HTTP into
// calls on these services; services talk to the stores through the
// repository interfaces and never see an http.Request.
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository, VerificationTokenRepository
//	                                         ↘ TokenService (JWT), mailer.Sender
//
// AUTH LIFECYCLE:
//
//	Register ──► user (unverified) + token ──► email "verify" link
//	Login (unverified) ──► reuse-or-create token ──► email again, refuse session
//	VerifyAccount(user, token) ──► token consumed, user verified
//	Login (verified) ──► session token
//	RequestPasswordReset ──► reuse-or-create token ──► email "reset" link
//	ResetPassword(user, token) ──► token consumed, new password, user verified
//
// Verification and reset share one token entity; a user has at most one
// outstanding token, which is reused until consumed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/mailer"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
	"github.com/sakif/blog-backend/internal/validate"
)

// Acknowledgment messages returned to clients.
const (
	MsgCheckEmail         = "We sent to you an email, please verify your email address"
	MsgAccountVerified    = "Your account verified"
	MsgResetLinkSent      = "We sent an email to reset password, Please check your email"
	MsgValidResetLink     = "Valid URL"
	MsgPasswordReset      = "Password reset successfully, please log in"
	msgUserExists         = "user already exist"
	msgResetUnknownEmail  = "User with given email does not exist!"
	msgEmailDeliveryError = "failed to send email, please try again later"
)

// AuthService runs registration, login, email verification and password reset.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      → credential store
//   - tokens     → verification token store
//   - sessions   → signs session JWTs
//   - passwords  → bcrypt hashing
//   - mail/links → notification gateway and the client URLs it embeds
type AuthService struct {
	users     repository.UserRepository
	tokens    repository.VerificationTokenRepository
	sessions  *auth.TokenService
	passwords *auth.PasswordService
	mail      mailer.Sender
	links     *mailer.Links
	logger    *slog.Logger

	// newSecret generates verification token values. Tests swap it for a
	// deterministic generator.
	newSecret func() (string, error)
}

func NewAuthService(
	users repository.UserRepository,
	tokens repository.VerificationTokenRepository,
	sessions *auth.TokenService,
	passwords *auth.PasswordService,
	mail mailer.Sender,
	links *mailer.Links,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		sessions:  sessions,
		passwords: passwords,
		mail:      mail,
		links:     links,
		logger:    logger,
		newSecret: auth.NewVerificationSecret,
	}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the public profile plus the session token. The password
// hash is never part of it.
type LoginResult struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	IsAdmin      bool        `json:"isAdmin"`
	ProfilePhoto model.Image `json:"profilePhoto"`
	Token        string      `json:"token"`
}

// Register creates an unverified account and emails a verification link.
// It does not log the user in.
//
// A duplicate email is caught by the store's unique index, not by a lookup
// beforehand, so two concurrent registrations can't both succeed.
//
// If the email can't be sent the account stays; logging in later resends it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := validate.Register(username, email, in.Password); err != nil {
		return "", err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		ProfilePhoto: model.Image{URL: model.DefaultProfilePhotoURL},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return "", apperror.ConflictMessage(msgUserExists)
		}
		return "", fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	if err := s.sendVerification(ctx, user); err != nil {
		return "", err
	}
	return MsgCheckEmail, nil
}

// Login checks credentials and issues a session for verified users.
//
// Unknown email and wrong password produce the same error so the response
// doesn't reveal which accounts exist. An unverified user gets the
// verification email again instead of a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)

	if err := validate.Login(email, password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	if !user.IsAccountVerified {
		if err := s.sendVerification(ctx, user); err != nil {
			return nil, err
		}
		return nil, apperror.Unverified(MsgCheckEmail)
	}

	token, err := s.sessions.Generate(user.ID, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for %s: %w", user.ID, err)
	}

	return &LoginResult{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		ProfilePhoto: user.ProfilePhoto,
		Token:        token,
	}, nil
}

// VerifyAccount consumes the user's token and marks the account verified.
// Any mismatch, including a token that was already used, is InvalidLink.
func (s *AuthService) VerifyAccount(ctx context.Context, userID, token string) (string, error) {
	user, t, err := s.resolveLink(ctx, userID, token)
	if err != nil {
		return "", err
	}

	if err := s.consume(ctx, t); err != nil {
		return "", err
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return "", fmt.Errorf("service/auth: verifying user %s: %w", user.ID, err)
	}

	s.logger.Info("account verified", slog.String("userID", user.ID))
	return MsgAccountVerified, nil
}

// RequestPasswordReset emails a reset link to a registered address.
//
// Unlike Login, an unknown email is reported as NotFound.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)

	if err := validate.ResetRequest(email); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.NotFoundMessage(msgResetUnknownEmail)
		}
		return "", fmt.Errorf("service/auth: looking up user: %w", err)
	}

	t, err := s.ensureToken(ctx, user.ID)
	if err != nil {
		return "", err
	}

	msg, err := mailer.ResetEmail(s.links.Reset(user.ID, t.Token))
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	if err := s.mail.Send(ctx, user.Email, msg.Subject, msg.HTML); err != nil {
		return "", apperror.Upstream(msgEmailDeliveryError, err)
	}

	return MsgResetLinkSent, nil
}

// CheckResetLink reports whether (userID, token) is a usable reset link.
// It changes nothing.
func (s *AuthService) CheckResetLink(ctx context.Context, userID, token string) (string, error) {
	if _, _, err := s.resolveLink(ctx, userID, token); err != nil {
		return "", err
	}
	return MsgValidResetLink, nil
}

// ResetPassword sets a new password through a reset link. The account also
// becomes verified, since the user just proved they own the mailbox. No
// session is issued.
func (s *AuthService) ResetPassword(ctx context.Context, userID, token, password string) (string, error) {
	if err := validate.NewPassword(password); err != nil {
		return "", err
	}

	user, t, err := s.resolveLink(ctx, userID, token)
	if err != nil {
		return "", err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return "", fmt.Errorf("service/auth: hashing password: %w", err)
	}

	if err := s.consume(ctx, t); err != nil {
		return "", err
	}

	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return "", fmt.Errorf("service/auth: saving new password for %s: %w", user.ID, err)
	}

	s.logger.Info("password reset", slog.String("userID", user.ID))
	return MsgPasswordReset, nil
}

// resolveLink loads the user and their matching token, or fails with
// InvalidLink.
func (s *AuthService) resolveLink(ctx context.Context, userID, token string) (*model.User, *model.VerificationToken, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.InvalidLink()
		}
		return nil, nil, fmt.Errorf("service/auth: looking up user %s: %w", userID, err)
	}

	t, err := s.tokens.Find(ctx, user.ID, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.InvalidLink()
		}
		return nil, nil, fmt.Errorf("service/auth: looking up token: %w", err)
	}

	return user, t, nil
}

// consume deletes t. When two requests race with the same token, only one
// delete succeeds; the other sees InvalidLink.
func (s *AuthService) consume(ctx context.Context, t *model.VerificationToken) error {
	if err := s.tokens.Delete(ctx, t.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.InvalidLink()
		}
		return fmt.Errorf("service/auth: consuming token: %w", err)
	}
	return nil
}

// ensureToken returns the user's outstanding token, creating one if there is
// none. If a concurrent request creates it first, the store rejects our
// insert with a conflict and we return theirs.
func (s *AuthService) ensureToken(ctx context.Context, userID string) (*model.VerificationToken, error) {
	existing, err := s.tokens.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up token for %s: %w", userID, err)
	}

	secret, err := s.newSecret()
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	t := &model.VerificationToken{UserID: userID, Token: secret}
	if err := s.tokens.Create(ctx, t); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			existing, err := s.tokens.GetByUserID(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("service/auth: re-reading token for %s: %w", userID, err)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("service/auth: creating token for %s: %w", userID, err)
	}

	return t, nil
}

// sendVerification makes sure the user has a token and mails the link.
func (s *AuthService) sendVerification(ctx context.Context, user *model.User) error {
	t, err := s.ensureToken(ctx, user.ID)
	if err != nil {
		return err
	}

	msg, err := mailer.VerificationEmail(s.links.Verification(user.ID, t.Token))
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	if err := s.mail.Send(ctx, user.Email, msg.Subject, msg.HTML); err != nil {
		s.logger.Error("verification email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream(msgEmailDeliveryError, err)
	}
	return nil
}
