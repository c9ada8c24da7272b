// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects stores, services,
// handlers, middleware, and routes. It decides:
// - Which URL patterns map to which handler functions
// - What middleware (auth, rate limiting, id checks) runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go creates: Config, mail Sender, media Host → passed to New
//	New creates:     sqlite.DB → stores → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes) rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/handler"
	"github.com/sakif/blog-backend/internal/mailer"
	"github.com/sakif/blog-backend/internal/media"
	"github.com/sakif/blog-backend/internal/middleware"
	sqliteRepo "github.com/sakif/blog-backend/internal/repository/sqlite"
	"github.com/sakif/blog-backend/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string // path to the SQLite database file, or ":memory:"

	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	// ClientDomain prefixes the verification and reset links.
	ClientDomain string

	AuthRateLimit float64
	AuthRateBurst int

	// TrustedProxies are the CIDR ranges (or single addresses) of reverse
	// proxies whose client address headers are believed. Empty means the
	// socket address is always used.
	TrustedProxies []string

	// UploadDir is served at /uploads when set (local media driver).
	UploadDir string
}

// Gateways are the outside services the server talks to.
type Gateways struct {
	Mail  mailer.Sender
	Media media.Host
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). Start closes it on the way
// out, after in-flight requests have finished.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	sessions  *auth.TokenService
	passwords *auth.PasswordService
	gateways  Gateways
	proxies   []netip.Prefix
}

// New opens the database, builds the services and registers every route.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg Config, gw Gateways, logger *slog.Logger) (*Server, error) {
	if gw.Mail == nil || gw.Media == nil {
		return nil, errors.New("server: mail and media gateways are required")
	}

	sessions, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		sessions:  sessions,
		passwords: passwords,
		gateways:  gw,
		proxies:   proxies,
	}
	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// DB is the server's database, for administrative tasks run next to it.
func (s *Server) DB() *sqliteRepo.DB { return s.db }

// Close releases the database. Start calls it itself.
func (s *Server) Close() error { return s.db.Close() }

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/register                          → register (rate limited)
//	POST   /api/auth/login                             → login (rate limited)
//	GET    /api/auth/{userId}/verify/{token}           → verify email (rate limited)
//	POST   /api/password/reset-password-link           → mail reset link (rate limited)
//	GET    /api/password/reset-password/{userId}/{token} → check reset link (rate limited)
//	POST   /api/password/reset-password/{userId}/{token} → reset password (rate limited)
//
//	GET    /api/users/profile                 admin
//	GET    /api/users/count                   admin
//	POST   /api/users/profile/profile-photo-upload  signed in
//	GET    /api/users/profile/{id}            public
//	PUT    /api/users/profile/{id}            self
//	DELETE /api/users/profile/{id}            self or admin
//
//	GET    /api/posts[?pageNumber=&category=] public
//	POST   /api/posts                         signed in
//	GET    /api/posts/count                   public
//	GET    /api/posts/{id}                    public
//	PUT    /api/posts/{id}                    owner
//	DELETE /api/posts/{id}                    owner or admin
//	PUT    /api/posts/update-image/{id}       owner
//	PUT    /api/posts/like/{id}               signed in
//
//	POST   /api/comments                      signed in
//	GET    /api/comments                      admin
//	PUT    /api/comments/{id}                 owner
//	DELETE /api/comments/{id}                 owner or admin
//
//	POST   /api/categories                    admin
//	GET    /api/categories                    public
//	DELETE /api/categories/{id}               admin
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger and the rate limiter see
// the request id and the real client address. Forwarding headers are only
// read from trusted proxies.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.RealIP(s.proxies))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if s.config.UploadDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.UploadDir))
		s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	users := s.db.Users()
	tokens := s.db.Tokens()
	posts := s.db.Posts()
	comments := s.db.Comments()
	categories := s.db.Categories()

	authService := service.NewAuthService(users, tokens, s.sessions, s.passwords,
		s.gateways.Mail, mailer.NewLinks(s.config.ClientDomain), s.logger)
	userService := service.NewUserService(users, posts, s.passwords, s.gateways.Media, s.logger)
	postService := service.NewPostService(posts, comments, s.gateways.Media, s.logger)
	commentService := service.NewCommentService(comments, posts, users, s.logger)
	categoryService := service.NewCategoryService(categories, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)

	// one limiter shared by auth and password routes, so a client can't
	// double its budget by alternating between them
	limiter := middleware.NewRateLimiter(s.config.AuthRateLimit, s.config.AuthRateBurst)

	signedIn := auth.RequireAuth(s.sessions)
	admin := auth.RequireAdmin(s.sessions)
	validID := middleware.ValidID("id")

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/{userId}/verify/{token}", authHandler.HandleVerify)
		})

		r.Route("/password", func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/reset-password-link", authHandler.HandleResetLink)
			r.Get("/reset-password/{userId}/{token}", authHandler.HandleCheckResetLink)
			r.Post("/reset-password/{userId}/{token}", authHandler.HandleResetPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(admin).Get("/profile", userHandler.HandleList)
			r.With(admin).Get("/count", userHandler.HandleCount)
			r.With(signedIn).Post("/profile/profile-photo-upload", userHandler.HandleUploadPhoto)
			r.With(validID).Get("/profile/{id}", userHandler.HandleGet)
			r.With(validID, auth.RequireSelf(s.sessions, "id")).Put("/profile/{id}", userHandler.HandleUpdate)
			r.With(validID, auth.RequireSelfOrAdmin(s.sessions, "id")).Delete("/profile/{id}", userHandler.HandleDelete)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.HandleList)
			r.With(signedIn).Post("/", postHandler.HandleCreate)
			r.Get("/count", postHandler.HandleCount)
			r.With(validID).Get("/{id}", postHandler.HandleGet)
			r.With(validID, signedIn).Put("/{id}", postHandler.HandleUpdate)
			r.With(validID, signedIn).Delete("/{id}", postHandler.HandleDelete)
			r.With(validID, signedIn).Put("/update-image/{id}", postHandler.HandleUpdateImage)
			r.With(validID, signedIn).Put("/like/{id}", postHandler.HandleToggleLike)
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(signedIn).Post("/", commentHandler.HandleCreate)
			r.With(admin).Get("/", commentHandler.HandleList)
			r.With(validID, signedIn).Put("/{id}", commentHandler.HandleUpdate)
			r.With(validID, signedIn).Delete("/{id}", commentHandler.HandleDelete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.With(admin).Post("/", categoryHandler.HandleCreate)
			r.Get("/", categoryHandler.HandleList)
			r.With(validID, admin).Delete("/{id}", categoryHandler.HandleDelete)
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // uploads go through the media host
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
