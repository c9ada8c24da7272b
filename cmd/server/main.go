// Package main is the entry point for the blog backend.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (internal/config: env vars and an optional .env)
// 2. Create the outside-world dependencies (logger, mail sender, media host)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
//
// USAGE:
//
//	server                          run the HTTP API
//	server -promote-admin <email>   grant admin rights to an account and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/blog-backend/internal/config"
	"github.com/sakif/blog-backend/internal/mailer"
	"github.com/sakif/blog-backend/internal/media"
	"github.com/sakif/blog-backend/internal/server"
	"github.com/sakif/blog-backend/internal/service"
)

func main() {
	promote := flag.String("promote-admin", "", "grant admin rights to the account with this email, then exit")
	envFile := flag.String("env-file", "", "load environment from this file instead of ./.env")
	flag.Parse()

	// === 1. CONFIGURATION ===
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		// no logger yet: the log settings are part of the config
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *promote); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, promoteEmail string) error {
	ctx := context.Background()

	// The "data" directory is created if it doesn't exist (like `mkdir -p`).
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	// === 3. GATEWAYS ===
	mail, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}
	host, uploadDir, err := newMediaHost(ctx, cfg)
	if err != nil {
		return err
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:           cfg.Port,
		DBPath:         cfg.DBPath,
		JWTSecret:      cfg.JWTSecret,
		SessionTTL:     cfg.SessionTTL,
		BcryptCost:     cfg.BcryptCost,
		ClientDomain:   cfg.ClientDomain,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateBurst:  cfg.AuthRateBurst,
		TrustedProxies: cfg.TrustedProxies,
		UploadDir:      uploadDir,
	}, server.Gateways{Mail: mail, Media: host}, logger)
	if err != nil {
		return err
	}

	if promoteEmail != "" {
		defer srv.Close()
		return promoteAdmin(ctx, srv, promoteEmail, logger)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}

func newMailer(cfg *config.Config, logger *slog.Logger) (mailer.Sender, error) {
	switch cfg.Mail.Driver {
	case config.MailDriverPostmark:
		return mailer.NewPostmarkSender(cfg.Mail.PostmarkServerToken, cfg.Mail.PostmarkAccountToken, cfg.Mail.From)
	default:
		if cfg.IsProduction() {
			logger.Warn("MAIL_DRIVER=log in production: verification emails are only logged")
		}
		return mailer.NewLogSender(logger), nil
	}
}

// newMediaHost returns the configured host and, for the local driver, the
// directory the server should expose at /uploads.
func newMediaHost(ctx context.Context, cfg *config.Config) (media.Host, string, error) {
	m := cfg.Media
	switch m.Driver {
	case config.MediaDriverS3:
		host, err := media.NewS3Host(ctx, media.S3Config{
			Bucket:         m.S3Bucket,
			Region:         m.S3Region,
			AccessKeyID:    m.S3AccessKeyID,
			SecretKey:      m.S3SecretKey,
			Endpoint:       m.S3Endpoint,
			BaseURL:        m.S3BaseURL,
			ForcePathStyle: m.S3ForcePathStyle,
		})
		return host, "", err
	default:
		host, err := media.NewLocalHost(m.Dir, m.BaseURL)
		if err != nil {
			return nil, "", err
		}
		return host, host.Dir(), nil
	}
}

func promoteAdmin(ctx context.Context, srv *server.Server, email string, logger *slog.Logger) error {
	user, err := service.PromoteAdmin(ctx, srv.DB().Users(), email)
	if err != nil {
		return fmt.Errorf("promoting %s: %w", email, err)
	}

	logger.Info("user promoted to admin", slog.String("userID", user.ID), slog.String("email", user.Email))
	return nil
}
