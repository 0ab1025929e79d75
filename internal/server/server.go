// Package server provides the HTTP server setup for go-signpdf.
//
// NewServer creates and configures the HTTP server and the session manager
// from the environment (see internal/config).
//
// Expected outputs:
// - Server listens on the configured port (default 8080)
// - Idle sessions are swept periodically and their documents released
// - Rate limiter state is pruned on the same schedule
//
// Usage:
//
//	server, err := server.NewServer(ctx, cfg, logger)
//	server.ListenAndServe()
//
// See internal/server/routes.go for route registration.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-signpdf/internal/config"
	"go-signpdf/internal/editor"
	"go-signpdf/internal/imaging"
	"go-signpdf/internal/session"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/image/font/opentype"
)

type Server struct {
	port           int
	Config         config.Config
	Logger         *slog.Logger
	SessionManager *session.SessionManager
	StampFont      *opentype.Font

	apiLimiter    *RateLimiter
	exportLimiter *RateLimiter
}

// New builds a Server without starting any background work.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		port:   cfg.Port,
		Config: cfg,
		Logger: logger,
		SessionManager: session.NewSessionManager(
			editor.WithViewport(cfg.Viewport()),
			editor.WithLogger(logger),
		),
		apiLimiter:    NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		exportLimiter: NewRateLimiter(cfg.RateLimitExport, cfg.RateWindow),
	}
	if cfg.StampFontFile != "" {
		f, err := imaging.LoadFont(cfg.StampFontFile)
		if err != nil {
			return nil, err
		}
		srv.StampFont = f
	}
	return srv, nil
}

// NewServer returns the configured http.Server. Session and rate limiter
// sweeps run until ctx is done.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*http.Server, error) {
	srv, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	go srv.sweep(ctx)
	go srv.apiLimiter.Run(ctx, cfg.SessionSweepInterval, cfg.RateWindow)
	go srv.exportLimiter.Run(ctx, cfg.SessionSweepInterval, cfg.RateWindow)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return server, nil
}

// sweep removes idle sessions.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.Config.SessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SessionManager.Sweep(s.Config.SessionTTL); n > 0 {
				s.Logger.Info("expired idle sessions", "count", n, "active", s.SessionManager.Len())
			}
		}
	}
}
