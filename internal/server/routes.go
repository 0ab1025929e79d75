// Package server sets up the HTTP server and registers API routes for go-signpdf.
//
// RegisterRoutes returns an http.Handler with all API endpoints for sessions,
// documents, annotations and export.
//
// Expected outputs:
// - All session endpoints are available under /api/sessions
// - CORS, request logging, panic recovery, security headers and per-IP rate
//   limiting are enabled on the API
//
// See internal/handlers for request and response details.
package server

import (
	"net/http"

	_ "go-signpdf/docs"
	"go-signpdf/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.Config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         86400,
	}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	h := handlers.NewAPIHandler(s.SessionManager, handlers.Options{
		MaxPDFBytes:   s.Config.MaxPDFBytes,
		MaxImageBytes: s.Config.MaxImageBytes,
		StampFont:     s.StampFont,
		Logger:        s.Logger,
	})
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RealIP)
		api.Use(securityHeaders(s.Config.IsProduction()))
		api.Use(s.apiLimiter.Middleware)

		api.Get("/health", h.Health)
		api.Route("/sessions", func(sessions chi.Router) {
			sessions.Post("/", h.CreateSession)
			sessions.Get("/{sessionID}", h.GetSession)
			sessions.Delete("/{sessionID}", h.DeleteSession)
			sessions.Post("/{sessionID}/document", h.UploadDocument)
			sessions.Put("/{sessionID}/view", h.SetView)
			sessions.Put("/{sessionID}/pages", h.SetPages)
			sessions.Get("/{sessionID}/pages/{page}/annotations", h.PageAnnotations)
			sessions.Post("/{sessionID}/annotations/image", h.AddImage)
			sessions.Post("/{sessionID}/annotations/stamp", h.AddStamp)
			sessions.Post("/{sessionID}/annotations/drawing", h.AddDrawing)
			sessions.Get("/{sessionID}/annotations/{annotationID}/image", h.AnnotationImage)
			sessions.Put("/{sessionID}/annotations/{annotationID}", h.PlaceAnnotation)
			sessions.Delete("/{sessionID}/annotations/{annotationID}", h.DeleteAnnotation)
			sessions.Post("/{sessionID}/pointer", h.Pointer)
			sessions.Post("/{sessionID}/click", h.Click)
			sessions.Post("/{sessionID}/actions/duplicate", h.Duplicate)
			sessions.With(s.exportLimiter.Middleware).Post("/{sessionID}/actions/export", h.Export)
		})
	})

	return r
}
