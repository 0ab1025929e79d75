// Package config reads server settings from the environment.
//
// A .env file in the working directory is loaded first (see
// github.com/joho/godotenv/autoload in the server package). Unset keys take
// their defaults; malformed values are reported together.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go-signpdf/internal/viewer"
)

type Config struct {
	Port   int
	AppEnv string
	// LogLevel is one of debug, info, warn, error.
	LogLevel       slog.Level
	AllowedOrigins []string

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	MaxPDFBytes   int64
	MaxImageBytes int64

	// requests per RateWindow per client IP
	RateLimit       int
	RateLimitExport int
	RateWindow      time.Duration

	ViewportWidth     float64
	ViewportMaxHeight float64

	// StampFontFile replaces the built-in stamp font when set.
	StampFontFile string
}

func Default() Config {
	return Config{
		Port:                 8080,
		AppEnv:               "development",
		LogLevel:             slog.LevelInfo,
		AllowedOrigins:       []string{"https://*", "http://*"},
		SessionTTL:           30 * time.Minute,
		SessionSweepInterval: time.Minute,
		MaxPDFBytes:          50 << 20,
		MaxImageBytes:        5 << 20,
		RateLimit:            100,
		RateLimitExport:      20,
		RateWindow:           15 * time.Minute,
		ViewportWidth:        800,
		ViewportMaxHeight:    600,
	}
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

// Viewport is the initial viewport of new sessions.
func (c Config) Viewport() viewer.Viewport {
	return viewer.Viewport{ContainerWidth: c.ViewportWidth, MaxHeight: c.ViewportMaxHeight}
}

// Load reads the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads settings through lookup, which has the shape of
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.int("PORT", &c.Port)
	p.string("APP_ENV", &c.AppEnv)
	p.level("LOG_LEVEL", &c.LogLevel)
	p.list("ALLOWED_ORIGINS", &c.AllowedOrigins)
	p.duration("SESSION_TTL", &c.SessionTTL)
	p.duration("SESSION_SWEEP_INTERVAL", &c.SessionSweepInterval)
	p.int64("MAX_PDF_BYTES", &c.MaxPDFBytes)
	p.int64("MAX_IMAGE_BYTES", &c.MaxImageBytes)
	p.int("RATE_LIMIT", &c.RateLimit)
	p.int("RATE_LIMIT_EXPORT", &c.RateLimitExport)
	p.duration("RATE_WINDOW", &c.RateWindow)
	p.float("VIEWPORT_WIDTH", &c.ViewportWidth)
	p.float("VIEWPORT_MAX_HEIGHT", &c.ViewportMaxHeight)
	p.string("STAMP_FONT_FILE", &c.StampFontFile)

	if c.Port < 0 || c.Port > 65535 {
		p.errs = append(p.errs, fmt.Errorf("PORT: %d out of range", c.Port))
	}
	if c.SessionSweepInterval <= 0 {
		p.errs = append(p.errs, errors.New("SESSION_SWEEP_INTERVAL: must be positive"))
	}
	if c.RateWindow <= 0 {
		p.errs = append(p.errs, errors.New("RATE_WINDOW: must be positive"))
	}
	if err := c.Viewport().Validate(); err != nil {
		p.errs = append(p.errs, fmt.Errorf("VIEWPORT_WIDTH/VIEWPORT_MAX_HEIGHT: %w", err))
	}
	return c, errors.Join(p.errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) string(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) list(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func (p *parser) int(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) int64(key string, dst *int64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (p *parser) level(key string, dst *slog.Level) {
	if v, ok := p.get(key); ok {
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			p.fail(key, v, err)
		}
	}
}

// NewLogger returns a JSON logger in production and a text logger otherwise,
// both at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
