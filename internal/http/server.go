// Package http provides the VibeCope HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/vibecope/vibecope/internal/locale"
	"github.com/vibecope/vibecope/internal/logging"
	"github.com/vibecope/vibecope/internal/scoring"
	"github.com/vibecope/vibecope/internal/settings"
)

// bodyOverhead is the JSON envelope allowed on top of the text limit.
const bodyOverhead = 4096

// InstrumentationName scopes the tracer and meter of the API.
const InstrumentationName = "github.com/vibecope/vibecope/internal/http"

// Scorer is the scoring engine as seen by the API.
type Scorer interface {
	ScorePost(text string) scoring.Result
	Explain(text string) scoring.Explanation
	Path() scoring.Path
	AvailableLocales() []locale.Info
	EnabledLocales() []string
}

// SettingsStore reads the user settings and persists locale changes.
type SettingsStore interface {
	Get(ctx context.Context) (settings.Settings, error)
	SetLocales(ctx context.Context, ids []string) error
}

// Server provides HTTP endpoints for VibeCope.
type Server struct {
	echo     *echo.Echo
	scorer   Scorer
	store    SettingsStore
	logger   *logging.Logger
	config   *Config
	tracer   trace.Tracer
	filtered metric.Int64Counter
}

// Option configures a Server.
type Option func(*options)

type options struct {
	tracer trace.Tracer
	meter  metric.Meter
}

// WithTracer records a span per scored post.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMeter exports verdict counts through m.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RateLimit is the per-client request rate on scoring endpoints.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int

	// MaxTextBytes caps the text of a scoring request. Zero means no cap.
	MaxTextBytes int

	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
}

// NewServer creates a new HTTP server.
func NewServer(scorer Scorer, store SettingsStore, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8787,
		}
	}

	o := options{
		tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(InstrumentationName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	filtered, err := o.meter.Int64Counter("vibecope.posts.filtered",
		metric.WithDescription("Scored posts at or above the user's threshold, by action"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filtered counter: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		scorer:   scorer,
		store:    store,
		logger:   logger,
		config:   cfg,
		tracer:   o.tracer,
		filtered: filtered,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	if cfg.MetricsPath != "" {
		e.Use(NewHTTPMetrics().MetricsMiddleware())
	}
	if cfg.MaxTextBytes > 0 {
		e.Use(limitBody(int64(cfg.MaxTextBytes) + bodyOverhead))
	}

	s.registerRoutes()
	return s, nil
}

// requestLogger puts the request id on the request context and logs every
// request once it completes.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		ctx := req.Context()
		if rid := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidID(rid) {
			ctx = logging.WithRequestID(ctx, rid)
			c.SetRequest(req.WithContext(ctx))
		}

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// limitBody caps request bodies at n bytes.
func limitBody(n int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			req.Body = http.MaxBytesReader(c.Response(), req.Body, n)
			return next(c)
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.config.MetricsPath != "" {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/locales", s.handleLocales)
	v1.GET("/settings", s.handleGetSettings)
	v1.PUT("/settings/locales", s.handleSetLocales)

	score := v1.Group("/score")
	if s.config.RateLimit > 0 {
		score.Use(s.rateLimit(newClientLimiter(s.config.RateLimit, s.config.RateBurst)))
	}
	score.POST("", s.handleScore)
	score.POST("/explain", s.handleExplain)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// bindScoreRequest decodes and checks a scoring request.
func (s *Server) bindScoreRequest(c echo.Context) (ScoreRequest, error) {
	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
		}
		s.logger.Warn(c.Request().Context(), "invalid score request", zap.Error(err))
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}
	if s.config.MaxTextBytes > 0 && len(req.Text) > s.config.MaxTextBytes {
		return req, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds %d bytes", s.config.MaxTextBytes))
	}
	if req.Platform != "" && !logging.ValidID(req.Platform) {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid platform")
	}
	return req, nil
}

// handleScore scores a post and applies the user's filtering settings.
func (s *Server) handleScore(c echo.Context) error {
	req, err := s.bindScoreRequest(c)
	if err != nil {
		return err
	}
	ctx, span := s.tracer.Start(c.Request().Context(), "score.post")
	defer span.End()
	ctx = logging.WithPlatform(ctx, req.Platform)

	st, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Error(ctx, "reading settings failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "settings unavailable")
	}

	path := s.scorer.Path()
	result := s.scorer.ScorePost(req.Text)

	resp := ScoreResponse{
		Score:   result.Score,
		Reasons: result.Reasons,
		Path:    path,
	}
	if req.Platform == "" || st.PlatformEnabled(req.Platform) {
		v := st.Verdict(result.Score)
		resp.Filtered = v.Filtered
		resp.Action = v.Action
	}

	span.SetAttributes(
		attribute.String("path", string(path)),
		attribute.Int("score", resp.Score),
		attribute.Bool("filtered", resp.Filtered),
	)
	if resp.Filtered {
		s.filtered.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(resp.Action))))
	}

	s.logger.Debug(ctx, "scored post",
		zap.Int("score", resp.Score),
		zap.Bool("filtered", resp.Filtered),
		zap.String("preview", scoring.Preview(req.Text)),
	)
	return c.JSON(http.StatusOK, resp)
}

// handleExplain returns the heuristic breakdown for a post.
func (s *Server) handleExplain(c echo.Context) error {
	req, err := s.bindScoreRequest(c)
	if err != nil {
		return err
	}
	_, span := s.tracer.Start(c.Request().Context(), "score.explain")
	defer span.End()

	exp := s.scorer.Explain(req.Text)
	span.SetAttributes(
		attribute.Int("score", exp.Result.Score),
		attribute.String("branch", string(exp.Breakdown.Branch)),
	)
	return c.JSON(http.StatusOK, exp)
}

func (s *Server) handleLocales(c echo.Context) error {
	return c.JSON(http.StatusOK, LocalesResponse{
		Available: s.scorer.AvailableLocales(),
		Enabled:   s.scorer.EnabledLocales(),
	})
}

func (s *Server) handleGetSettings(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Error(ctx, "reading settings failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "settings unavailable")
	}
	return c.JSON(http.StatusOK, st)
}

// handleSetLocales persists a new enabled locale set. Patterns are recompiled
// by whoever watches the store.
func (s *Server) handleSetLocales(c echo.Context) error {
	ctx := c.Request().Context()

	var req SetLocalesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Locales == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "locales field is required")
	}

	known := make(map[string]bool)
	for _, info := range s.scorer.AvailableLocales() {
		known[info.Locale] = true
	}
	ids := make([]string, 0, len(req.Locales))
	for _, id := range req.Locales {
		if !known[id] {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown locale %q", id))
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	if err := s.store.SetLocales(ctx, ids); err != nil {
		s.logger.Error(ctx, "saving locales failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "saving settings failed")
	}
	s.logger.Info(ctx, "enabled locales updated", zap.Strings("locales", ids))

	st, err := s.store.Get(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "settings unavailable")
	}
	return c.JSON(http.StatusOK, st)
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
