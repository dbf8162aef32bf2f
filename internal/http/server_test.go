package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap/zapcore"

	"github.com/vibecope/vibecope/internal/locale"
	"github.com/vibecope/vibecope/internal/logging"
	"github.com/vibecope/vibecope/internal/patterns"
	"github.com/vibecope/vibecope/internal/scoring"
	"github.com/vibecope/vibecope/internal/settings"
	"github.com/vibecope/vibecope/internal/telemetry"
)

const hypePost = "🚀🚀🚀 I made $10k this month working 2 hours a day! AI will replace your job, guaranteed. " +
	"Here's the secret nobody is talking about."

type testEnv struct {
	server *Server
	engine *scoring.Engine
	store  *settings.MemoryStore
	logs   *logging.TestLogger
}

func setupTestServer(t *testing.T, cfg *Config, opts ...Option) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := scoring.NewEngine(patterns.NewCache(patterns.NewCompiler(locale.MustDefaultStore())))
	store := settings.NewMemoryStore(settings.Defaults())
	require.NoError(t, engine.SyncLocales(ctx, store))

	logs := logging.NewTestLogger()
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8787}
	}
	server, err := NewServer(engine, store, logs.Logger, cfg, opts...)
	require.NoError(t, err)

	return &testEnv{server: server, engine: engine, store: store, logs: logs}
}

func (env *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.server.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewServer(t *testing.T) {
	engine := scoring.NewEngine(patterns.NewCache(patterns.NewCompiler(locale.MustDefaultStore())))
	store := settings.NewMemoryStore(settings.Defaults())

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(engine, store, logging.Nop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", server.config.Host)
		assert.Equal(t, 8787, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(engine, store, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when scorer is nil", func(t *testing.T) {
		_, err := NewServer(nil, store, logging.Nop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scorer cannot be nil")
	})

	t.Run("returns error when store is nil", func(t *testing.T) {
		_, err := NewServer(engine, nil, logging.Nop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "settings store cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestHandleScore(t *testing.T) {
	t.Run("filters hype post with the configured action", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{Text: hypePost})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ScoreResponse](t, rec)
		assert.Equal(t, 83, resp.Score)
		assert.True(t, resp.Filtered)
		assert.Equal(t, settings.ActionCollapse, resp.Action)
		assert.Equal(t, scoring.PathHeuristic, resp.Path)
		assert.Contains(t, resp.Reasons, "AI replacement narrative detected")
	})

	t.Run("ordinary post passes", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPost, "/api/v1/score",
			ScoreRequest{Text: "Had a good meeting with the team today about Q3 planning."})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ScoreResponse](t, rec)
		assert.Equal(t, 0, resp.Score)
		assert.Empty(t, resp.Reasons)
		assert.NotNil(t, resp.Reasons)
		assert.False(t, resp.Filtered)
		assert.Empty(t, resp.Action)
	})

	t.Run("disabled platform is scored but not filtered", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPost, "/api/v1/score",
			ScoreRequest{Text: hypePost, Platform: "linkedin"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ScoreResponse](t, rec)
		assert.Equal(t, 83, resp.Score)
		assert.False(t, resp.Filtered)
	})

	t.Run("enabled platform is filtered", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPost, "/api/v1/score",
			ScoreRequest{Text: hypePost, Platform: "x"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[ScoreResponse](t, rec).Filtered)
	})

	t.Run("threshold comes from settings", func(t *testing.T) {
		env := setupTestServer(t, nil)
		st := settings.Defaults()
		st.Threshold = 90
		st.Action = settings.ActionBadge
		require.NoError(t, env.store.Save(context.Background(), st))

		rec := env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{Text: hypePost})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[ScoreResponse](t, rec).Filtered)
	})

	t.Run("rejects bad requests", func(t *testing.T) {
		env := setupTestServer(t, nil)

		tests := []struct {
			name    string
			body    any
			message string
		}{
			{name: "invalid json", body: "invalid json", message: "invalid request body"},
			{name: "empty text", body: ScoreRequest{Text: ""}, message: "text field is required"},
			{name: "blank text", body: ScoreRequest{Text: " \n "}, message: "text field is required"},
			{name: "bad platform", body: ScoreRequest{Text: "hi", Platform: "x y"}, message: "invalid platform"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := env.do(t, http.MethodPost, "/api/v1/score", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, rec.Body.String(), tt.message)
			})
		}
	})

	t.Run("rejects oversized text", func(t *testing.T) {
		env := setupTestServer(t, &Config{MaxTextBytes: 16})

		rec := env.do(t, http.MethodPost, "/api/v1/score",
			ScoreRequest{Text: strings.Repeat("a", 17)})

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "text exceeds 16 bytes")
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		env := setupTestServer(t, &Config{MaxTextBytes: 16})

		rec := env.do(t, http.MethodPost, "/api/v1/score",
			ScoreRequest{Text: strings.Repeat("a", 2*bodyOverhead)})

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestHandleExplain(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/score/explain",
		ScoreRequest{Text: "I rebuilt my garden in 3 days!"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[scoring.Explanation](t, rec)
	assert.Equal(t, 6, resp.Result.Score)
	assert.Equal(t, scoring.BranchPattern, resp.Breakdown.Branch)
	assert.Equal(t, []string{"en", "pl"}, resp.Locales)
	assert.NotEmpty(t, resp.Generation)
	assert.InDelta(t, 0.3, resp.Features["timeframeClaim"].Value, 1e-9)
}

func TestHandleLocales(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/locales", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[LocalesResponse](t, rec)
	assert.Equal(t, []locale.Info{
		{Locale: "en", Label: "English"},
		{Locale: "pl", Label: "Polski"},
	}, resp.Available)
	assert.Equal(t, []string{"en", "pl"}, resp.Enabled)
}

func TestHandleSettings(t *testing.T) {
	t.Run("get returns current settings", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodGet, "/api/v1/settings", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, settings.Defaults().Equal(decode[settings.Settings](t, rec)))
	})

	t.Run("set locales recompiles patterns", func(t *testing.T) {
		env := setupTestServer(t, nil)
		const polish = "Ta rewolucja zmienia wszystko"
		before := env.engine.ScorePost(polish)
		require.NotEmpty(t, before.Reasons)

		rec := env.do(t, http.MethodPut, "/api/v1/settings/locales",
			SetLocalesRequest{Locales: []string{"en", "en"}})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"en"}, decode[settings.Settings](t, rec).EnabledLocales)
		assert.Equal(t, []string{"en"}, env.engine.EnabledLocales())
		assert.Less(t, env.engine.ScorePost(polish).Score, before.Score)
		env.logs.AssertLogged(t, zapcore.InfoLevel, "enabled locales updated")
	})

	t.Run("empty set is allowed", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPut, "/api/v1/settings/locales",
			SetLocalesRequest{Locales: []string{}})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, env.engine.EnabledLocales())
	})

	t.Run("rejects unknown locale", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPut, "/api/v1/settings/locales",
			SetLocalesRequest{Locales: []string{"en", "de"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `unknown locale \"de\"`)
		assert.Equal(t, []string{"en", "pl"}, env.engine.EnabledLocales())
	})

	t.Run("rejects missing locales", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodPut, "/api/v1/settings/locales", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	env := setupTestServer(t, &Config{RateLimit: 0.001, RateBurst: 2})

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{Text: "hello"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{Text: "hello"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	env.logs.AssertLogged(t, zapcore.WarnLevel, "rate limit exceeded")

	t.Run("other clients keep their budget", func(t *testing.T) {
		raw, err := json.Marshal(ScoreRequest{Text: "hello"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/score", bytes.NewReader(raw))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXRealIP, "198.51.100.7")
		rec := httptest.NewRecorder()
		env.server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other endpoints are not limited", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMetrics(t *testing.T) {
	env := setupTestServer(t, &Config{MetricsPath: "/metrics"})
	m := NewHTTPMetrics()
	counter := m.requestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before := testutil.ToFloat64(counter)

	env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestMiddleware(t *testing.T) {
	t.Run("adds request ID to response and logs", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.do(t, http.MethodGet, "/health", nil)

		rid := rec.Header().Get(echo.HeaderXRequestID)
		require.NotEmpty(t, rid)
		env.logs.AssertField(t, "http request", "request.id", rid)
		env.logs.AssertField(t, "http request", "status", int64(http.StatusOK))
	})

	t.Run("logs final status of failed requests", func(t *testing.T) {
		env := setupTestServer(t, nil)

		env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{})

		env.logs.AssertField(t, "http request", "status", int64(http.StatusBadRequest))
	})

	t.Run("recovers from panic", func(t *testing.T) {
		env := setupTestServer(t, nil)
		env.server.echo.GET("/panic", func(c echo.Context) error {
			panic("test panic")
		})

		rec := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			env.server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServerLifecycle(t *testing.T) {
	env := setupTestServer(t, &Config{Host: "127.0.0.1", Port: 0})

	errChan := make(chan error, 1)
	go func() {
		errChan <- env.server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))

	select {
	case err := <-errChan:
		assert.True(t, err == nil || errors.Is(err, http.ErrServerClosed))
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestTracingAndVerdictMetrics(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	env := setupTestServer(t, nil,
		WithTracer(tel.Tracer(InstrumentationName)),
		WithMeter(tel.Meter(InstrumentationName)),
	)

	rec := env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{Text: hypePost})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/score", ScoreRequest{Text: "Had a good meeting with the team."})
	require.Equal(t, http.StatusOK, rec.Code)

	tel.AssertSpanAttribute(t, "score.post", "score", int64(83))
	tel.AssertSpanAttribute(t, "score.post", "filtered", true)
	tel.AssertSpanAttribute(t, "score.post", "path", "heuristic")
	assert.Equal(t, int64(1), tel.CounterSum(t, "vibecope.posts.filtered",
		attribute.String("action", string(settings.ActionCollapse))))

	var traced bool
	for _, entry := range env.logs.FilterMessage("scored post").All() {
		if _, ok := entry.ContextMap()["trace_id"]; ok {
			traced = true
		}
	}
	assert.True(t, traced, "scored post log carries the trace id")

	rec = env.do(t, http.MethodPost, "/api/v1/score/explain", ScoreRequest{Text: "I rebuilt my garden in 3 days!"})
	require.Equal(t, http.StatusOK, rec.Code)
	tel.AssertSpanAttribute(t, "score.explain", "branch", "pattern")
}
