// Package logging provides structured logging with OpenTelemetry integration.
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug) for per-feature scoring detail
//   - Console output (stderr by default) and optional OpenTelemetry output
//   - Automatic context field injection (trace_id, request.id, post.platform)
//   - Level-aware sampling (errors never sampled)
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Library packages take a plain *zap.Logger; pass logger.Zap().
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "post scored", zap.Int("score", 83))
//	tl.AssertLogged(t, zapcore.InfoLevel, "post scored")
//	tl.AssertField(t, "post scored", "score", int64(83))
package logging
