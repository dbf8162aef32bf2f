package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if platform := PlatformFromContext(ctx); platform != "" {
		fields = append(fields, zap.String("post.platform", platform))
	}

	return fields
}

type requestCtxKey struct{}
type platformCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidID reports whether id is usable as a request id or platform name.
func ValidID(id string) bool {
	return id != "" && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context.
// Panics if requestID is empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if !ValidID(requestID) {
		panic(fmt.Sprintf("logging: invalid request id %q", requestID))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// PlatformFromContext extracts the post's source platform from context.
func PlatformFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(platformCtxKey{}).(string); ok {
		return p
	}
	return ""
}

// WithPlatform records the platform ("x", "linkedin", ...) a post came from.
// Invalid names are ignored.
func WithPlatform(ctx context.Context, platform string) context.Context {
	if !ValidID(platform) {
		return ctx
	}
	return context.WithValue(ctx, platformCtxKey{}, platform)
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return Nop()
}
