package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the OTLP tracer and meter providers of a serve process.
//
// A provider that cannot be built leaves the instance degraded rather than
// failing startup; Tracer and Meter then fall back to the global (no-op)
// providers and scoring carries on untraced.
type Telemetry struct {
	config *Config

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	health atomic.Pointer[HealthStatus]
}

// HealthStatus is a snapshot of telemetry health. Reason holds the first
// failure seen.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	Reason   string
}

func newTelemetry(cfg *Config) *Telemetry {
	t := &Telemetry{config: cfg}
	t.health.Store(&HealthStatus{Healthy: true})
	return t
}

// New builds the providers described by cfg and installs them, together with
// the W3C trace-context and baggage propagators, as the otel globals.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := newTelemetry(cfg)
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)
	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.setDegraded("tracer provider failed: %v", err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}
	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		t.setDegraded("meter provider failed: %v", err)
	} else if mp != nil {
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer from the owned provider, or from the global one
// when tracing is off.
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter from the owned provider, or from the global one when
// metric export is off.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.meterProvider.Meter(name, opts...)
}

// provider is what the sdk tracer and meter providers have in common.
type provider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

func (t *Telemetry) providers() map[string]provider {
	ps := make(map[string]provider, 2)
	if t.tracerProvider != nil {
		ps["trace"] = t.tracerProvider
	}
	if t.meterProvider != nil {
		ps["meter"] = t.meterProvider
	}
	return ps
}

// Shutdown flushes and stops the providers. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error
	for kind, p := range t.providers() {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s provider shutdown: %w", kind, err))
		}
	}
	t.update(func(h *HealthStatus) { h.Healthy = false })
	return errors.Join(errs...)
}

// ForceFlush exports everything buffered so far.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for kind, p := range t.providers() {
		if err := p.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s flush: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true}
	}
	if h := t.health.Load(); h != nil {
		return *h
	}
	return HealthStatus{}
}

// IsEnabled reports whether export was requested and the providers are
// still running.
func (t *Telemetry) IsEnabled() bool {
	if t == nil || t.config == nil {
		return false
	}
	return t.config.Enabled && t.Health().Healthy
}

func (t *Telemetry) setDegraded(format string, args ...any) {
	reason := fmt.Sprintf(format, args...)
	t.update(func(h *HealthStatus) {
		h.Degraded = true
		if h.Reason == "" {
			h.Reason = reason
		}
	})
}

// update applies fn to a copy of the current status and publishes it.
func (t *Telemetry) update(fn func(*HealthStatus)) {
	for {
		old := t.health.Load()
		next := HealthStatus{}
		if old != nil {
			next = *old
		}
		fn(&next)
		if t.health.CompareAndSwap(old, &next) {
			return
		}
	}
}
