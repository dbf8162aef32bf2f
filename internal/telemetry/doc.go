// Package telemetry provides OpenTelemetry tracing and OTLP metrics export for
// vibecope.
//
// Prometheus remains the pull-based metrics surface; this package adds push
// export to an OTEL collector for deployments that have one.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("github.com/vibecope/vibecope/internal/http")
//	ctx, span := tracer.Start(ctx, "score.post")
//	defer span.End()
//
// Configuration lives under the telemetry key:
//
//	telemetry:
//	  enabled: true
//	  endpoint: localhost:4317
//	  protocol: grpc        # or http/protobuf
//	  sampling_rate: 1.0
//	  export_interval: 15s
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
