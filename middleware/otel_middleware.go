package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

type OtelConfig struct {
	ServiceName     string
	ServiceVersion  string
	Environment     string
	OTLPEndpoint    string
	Enabled         bool
	DevelopmentMode bool // stdout exporter in development, OTLP in production
}

var tracer trace.Tracer

// InitOpenTelemetry sets up the tracing stack and returns a cleanup function.
func InitOpenTelemetry(config OtelConfig, logger zerolog.Logger) (func(), error) {
	if !config.Enabled {
		return func() {}, nil
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(config.ServiceName),
		semconv.ServiceVersionKey.String(config.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(config.Environment),
		semconv.ServiceInstanceIDKey.String(fmt.Sprintf("%s-%d", config.ServiceName, time.Now().Unix())),
	)

	traceShutdown, err := setupTraceProvider(ctx, res, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup trace provider: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = otel.Tracer(config.ServiceName)

	logger.Info().
		Str("service", config.ServiceName).
		Str("version", config.ServiceVersion).
		Str("environment", config.Environment).
		Str("otlp_endpoint", config.OTLPEndpoint).
		Bool("development_mode", config.DevelopmentMode).
		Msg("OpenTelemetry initialized")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := traceShutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error during OpenTelemetry shutdown")
		}
	}, nil
}

func setupTraceProvider(ctx context.Context, res *resource.Resource, config OtelConfig, logger zerolog.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if config.DevelopmentMode {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		logger.Info().Msg("Using stdout trace exporter (development mode)")
	} else {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		logger.Info().Str("endpoint", config.OTLPEndpoint).Msg("Using OTLP gRPC trace exporter (production mode)")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// OpenTelemetryMiddleware traces every HTTP request through huma.
func OpenTelemetryMiddleware(config OtelConfig, logger zerolog.Logger) func(huma.Context, func(huma.Context)) {
	if !config.Enabled {
		return func(ctx huma.Context, next func(huma.Context)) {
			next(ctx)
		}
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		startTime := time.Now()

		carrier := &HeaderCarrier{ctx: ctx}
		parentCtx := otel.GetTextMapPropagator().Extract(ctx.Context(), carrier)

		spanName := fmt.Sprintf("%s %s", ctx.Method(), ctx.URL().Path)

		spanCtx, span := tracer.Start(parentCtx, spanName,
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(ctx.Method()),
				semconv.HTTPRouteKey.String(ctx.URL().Path),
				semconv.HTTPUserAgentKey.String(ctx.Header("User-Agent")),
				attribute.String("net.peer.ip", ctx.RemoteAddr()),
			),
		)
		defer span.End()

		requestID := ctx.Header("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req_%s", span.SpanContext().TraceID().String()[:8])
		}

		ctx.SetHeader("X-Request-ID", requestID)
		ctx.SetHeader("X-Trace-ID", span.SpanContext().TraceID().String())
		otel.GetTextMapPropagator().Inject(spanCtx, carrier)

		next(ctx)

		duration := time.Since(startTime)
		statusCode := ctx.Status()

		span.SetAttributes(
			semconv.HTTPStatusCodeKey.Int(statusCode),
			attribute.Float64("http.request.duration_ms", float64(duration.Nanoseconds())/1e6),
			attribute.String("http.request_id", requestID),
		)

		if statusCode >= 400 {
			span.RecordError(fmt.Errorf("HTTP %d", statusCode))
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}

		var logEvent *zerolog.Event
		if statusCode >= 500 {
			logEvent = logger.Error()
		} else if statusCode >= 400 {
			logEvent = logger.Warn()
		} else {
			logEvent = logger.Info()
		}

		logEvent.
			Str("request_id", requestID).
			Str("method", ctx.Method()).
			Str("path", ctx.URL().Path).
			Int("status_code", statusCode).
			Float64("duration_ms", float64(duration.Nanoseconds())/1e6).
			Str("trace_id", span.SpanContext().TraceID().String()).
			Msg("HTTP request completed")
	}
}

// HeaderCarrier adapts huma.Context headers to propagation.TextMapCarrier.
type HeaderCarrier struct {
	ctx huma.Context
}

func (h *HeaderCarrier) Get(key string) string {
	return h.ctx.Header(key)
}

func (h *HeaderCarrier) Set(key, value string) {
	h.ctx.SetHeader(key, value)
}

func (h *HeaderCarrier) Keys() []string {
	// huma.Context cannot enumerate header keys; extract works without them.
	return []string{}
}
