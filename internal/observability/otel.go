package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"careerpath/internal/config"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds all custom metrics for careerpath
type Metrics struct {
	// Matching metrics
	MatchesTotal  metric.Int64Counter
	MatchScore    metric.Int64Histogram
	MatchDuration metric.Float64Histogram

	// Cover letter metrics
	CoverLetters metric.Int64Counter

	// Certificate metrics
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter

	settings config.CustomMetricsConfig
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config           ObservabilityConfig
	fullConfig       *config.Config
	resource         *resource.Resource
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.Server
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	if !obsConfig.Enabled {
		return &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}, nil
	}

	om := &ObservabilityManager{
		config:        obsConfig,
		fullConfig:    fullConfig,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	if err := om.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := om.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

func (om *ObservabilityManager) initResource() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.getServiceInstanceID()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	om.resource = res
	return nil
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	if om.config.ConsoleOutput {
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	} else if om.otlpEnabled() {
		exporter, err = om.createOTLPExporter()
	} else {
		exporter = &noOpSpanExporter{}
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(om.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := newMetrics(mp.Meter(om.config.ServiceName), om.customMetricsConfig())
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if err := om.setupConsoleReader(&readers); err != nil {
		return nil, err
	}

	if err := om.setupOTLPReader(&readers); err != nil {
		return nil, err
	}

	if err := om.setupPrometheusReader(&readers); err != nil {
		return nil, err
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

func (om *ObservabilityManager) setupConsoleReader(readers *[]sdkmetric.Reader) error {
	if !om.config.ConsoleOutput {
		return nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create console metric exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	*readers = append(*readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	return nil
}

func (om *ObservabilityManager) setupOTLPReader(readers *[]sdkmetric.Reader) error {
	if !om.otlpEnabled() {
		return nil
	}

	otlpReader, err := om.createOTLPMetricsReader()
	if err != nil {
		return fmt.Errorf("failed to create OTLP metrics reader: %w", err)
	}
	*readers = append(*readers, otlpReader)
	return nil
}

func (om *ObservabilityManager) setupPrometheusReader(readers *[]sdkmetric.Reader) error {
	if !om.config.Prometheus.Enabled {
		return nil
	}

	prometheusReader, prometheusMux, err := SetupPrometheusExporter(om.config.Prometheus)
	if err != nil {
		return err
	}
	*readers = append(*readers, prometheusReader)

	server, err := StartPrometheusServer(prometheusMux, om.config.Prometheus.Port)
	if err != nil {
		return fmt.Errorf("failed to start Prometheus server: %w", err)
	}
	om.prometheusServer = server
	om.shutdownFuncs = append(om.shutdownFuncs, server.Shutdown)
	return nil
}

// newMetrics creates every careerpath instrument on meter.
func newMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}
	var err error

	m.MatchesTotal, err = meter.Int64Counter(
		"careerpath_matches_total",
		metric.WithDescription("Total number of CV/JD pairs scored"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create matches metric: %w", err)
	}

	m.MatchScore, err = meter.Int64Histogram(
		"careerpath_match_score",
		metric.WithDescription("Distribution of overall match scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match score metric: %w", err)
	}

	m.MatchDuration, err = meter.Float64Histogram(
		"careerpath_match_duration_seconds",
		metric.WithDescription("Time spent scoring one CV/JD pair"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match duration metric: %w", err)
	}

	m.CoverLetters, err = meter.Int64Counter(
		"careerpath_cover_letters_total",
		metric.WithDescription("Total number of cover letters generated"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover letter metric: %w", err)
	}

	m.CertReloadCount, err = meter.Int64Counter(
		"careerpath_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	m.CertExpiryTime, err = meter.Float64Gauge(
		"careerpath_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	m.RateLimitHits, err = meter.Int64Counter(
		"careerpath_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// GetMetrics returns the metrics instance. Every instrument is nil when
// observability is disabled and the record helpers become no-ops.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled || om.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TrackMatch runs fn inside an engine.analyze span and records the match
// counter, the score distribution and the scoring duration. fn returns the
// overall score.
func (m *Metrics) TrackMatch(ctx context.Context, tracer oteltrace.Tracer, endpoint string, fn func(context.Context) int) int {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("careerpath.engine")
	}
	ctx, span := tracer.Start(ctx, "engine.analyze")
	defer span.End()

	start := time.Now()
	score := fn(ctx)
	duration := time.Since(start).Seconds()

	span.SetAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("match.score", score),
	)

	if m.MatchesTotal == nil || !m.settings.Matching.Enabled {
		return score
	}

	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint))
	m.MatchesTotal.Add(ctx, 1, attrs)
	if m.settings.Matching.TrackScores {
		m.MatchScore.Record(ctx, int64(score), attrs)
	}
	if m.settings.Matching.TrackDuration {
		m.MatchDuration.Record(ctx, duration, attrs)
	}

	return score
}

// RecordCoverLetter counts one generated letter
func (m *Metrics) RecordCoverLetter(ctx context.Context, tone string, truncated bool) {
	if m.CoverLetters == nil || !m.settings.Matching.Enabled {
		return
	}
	m.CoverLetters.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tone", tone),
		attribute.Bool("truncated", truncated),
	))
}

// RecordRateLimitHit counts one rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attributes ...attribute.KeyValue) {
	if m.RateLimitHits == nil || !m.settings.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
}

// RecordCertReload counts a certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m.CertReloadCount == nil || !m.settings.Infrastructure.TrackCertReloads {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCertExpiry publishes the remaining lifetime of the serving certificate
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if m.CertExpiryTime == nil || !m.settings.Infrastructure.TrackCertReloads {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}

type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

func (om *ObservabilityManager) otlpEnabled() bool {
	return om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

func (om *ObservabilityManager) customMetricsConfig() config.CustomMetricsConfig {
	if om.fullConfig != nil {
		return om.fullConfig.Observability.CustomMetrics
	}
	return config.CustomMetricsConfig{
		Matching:       config.MatchingMetricsConfig{Enabled: true, TrackDuration: true, TrackScores: true},
		Infrastructure: config.InfrastructureMetricsConfig{TrackRateLimits: true, TrackCertReloads: true},
	}
}
