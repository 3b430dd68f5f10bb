package voicelink

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/voicelink/voicelink"

// otelInstrumentation holds OpenTelemetry instrumentation for the service.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	// Lockout tracking
	lockoutLatency metric.Float64Histogram
	lockoutCount   metric.Int64Counter
	lockoutLocks   metric.Int64Counter
	lockoutErrors  metric.Int64Counter

	// Listing queries
	queryLatency   metric.Float64Histogram
	queryCount     metric.Int64Counter
	queryErrors    metric.Int64Counter
	queryFallbacks metric.Int64Counter

	// Message sends
	sendLatency metric.Float64Histogram
	sendCount   metric.Int64Counter
	sendErrors  metric.Int64Counter

	// Chat summaries
	summaryLatency  metric.Float64Histogram
	summaryCount    metric.Int64Counter
	summaryDegraded metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	// Lockout metrics
	o.lockoutLatency, err = meter.Float64Histogram(
		"voicelink.lockout.duration",
		metric.WithDescription("Duration of lockout counter operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.lockoutCount, err = meter.Int64Counter(
		"voicelink.lockout.count",
		metric.WithDescription("Number of lockout counter operations"),
	)
	if err != nil {
		return err
	}

	o.lockoutLocks, err = meter.Int64Counter(
		"voicelink.lockout.locks",
		metric.WithDescription("Number of accounts locked by reaching the threshold"),
	)
	if err != nil {
		return err
	}

	o.lockoutErrors, err = meter.Int64Counter(
		"voicelink.lockout.errors",
		metric.WithDescription("Number of lockout operation errors"),
	)
	if err != nil {
		return err
	}

	// Query metrics
	o.queryLatency, err = meter.Float64Histogram(
		"voicelink.query.duration",
		metric.WithDescription("Duration of listing queries, fallback included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.queryCount, err = meter.Int64Counter(
		"voicelink.query.count",
		metric.WithDescription("Number of listing queries"),
	)
	if err != nil {
		return err
	}

	o.queryErrors, err = meter.Int64Counter(
		"voicelink.query.errors",
		metric.WithDescription("Number of listing query errors"),
	)
	if err != nil {
		return err
	}

	o.queryFallbacks, err = meter.Int64Counter(
		"voicelink.query.fallbacks",
		metric.WithDescription("Number of queries served by the full-scan fallback path"),
	)
	if err != nil {
		return err
	}

	// Send metrics
	o.sendLatency, err = meter.Float64Histogram(
		"voicelink.send.duration",
		metric.WithDescription("Duration of message send operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.sendCount, err = meter.Int64Counter(
		"voicelink.send.count",
		metric.WithDescription("Number of messages sent"),
	)
	if err != nil {
		return err
	}

	o.sendErrors, err = meter.Int64Counter(
		"voicelink.send.errors",
		metric.WithDescription("Number of send errors"),
	)
	if err != nil {
		return err
	}

	// Summary metrics
	o.summaryLatency, err = meter.Float64Histogram(
		"voicelink.summary.duration",
		metric.WithDescription("Duration of chat summary aggregation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.summaryCount, err = meter.Int64Counter(
		"voicelink.summary.count",
		metric.WithDescription("Number of chat summaries computed"),
	)
	if err != nil {
		return err
	}

	o.summaryDegraded, err = meter.Int64Counter(
		"voicelink.summary.degraded",
		metric.WithDescription("Number of chat summaries that degraded to empty"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// The returned func records the error and ends the span.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordLockout records metrics for a lockout counter operation.
func (o *otelInstrumentation) recordLockout(ctx context.Context, op string, duration time.Duration, locked bool, err error) {
	if !o.metricsEnabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", op))

	o.lockoutLatency.Record(ctx, duration.Seconds(), attrs)
	o.lockoutCount.Add(ctx, 1, attrs)
	if locked {
		o.lockoutLocks.Add(ctx, 1)
	}
	if err != nil {
		o.lockoutErrors.Add(ctx, 1, attrs)
	}
}

// recordQuery records metrics for a listing query.
func (o *otelInstrumentation) recordQuery(ctx context.Context, collection string, duration time.Duration, fellBack bool, err error) {
	if !o.metricsEnabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("collection", collection))

	o.queryLatency.Record(ctx, duration.Seconds(), attrs)
	o.queryCount.Add(ctx, 1, attrs)
	if fellBack {
		o.queryFallbacks.Add(ctx, 1, attrs)
	}
	if err != nil {
		o.queryErrors.Add(ctx, 1, attrs)
	}
}

// recordSend records metrics for a message send.
func (o *otelInstrumentation) recordSend(ctx context.Context, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}
	o.sendLatency.Record(ctx, duration.Seconds())
	o.sendCount.Add(ctx, 1)
	if err != nil {
		o.sendErrors.Add(ctx, 1)
	}
}

// recordSummary records metrics for a chat summary aggregation.
func (o *otelInstrumentation) recordSummary(ctx context.Context, duration time.Duration, degraded bool) {
	if !o.metricsEnabled {
		return
	}
	o.summaryLatency.Record(ctx, duration.Seconds())
	o.summaryCount.Add(ctx, 1)
	if degraded {
		o.summaryDegraded.Add(ctx, 1)
	}
}
