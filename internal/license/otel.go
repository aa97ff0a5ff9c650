package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "license-service"
	MeterName  = "license-service"
)

// LicenseMetrics holds the license service instruments.
type LicenseMetrics struct {
	Operations        metric.Int64Counter
	OperationFailures metric.Int64Counter
	OperationDuration metric.Float64Histogram

	Advisories  metric.Int64Counter
	Migrations  metric.Int64Counter
	Expirations metric.Int64Counter

	DocumentSize metric.Int64Histogram
}

// InitializeLicenseMetrics creates the license service instruments.
func InitializeLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	metrics := &LicenseMetrics{}

	var err error

	metrics.Operations, err = meter.Int64Counter(
		"license_operations_total",
		metric.WithDescription("Total number of license service operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	metrics.OperationFailures, err = meter.Int64Counter(
		"license_operation_failures_total",
		metric.WithDescription("Total number of failed license service operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation failures counter: %w", err)
	}

	metrics.OperationDuration, err = meter.Float64Histogram(
		"license_operation_duration_seconds",
		metric.WithDescription("License service operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	metrics.Advisories, err = meter.Int64Counter(
		"license_advisories_total",
		metric.WithDescription("Total number of advisory integrity findings on loaded licenses"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create advisories counter: %w", err)
	}

	metrics.Migrations, err = meter.Int64Counter(
		"license_migrations_total",
		metric.WithDescription("Total number of migration rules applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations counter: %w", err)
	}

	metrics.Expirations, err = meter.Int64Counter(
		"license_expirations_total",
		metric.WithDescription("Total number of licenses rejected as expired"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expirations counter: %w", err)
	}

	metrics.DocumentSize, err = meter.Int64Histogram(
		"license_document_size_bytes",
		metric.WithDescription("Size of serialized license documents"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document size histogram: %w", err)
	}

	return metrics, nil
}

// startSpan opens a span for a service operation.
func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("license.operation", operation),
		attribute.String("component", "license_service"),
	)
	return s.tracer.Start(ctx, "license."+operation, trace.WithAttributes(attrs...))
}

// finishSpan records the outcome of an operation on its span and in the
// operation metrics.
func (s *Service) finishSpan(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	duration := time.Since(start)
	s.recordOperationMetrics(ctx, operation, duration, err)

	span.SetAttributes(
		attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
		attribute.Bool("license.success", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("license.error_type", classifyError(err)))
	} else {
		span.SetStatus(codes.Ok, operation+" completed")
	}
	span.End()
}

func (s *Service) recordOperationMetrics(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)
	s.metrics.Operations.Add(ctx, 1, attrs)
	s.metrics.OperationDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		s.metrics.OperationFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error_type", classifyError(err)),
		))
	}
}

func (s *Service) recordReportMetrics(ctx context.Context, report *Report) {
	for _, a := range report.Advisories {
		s.metrics.Advisories.Add(ctx, 1, metric.WithAttributes(attribute.String("code", a.Code)))
	}
	s.recordMigrationMetrics(ctx, report.Migrations)
}

func (s *Service) recordMigrationMetrics(ctx context.Context, rules []string) {
	for _, rule := range rules {
		s.metrics.Migrations.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
	}
}
