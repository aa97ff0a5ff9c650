package license

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	licenseErrors "rcslicense/internal/errors"
	"rcslicense/internal/infrastructure"
)

// logAction logs a service action with its result and mirrors it as a span event.
func (s *Service) logAction(ctx context.Context, level slog.Level, action, result string, attrs ...slog.Attr) {
	infrastructure.AddSpanEvent(ctx, "license."+action,
		attribute.String("action", action),
		attribute.String("result", result),
	)

	allAttrs := []slog.Attr{
		slog.String("action", action),
		slog.String("result", result),
	}
	allAttrs = append(allAttrs, attrs...)

	s.logger.LogAttrs(ctx, level, action+" "+result, allAttrs...)
}

// classifyError maps an error to a low-cardinality label.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, licenseErrors.ErrLicenseExpired):
		return "expired"
	case errors.Is(err, licenseErrors.ErrLicenseHiddenExpired):
		return "hidden_expired"
	case errors.Is(err, licenseErrors.ErrAgentLimits):
		return "agent_limits"
	case errors.Is(err, licenseErrors.ErrMalformedDocument):
		return "malformed"
	case errors.Is(err, licenseErrors.ErrInvalidOverride):
		return "invalid_override"
	default:
		return "internal"
	}
}
