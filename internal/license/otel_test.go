package license

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	licenseErrors "rcslicense/internal/errors"
	"rcslicense/internal/infrastructure"
	"rcslicense/internal/shared/testutil"
)

func TestServiceRecordsMetrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:   "license-test",
		EnableMetrics: true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	svc := newTestService(t, WithMeter(providers.Meter), WithTracer(providers.Tracer))
	ctx := context.Background()

	data, err := svc.Finalize(ctx, testutil.DefaultDocument())
	require.NoError(t, err)
	_, _, err = svc.Load(ctx, []byte("not: [valid"))
	require.Error(t, err)
	_, _, err = svc.Load(ctx, data)
	require.NoError(t, err)

	families, err := providers.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, " ")
	assert.Contains(t, joined, "license_operations")
	assert.Contains(t, joined, "license_operation_failures")
	assert.Contains(t, joined, "license_operation_duration_seconds")
	assert.Contains(t, joined, "license_document_size_bytes")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{licenseErrors.NewExpiredError(testutil.FixedNow), "expired"},
		{licenseErrors.NewHiddenExpiredError(testutil.FixedNow), "hidden_expired"},
		{licenseErrors.NewAgentLimitsError(0, 1, 0), "agent_limits"},
		{licenseErrors.Malformed("version", "missing"), "malformed"},
		{licenseErrors.InvalidOverride("hidden", "bad"), "invalid_override"},
		{assert.AnError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}
