package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessages(t *testing.T) {
	at := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"expired", NewExpiredError(at), "Invalid License File: license expired on 2015-01-01 00:00:00 UTC"},
		{"expired in another zone", NewExpiredError(at.In(time.FixedZone("X", 3600))), "Invalid License File: license expired on 2015-01-01 00:00:00 UTC"},
		{"hidden expired", NewHiddenExpiredError(at), "Invalid License File: license hiddenly expired on 2015-01-01 00:00:00 UTC"},
		{"agent limits", NewAgentLimitsError(1, 2, 0), "Invalid License File: total is lower than desktop or mobile"},
		{"malformed", Malformed("version", "missing"), "malformed license document: field version: missing"},
		{"malformed without field", Malformed("", "invalid YAML: %s", "oops"), "malformed license document: invalid YAML: oops"},
		{"override", InvalidOverride("hidden", "expected YYYY-MM-DD, got %q", "x"), `invalid override: field hidden: expected YYYY-MM-DD, got "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	tests := []struct {
		err   error
		kind  error
		fatal bool
	}{
		{NewExpiredError(time.Now()), ErrLicenseExpired, true},
		{NewHiddenExpiredError(time.Now()), ErrLicenseHiddenExpired, true},
		{NewAgentLimitsError(0, 1, 1), ErrAgentLimits, true},
		{Malformed("agents", "missing"), ErrMalformedDocument, true},
		{InvalidOverride("version", "empty"), ErrInvalidOverride, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("load: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.Equal(t, tt.fatal, IsFatal(wrapped))

			var verr *ValidationError
			require.True(t, errors.As(wrapped, &verr))
			assert.Equal(t, tt.kind, verr.Kind)
		})
	}

	assert.False(t, IsFatal(errors.New("disk full")))
}

func TestAgentLimitsErrorDetail(t *testing.T) {
	err := NewAgentLimitsError(2, 3, 1)
	assert.Equal(t, "agents", err.Field)
	assert.Equal(t, "total=2 desktop=3 mobile=1", err.Detail)
}

func TestProblemDetailsJSON(t *testing.T) {
	problem := NewProblemDetails(422, TypeLicenseExpired, "License Expired", "expired", "/api/v1/licenses/inspect").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, TypeLicenseExpired, got["type"])
	assert.Equal(t, "License Expired", got["title"])
	assert.Equal(t, float64(422), got["status"])
	assert.Equal(t, "expired", got["detail"])
	assert.Equal(t, "/api/v1/licenses/inspect", got["instance"])
	assert.Equal(t, "abc", got["trace_id"])
}

func TestProblemDetailsOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(NewProblemDetails(500, TypeInternal, "Internal Server Error", "", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
	assert.NotContains(t, string(data), "instance")
}

func TestProblemDetailsExtensionsCannotOverrideCoreFields(t *testing.T) {
	problem := NewProblemDetails(400, TypeValidation, "Validation Failed", "", "").
		WithExtension("status", 200)

	data, err := json.Marshal(problem)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":400`)
}
