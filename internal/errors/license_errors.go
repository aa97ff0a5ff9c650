package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Sentinel errors for license document processing. Everything wrapping one of
// these is fatal: the document must not be issued or accepted.
var (
	ErrLicenseExpired       = errors.New("license expired")
	ErrLicenseHiddenExpired = errors.New("license hiddenly expired")
	ErrAgentLimits          = errors.New("total is lower than desktop or mobile")
	ErrMalformedDocument    = errors.New("malformed license document")
	ErrInvalidOverride      = errors.New("invalid override")
)

// ValidationError describes a fatal problem with a license document.
type ValidationError struct {
	Kind   error
	Field  string
	At     time.Time
	Detail string
}

// Error implements the error interface using the legacy operator wording
func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrLicenseExpired:
		return fmt.Sprintf("Invalid License File: license expired on %s", e.At.UTC().Format(legacyTimeLayout))
	case ErrLicenseHiddenExpired:
		return fmt.Sprintf("Invalid License File: license hiddenly expired on %s", e.At.UTC().Format(legacyTimeLayout))
	case ErrAgentLimits:
		return "Invalid License File: " + ErrAgentLimits.Error()
	}

	msg := e.Kind.Error()
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap exposes the sentinel for errors.Is
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

const legacyTimeLayout = "2006-01-02 15:04:05 UTC"

// NewExpiredError reports a visible expiry reached at the given instant
func NewExpiredError(at time.Time) *ValidationError {
	return &ValidationError{Kind: ErrLicenseExpired, Field: "expiry", At: at}
}

// NewHiddenExpiredError reports a hidden expiry reached at the given instant
func NewHiddenExpiredError(at time.Time) *ValidationError {
	return &ValidationError{Kind: ErrLicenseHiddenExpired, Field: "digest_seed", At: at}
}

// NewAgentLimitsError reports agents.total below agents.desktop or agents.mobile
func NewAgentLimitsError(total, desktop, mobile int64) *ValidationError {
	return &ValidationError{
		Kind:   ErrAgentLimits,
		Field:  "agents",
		Detail: fmt.Sprintf("total=%d desktop=%d mobile=%d", total, desktop, mobile),
	}
}

// Malformed reports a field that is missing or has the wrong shape
func Malformed(field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: ErrMalformedDocument, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// InvalidOverride reports an unusable version or hidden expiry override
func InvalidOverride(field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: ErrInvalidOverride, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err belongs to the fatal validation taxonomy
func IsFatal(err error) bool {
	return errors.Is(err, ErrLicenseExpired) ||
		errors.Is(err, ErrLicenseHiddenExpired) ||
		errors.Is(err, ErrAgentLimits) ||
		errors.Is(err, ErrMalformedDocument)
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		data[k] = v
	}

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}
