// Package expiry decides whether a license has expired, either through its
// visible expiry field or through the hidden expiry packed into digest_seed.
package expiry

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"rcslicense/internal/document"
	licenseErrors "rcslicense/internal/errors"
)

// Kind is the outcome of an evaluation.
type Kind int

const (
	Valid Kind = iota
	Expired
	HiddenExpired
)

func (k Kind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case HiddenExpired:
		return "hidden_expired"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Status is the result of Evaluate. At is the instant that was reached when
// Kind is not Valid. Visible and Hidden report the configured instants
// whatever the outcome.
type Status struct {
	Kind    Kind
	At      time.Time
	Visible *time.Time
	Hidden  *time.Time
}

// Err returns the fatal validation error for an expired status, nil when
// the license is valid.
func (s Status) Err() error {
	switch s.Kind {
	case Expired:
		return licenseErrors.NewExpiredError(s.At)
	case HiddenExpired:
		return licenseErrors.NewHiddenExpiredError(s.At)
	default:
		return nil
	}
}

// Evaluate checks the visible expiry first, then the hidden one. A license
// is expired from its expiry instant onwards.
func Evaluate(doc *document.Document, now time.Time) (Status, error) {
	now = now.UTC()
	var status Status

	if v, ok := doc.Get(document.FieldExpiry); ok && v != nil {
		text, isString := v.(string)
		if !isString {
			return Status{}, licenseErrors.Malformed(string(document.FieldExpiry), "expected a timestamp, got %s", document.Inspect(v))
		}
		at, err := ParseExpiry(text)
		if err != nil {
			return Status{}, err
		}
		status.Visible = &at
	}

	if doc.Has(document.FieldDigestSeed) {
		seed, ok := doc.DigestSeed()
		if !ok {
			v, _ := doc.Get(document.FieldDigestSeed)
			return Status{}, licenseErrors.Malformed(string(document.FieldDigestSeed), "expected packed bytes, got %s", document.Inspect(v))
		}
		at, err := UnpackHidden(seed)
		if err != nil {
			return Status{}, err
		}
		status.Hidden = &at
	}

	switch {
	case status.Visible != nil && !now.Before(*status.Visible):
		status.Kind, status.At = Expired, *status.Visible
	case status.Hidden != nil && !now.Before(*status.Hidden):
		status.Kind, status.At = HiddenExpired, *status.Hidden
	}
	return status, nil
}

// Layouts accepted for the visible expiry. Timestamps without a zone are UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.UnixDate,
}

// ParseExpiry parses the visible expiry and returns it in UTC.
func ParseExpiry(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, licenseErrors.Malformed(string(document.FieldExpiry), "unparseable timestamp %q", text)
}

// PackHidden encodes t as the 4-byte little-endian unsigned Unix time stored
// in digest_seed.
func PackHidden(t time.Time) (document.Binary, error) {
	sec := t.Unix()
	if sec < 0 || sec > math.MaxUint32 {
		return nil, licenseErrors.InvalidOverride(string(document.FieldDigestSeed), "%s is outside the representable range", t.UTC().Format(time.RFC3339))
	}
	out := make(document.Binary, 4)
	binary.LittleEndian.PutUint32(out, uint32(sec))
	return out, nil
}

// UnpackHidden decodes digest_seed. Bytes past the first four are ignored.
func UnpackHidden(seed []byte) (time.Time, error) {
	if len(seed) < 4 {
		return time.Time{}, licenseErrors.Malformed(string(document.FieldDigestSeed), "need 4 bytes, got %d", len(seed))
	}
	return time.Unix(int64(binary.LittleEndian.Uint32(seed)), 0).UTC(), nil
}

// ParseHiddenDate parses a YYYY-MM-DD hidden expiry date as midnight UTC.
func ParseHiddenDate(date string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, licenseErrors.InvalidOverride("hidden", "expected YYYY-MM-DD, got %q", date)
	}
	return t, nil
}
