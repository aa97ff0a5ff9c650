package expiry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcslicense/internal/document"
	licenseErrors "rcslicense/internal/errors"
	"rcslicense/internal/shared/testutil"
)

func TestEvaluateNoExpiry(t *testing.T) {
	status, err := Evaluate(testutil.DefaultDocument(), testutil.FixedNow)
	require.NoError(t, err)
	assert.Equal(t, Valid, status.Kind)
	assert.Nil(t, status.Visible)
	assert.Nil(t, status.Hidden)
	assert.NoError(t, status.Err())
}

func TestEvaluateHiddenExpiryBoundary(t *testing.T) {
	now := testutil.FixedNow

	tests := []struct {
		name   string
		hidden time.Time
		want   Kind
	}{
		{"one second in the past", now.Add(-time.Second), HiddenExpired},
		{"exactly now", now, HiddenExpired},
		{"one second in the future", now.Add(time.Second), Valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := PackHidden(tt.hidden)
			require.NoError(t, err)
			doc := testutil.DefaultDocument()
			doc.Set(document.FieldDigestSeed, seed)

			status, err := Evaluate(doc, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Kind)
			require.NotNil(t, status.Hidden)
			assert.True(t, tt.hidden.Equal(*status.Hidden))
			if tt.want == HiddenExpired {
				assert.True(t, errors.Is(status.Err(), licenseErrors.ErrLicenseHiddenExpired))
			}
		})
	}
}

func TestEvaluateVisibleExpiry(t *testing.T) {
	now := testutil.FixedNow

	tests := []struct {
		name   string
		expiry string
		want   Kind
	}{
		{"past date", "2024-05-31", Expired},
		{"future date", "2024-06-02", Valid},
		{"ruby time string past", "2024-06-01 11:59:59 UTC", Expired},
		{"ruby time string future", "2024-06-01 12:00:01 UTC", Valid},
		{"offset is honoured", "2024-06-01 14:30:00 +0300", Expired},
		{"zone-less is utc", "2024-06-01T12:00:00", Expired},
		{"rfc3339 future", "2024-06-01T12:00:01Z", Valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.DefaultDocument()
			doc.Set(document.FieldExpiry, tt.expiry)

			status, err := Evaluate(doc, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Kind)
			require.NotNil(t, status.Visible)
		})
	}
}

func TestEvaluateVisibleWinsOverHidden(t *testing.T) {
	doc := testutil.DefaultDocument()
	doc.Set(document.FieldExpiry, "2020-01-01")
	seed, err := PackHidden(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	doc.Set(document.FieldDigestSeed, seed)

	status, err := Evaluate(doc, testutil.FixedNow)
	require.NoError(t, err)
	assert.Equal(t, Expired, status.Kind)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), status.At)
	assert.EqualError(t, status.Err(), "Invalid License File: license expired on 2020-01-01 00:00:00 UTC")
}

func TestEvaluateMalformed(t *testing.T) {
	tests := []struct {
		name  string
		field document.Symbol
		value any
	}{
		{"expiry garbage", document.FieldExpiry, "someday"},
		{"expiry wrong type", document.FieldExpiry, int64(5)},
		{"seed too short", document.FieldDigestSeed, document.Binary{1, 2}},
		{"seed wrong type", document.FieldDigestSeed, int64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.DefaultDocument()
			doc.Set(tt.field, tt.value)
			_, err := Evaluate(doc, testutil.FixedNow)
			assert.True(t, errors.Is(err, licenseErrors.ErrMalformedDocument), err)
		})
	}
}

func TestPackHidden(t *testing.T) {
	seed, err := PackHidden(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, document.Binary{0x00, 0x8e, 0xa4, 0x54}, seed)

	at, err := UnpackHidden([]byte{0x00, 0x8e, 0xa4, 0x54, 0xff})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), at)

	_, err = PackHidden(time.Date(2110, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, licenseErrors.ErrInvalidOverride))
	_, err = PackHidden(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, licenseErrors.ErrInvalidOverride))
}

func TestParseHiddenDate(t *testing.T) {
	at, err := ParseHiddenDate("2030-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC), at)

	for _, bad := range []string{"", "31-12-2030", "2030-13-01", "tomorrow"} {
		_, err := ParseHiddenDate(bad)
		assert.True(t, errors.Is(err, licenseErrors.ErrInvalidOverride), bad)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "expired", Expired.String())
	assert.Equal(t, "hidden_expired", HiddenExpired.String())
}
