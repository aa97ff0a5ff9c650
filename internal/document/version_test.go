package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b        string
		wantCmp     int
		wantNumeric bool
	}{
		{"9.6", "9.6", 0, true},
		{"9.5", "9.6", -1, true},
		{"9.6", "9.5", 1, true},
		{"9.10", "9.6", 1, true},
		{"9.2", "9.10", -1, true},
		{"9.6", "9.6.0", 0, true},
		{"9.6.1", "9.6", 1, true},
		{"10", "9.6", 1, true},
		// Non-numeric tokens keep the legacy string ordering.
		{"9.6a", "9.6", 1, false},
		{"beta", "9.6", 1, false},
		{"", "9.6", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			cmp, numeric := CompareVersions(tt.a, tt.b)
			assert.Equal(t, tt.wantCmp, cmp)
			assert.Equal(t, tt.wantNumeric, numeric)
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("9.6.12")
	require.NoError(t, err)
	assert.Equal(t, []int{9, 6, 12}, v)

	for _, bad := range []string{"", "9..6", "9.x", "-1.0", "+9.6", "9.6 "} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}
