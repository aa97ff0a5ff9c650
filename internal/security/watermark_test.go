package security

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatermark(t *testing.T) {
	w, err := NewWatermark(bytes.NewReader([]byte{0xfb, 0xff, 0xbf, 0, 0, 0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, "-_-_AAAA", w)

	w, err = NewWatermark(nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]{8}$`), w)
}

func TestNewWatermarkShortRead(t *testing.T) {
	_, err := NewWatermark(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}
