package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// WatermarkLength is the length of a license watermark.
const WatermarkLength = 8

// NewWatermark returns a random URL-safe watermark: the first eight
// characters of the unpadded base64url encoding of eight random bytes.
// A nil reader means crypto/rand.
func NewWatermark(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	raw := make([]byte, 8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("failed to generate watermark: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:WatermarkLength], nil
}
