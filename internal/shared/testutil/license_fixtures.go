package testutil

import (
	"bytes"
	"io"
	"time"

	"rcslicense/internal/document"
)

// FixedNow is the clock used by license tests.
var FixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// Watermark is the watermark used in fixtures.
const Watermark = "AbCd-_12"

// FixedClock returns a clock function that always returns now.
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// ZeroReader returns a reader producing n zero bytes, enough for n/20
// decoy digests.
func ZeroReader(n int) io.Reader {
	return bytes.NewReader(make([]byte, n))
}

// DefaultDocument returns a fresh current-version document with the fixture
// watermark.
func DefaultDocument() *document.Document {
	return document.New(document.CurrentVersion, Watermark)
}

// LegacyDocument returns a document shaped the way a 9.2-era generator
// wrote it: correlation instead of profiling, archive as an integer, no
// winmo platform.
func LegacyDocument(version string) *document.Document {
	doc := document.New(version, Watermark)
	doc.Delete(document.FieldProfiling)
	doc.Set(document.FieldCorrelation, true)
	doc.Delete(document.FieldScout)
	return doc
}

// LegacyYAML is a license file as the legacy generator wrote it for a 9.3
// license with a hidden expiry of 2015-01-01 and unverifiable seal.
const LegacyYAML = `---
:type: reusable
:serial: 'off'
:version: '9.3'
:users: 5
:agents:
  :total: 10
  :desktop: 5
  :mobile: 5
  :windows:
  - true
  - false
  :osx:
  - false
  - false
:alerting: false
:correlation: true
:archive: 0
:digest_seed: !binary |-
  AI6kVA==
:check: AbCd-_12
:digest: '0000000000000000000000000000000000000000'
:signature: '00'
:integrity: '00'
`
