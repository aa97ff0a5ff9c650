package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"rcslicense/internal/document"
)

// DigestSize is the number of random bytes behind the decoy digest.
const DigestSize = 20

// Seal holds the verification fields written by Compute.
type Seal struct {
	Digest    string
	Signature string
	Integrity string
}

// VerificationReport is the outcome of Verify. Mismatches are advisory: the
// caller decides what to do with them.
type VerificationReport struct {
	SignatureValid bool
	IntegrityValid bool
	// NumericVersionOrder is false when the version could not be compared
	// numerically against the breakpoint and text ordering was used instead.
	NumericVersionOrder bool
}

// Valid reports whether both checks matched.
func (r VerificationReport) Valid() bool {
	return r.SignatureValid && r.IntegrityValid
}

// Engine computes and verifies license seals. It holds no mutable state and
// may be shared; the documents it is given may not.
//
// Only the integrity field is meaningful. The digest is random and the
// signature is an HMAC under a published key; both exist to look like the
// real check to someone reading the file.
type Engine struct {
	keys   Keys
	random io.Reader
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom replaces crypto/rand as the source of the decoy digest.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) {
		e.random = r
	}
}

// NewEngine creates an engine using the given keys.
func NewEngine(keys Keys, opts ...Option) *Engine {
	e := &Engine{keys: keys, random: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Keys returns the keys the engine was built with.
func (e *Engine) Keys() Keys {
	return e.keys
}

// Passphrase returns the integrity passphrase for a version and whether the
// version could be ordered numerically against the breakpoint.
func (e *Engine) Passphrase(version string) (string, bool) {
	cmp, numeric := document.CompareVersions(version, e.keys.Breakpoint)
	if cmp < 0 {
		return e.keys.Passphrase, numeric
	}
	return fmt.Sprintf("%s %s %s", e.keys.Passphrase, version, e.keys.PassphraseSuffix), numeric
}

// Compute replaces the verification fields of doc. The digest keeps its
// position when already present; signature and integrity are appended, in
// that order, because each is computed over the fields before it.
func (e *Engine) Compute(doc *document.Document) (Seal, error) {
	version, err := doc.Version()
	if err != nil {
		return Seal{}, err
	}

	raw := make([]byte, DigestSize)
	if _, err := io.ReadFull(e.random, raw); err != nil {
		return Seal{}, fmt.Errorf("failed to generate digest: %w", err)
	}
	seal := Seal{Digest: hex.EncodeToString(raw)}

	// Seal a copy so doc is only touched once every value is known.
	work := doc.Clone()
	work.Delete(document.FieldIntegrity)
	work.Delete(document.FieldSignature)
	work.Set(document.FieldDigest, seal.Digest)

	seal.Signature = hmacHex(e.keys.SignatureKey, work.Canonical())
	work.Set(document.FieldSignature, seal.Signature)

	passphrase, _ := e.Passphrase(version)
	seal.Integrity, err = sealHex(passphrase, work.Canonical())
	if err != nil {
		return Seal{}, fmt.Errorf("failed to compute integrity: %w", err)
	}

	doc.Delete(document.FieldIntegrity)
	doc.Delete(document.FieldSignature)
	doc.Set(document.FieldDigest, seal.Digest)
	doc.Set(document.FieldSignature, seal.Signature)
	doc.Set(document.FieldIntegrity, seal.Integrity)

	return seal, nil
}

// Verify recomputes the signature and integrity of doc and compares them to
// the stored values. The document is not modified.
func (e *Engine) Verify(doc *document.Document) (VerificationReport, error) {
	version, err := doc.Version()
	if err != nil {
		return VerificationReport{}, err
	}

	passphrase, numeric := e.Passphrase(version)
	report := VerificationReport{NumericVersionOrder: numeric}

	signature := hmacHex(e.keys.SignatureKey, doc.Canonical(document.FieldIntegrity, document.FieldSignature))
	report.SignatureValid = storedEquals(doc, document.FieldSignature, signature)

	integrity, err := sealHex(passphrase, doc.Canonical(document.FieldIntegrity))
	if err != nil {
		return VerificationReport{}, fmt.Errorf("failed to compute integrity: %w", err)
	}
	report.IntegrityValid = storedEquals(doc, document.FieldIntegrity, integrity)

	return report, nil
}

func storedEquals(doc *document.Document, field document.Symbol, want string) bool {
	v, ok := doc.Get(field)
	if !ok {
		return false
	}
	got, ok := v.(string)
	return ok && SecureCompare([]byte(got), []byte(want))
}
