package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcslicense/internal/document"
	licenseErrors "rcslicense/internal/errors"
)

// zeroDigest makes the decoy digest deterministic.
func zeroDigest() Option {
	return WithRandom(bytes.NewReader(make([]byte, DigestSize)))
}

// Vectors computed independently (hashlib, hmac and openssl enc) for a
// default document with watermark AbCd-_12 and an all-zero digest.
func TestComputeKnownAnswers(t *testing.T) {
	tests := []struct {
		version   string
		signature string
		integrity string
	}{
		{
			version:   "9.6",
			signature: "6cfb9b8b3f84e7a843ffc76fae379c0a713fec7887aa3ef034319350556311b8",
			integrity: "f1cf8d8dababc04a4b7d093572504220bc93ad10f4ed82296f4f7cfec55276d2b41afce2b3bbb44ee415c61a321c8701",
		},
		{
			version:   "9.5",
			signature: "66080e42a0af8ec43aa5840112830b10a6949a2d1b205a544e3c680504c3770e",
			integrity: "4e6589b8515afd89bdd31d93e26ba65754c445887cfda9914212575734437103230ad7217cf42dd3d0c8e28a6d75d17c",
		},
		{
			// Numerically above the breakpoint although "9.10" < "9.6" as text.
			version:   "9.10",
			signature: "471d815ba68790b09550bbb985a795d49b2cecd330d490f999a6cbe4b65b5e35",
			integrity: "37acfcafcfaf9476aa7cb65fcc54377aa2c4fe126a6f989a6a3aee7b0ecdda3b6a34fdfadcc17142853b67a888e3c24d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			doc := document.New(tt.version, "AbCd-_12")
			seal, err := NewEngine(DefaultKeys(), zeroDigest()).Compute(doc)
			require.NoError(t, err)

			assert.Equal(t, strings.Repeat("00", DigestSize), seal.Digest)
			assert.Equal(t, tt.signature, seal.Signature)
			assert.Equal(t, tt.integrity, seal.Integrity)

			v, _ := doc.Get(document.FieldIntegrity)
			assert.Equal(t, tt.integrity, v)
			keys := doc.Map().Keys()
			assert.Equal(t, []any{document.FieldDigest, document.FieldSignature, document.FieldIntegrity}, keys[len(keys)-3:])
		})
	}
}

func TestComputeThenVerify(t *testing.T) {
	engine := NewEngine(DefaultKeys())
	doc := document.New(document.CurrentVersion, "AbCd-_12")
	doc.Set(document.FieldDigestSeed, document.Binary{0x00, 0x8e, 0xa4, 0x54})

	_, err := engine.Compute(doc)
	require.NoError(t, err)

	report, err := engine.Verify(doc)
	require.NoError(t, err)
	assert.True(t, report.SignatureValid)
	assert.True(t, report.IntegrityValid)
	assert.True(t, report.NumericVersionOrder)
	assert.True(t, report.Valid())
}

func TestComputeReplacesOldSeal(t *testing.T) {
	engine := NewEngine(DefaultKeys())
	doc := document.New(document.CurrentVersion, "AbCd-_12")

	first, err := engine.Compute(doc)
	require.NoError(t, err)
	doc.Set(document.FieldUsers, int64(5))
	second, err := engine.Compute(doc)
	require.NoError(t, err)

	assert.NotEqual(t, first.Integrity, second.Integrity)
	assert.Equal(t, doc.Map().Len(), document.New(document.CurrentVersion, "x").Map().Len()+3)

	report, err := engine.Verify(doc)
	require.NoError(t, err)
	assert.True(t, report.Valid())
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(doc *document.Document)
		wantSignature bool
		wantIntegrity bool
	}{
		{
			name:   "limit changed",
			mutate: func(doc *document.Document) { doc.Set(document.FieldUsers, int64(100)) },
		},
		{
			name: "version changed",
			mutate: func(doc *document.Document) {
				doc.SetVersion("9.7")
			},
		},
		{
			name:          "integrity replaced",
			mutate:        func(doc *document.Document) { doc.Set(document.FieldIntegrity, "00") },
			wantSignature: true,
		},
		{
			name: "signature replaced",
			mutate: func(doc *document.Document) {
				doc.Set(document.FieldSignature, strings.Repeat("a", 64))
			},
		},
		{
			name: "seal removed",
			mutate: func(doc *document.Document) {
				doc.Delete(document.FieldSignature)
				doc.Delete(document.FieldIntegrity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(DefaultKeys())
			doc := document.New(document.CurrentVersion, "AbCd-_12")
			_, err := engine.Compute(doc)
			require.NoError(t, err)

			tt.mutate(doc)

			report, err := engine.Verify(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSignature, report.SignatureValid)
			assert.Equal(t, tt.wantIntegrity, report.IntegrityValid)
		})
	}
}

func TestIntegrityDependsOnVersion(t *testing.T) {
	seal := func(version string) Seal {
		doc := document.New(version, "AbCd-_12")
		s, err := NewEngine(DefaultKeys(), zeroDigest()).Compute(doc)
		require.NoError(t, err)
		return s
	}
	assert.NotEqual(t, seal("9.5").Integrity, seal("9.6").Integrity)
}

func TestPassphrase(t *testing.T) {
	engine := NewEngine(DefaultKeys())

	tests := []struct {
		version     string
		want        string
		wantNumeric bool
	}{
		{"9.2", "€ ∫∑x=1 ∆t π™", true},
		{"9.5.9", "€ ∫∑x=1 ∆t π™", true},
		{"9.6", "€ ∫∑x=1 ∆t π™ 9.6 √µ…", true},
		{"10.0", "€ ∫∑x=1 ∆t π™ 10.0 √µ…", true},
		{"9.6-beta", "€ ∫∑x=1 ∆t π™ 9.6-beta √µ…", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, numeric := engine.Passphrase(tt.version)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantNumeric, numeric)
		})
	}
}

func TestAlternateKeys(t *testing.T) {
	keys := DefaultKeys()
	keys.SignatureKey = "test"
	doc := document.New(document.CurrentVersion, "AbCd-_12")

	_, err := NewEngine(keys).Compute(doc)
	require.NoError(t, err)

	report, err := NewEngine(DefaultKeys()).Verify(doc)
	require.NoError(t, err)
	assert.False(t, report.SignatureValid)
	assert.True(t, report.IntegrityValid)
}

func TestComputeRequiresVersion(t *testing.T) {
	doc := document.FromMap(document.NewMap())
	_, err := NewEngine(DefaultKeys()).Compute(doc)
	assert.True(t, errors.Is(err, licenseErrors.ErrMalformedDocument))
}

func TestComputeKeepsSealOnDigestFailure(t *testing.T) {
	doc := document.New("9.6", "AbCd-_12")
	_, err := NewEngine(DefaultKeys(), zeroDigest()).Compute(doc)
	require.NoError(t, err)
	before := doc.Canonical()

	failing := NewEngine(DefaultKeys(), WithRandom(iotest.ErrReader(errors.New("entropy exhausted"))))
	_, err = failing.Compute(doc)
	assert.ErrorContains(t, err, "failed to generate digest: entropy exhausted")

	assert.Equal(t, before, doc.Canonical())
	report, err := NewEngine(DefaultKeys()).Verify(doc)
	require.NoError(t, err)
	assert.True(t, report.Valid())
}

func TestPrimitives(t *testing.T) {
	assert.Equal(t, "54027d312b3eda153cc9ada7be5e497e", hex.EncodeToString(deriveKey(DefaultKeys().Passphrase)))
	assert.Equal(t, "44c04ec4e1288ece74594385c0e66b56ce56c18a0f6d2a5efe1a0b6891fdbe6a", hmacHex(DefaultKeys().SignatureKey, "{}"))

	key := deriveKey("k")
	plain := []byte(strings.Repeat("x", 32))
	ct, err := encryptCBC(key, plain)
	require.NoError(t, err)
	require.Len(t, ct, 48, "a full padding block follows block-aligned input")

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, ct)
	assert.Equal(t, plain, out[:32])
	assert.Equal(t, bytes.Repeat([]byte{16}, 16), out[32:])
}

func TestSecureCompare(t *testing.T) {
	tests := []struct {
		name     string
		a        []byte
		b        []byte
		expected bool
	}{
		{name: "Equal bytes", a: []byte("abc"), b: []byte("abc"), expected: true},
		{name: "Different bytes", a: []byte("abc"), b: []byte("abd"), expected: false},
		{name: "Different lengths", a: []byte("abc"), b: []byte("abcd"), expected: false},
		{name: "Both empty", a: []byte{}, b: []byte{}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SecureCompare(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}
