package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	licenseErrors "rcslicense/internal/errors"
)

func TestNewDefaults(t *testing.T) {
	doc := New("9.6", "")

	v, err := doc.Version()
	require.NoError(t, err)
	assert.Equal(t, "9.6", v)
	assert.Equal(t, SerialOff, doc.Serial())

	_, ok := doc.Check()
	assert.False(t, ok, "empty watermark must not be stored")
	assert.False(t, doc.Has(FieldExpiry))
	assert.False(t, doc.Has(FieldDigestSeed))

	total, desktop, mobile, err := doc.AgentCounts()
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, desktop)
	assert.Zero(t, mobile)

	agents, err := doc.Agents()
	require.NoError(t, err)
	for _, p := range Platforms {
		got, ok := agents.Get(p)
		require.True(t, ok, p)
		assert.Equal(t, []any{false, false}, got)
	}
	assert.False(t, agents.Has(PlatformWinMo))
}

func TestMapOrdering(t *testing.T) {
	m := NewMap(Entry{Symbol("a"), 1}, Entry{Symbol("b"), 2})

	m.Set("a", 3)
	m.Set("c", 4)
	assert.Equal(t, []any{Symbol("a"), Symbol("b"), Symbol("c")}, m.Keys())
	assert.Equal(t, "{:a=>3, :b=>2, :c=>4}", Inspect(m))

	v, ok := m.Delete("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	m.Set("b", 5)
	assert.Equal(t, "{:a=>3, :c=>4, :b=>5}", Inspect(m))

	_, ok = m.Delete("missing")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	doc := New("9.6", "x")
	clone := doc.Clone()

	agents, err := clone.Agents()
	require.NoError(t, err)
	agents.Set(AgentsTotal, int64(10))

	total, _, _, err := doc.AgentCounts()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   string
		wantOK bool
	}{
		{"string", "AbCd-_12", "AbCd-_12", true},
		{"empty string", "", "", true},
		{"nil", nil, "", false},
		{"false", false, "", false},
		{"integer", int64(12), "12", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New("9.6", "")
			doc.Set(FieldCheck, tt.value)
			got, ok := doc.Check()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionErrors(t *testing.T) {
	doc := FromMap(nil)
	_, err := doc.Version()
	assert.True(t, errors.Is(err, licenseErrors.ErrMalformedDocument))

	doc.Set(FieldVersion, 9.6)
	_, err = doc.Version()
	assert.True(t, errors.Is(err, licenseErrors.ErrMalformedDocument))
}

func TestValidateAgents(t *testing.T) {
	tests := []struct {
		name                   string
		total, desktop, mobile int64
		wantErr                bool
	}{
		{"all zero", 0, 0, 0, false},
		{"total covers both", 10, 10, 5, false},
		{"desktop over total", 5, 6, 0, true},
		{"mobile over total", 5, 0, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New("9.6", "")
			agents, err := doc.Agents()
			require.NoError(t, err)
			agents.Set(AgentsTotal, tt.total)
			agents.Set(AgentsDesktop, tt.desktop)
			agents.Set(AgentsMobile, tt.mobile)

			err = doc.ValidateAgents()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, licenseErrors.ErrAgentLimits))
			assert.Equal(t, "Invalid License File: total is lower than desktop or mobile", err.Error())
		})
	}
}

func TestValidateAgentsMalformed(t *testing.T) {
	doc := New("9.6", "")
	doc.Set(FieldAgents, "none")
	assert.True(t, errors.Is(doc.ValidateAgents(), licenseErrors.ErrMalformedDocument))

	doc = New("9.6", "")
	agents, _ := doc.Agents()
	agents.Set(AgentsTotal, "ten")
	assert.True(t, errors.Is(doc.ValidateAgents(), licenseErrors.ErrMalformedDocument))
}

func TestDigestSeed(t *testing.T) {
	doc := New("9.6", "")
	doc.Set(FieldDigestSeed, Binary{1, 2, 3, 4})
	seed, ok := doc.DigestSeed()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, seed)

	doc.Set(FieldDigestSeed, "abcd")
	seed, ok = doc.DigestSeed()
	require.True(t, ok)
	assert.Equal(t, []byte("abcd"), seed)
}
