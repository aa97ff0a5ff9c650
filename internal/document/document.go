// Package document holds the in-memory license document: an ordered mapping
// of limits, feature flags and verification fields, the defaults of a freshly
// generated license, and the canonical text its digests are computed over.
package document

import (
	licenseErrors "rcslicense/internal/errors"
)

// CurrentVersion is the schema version written by this generator.
const CurrentVersion = "9.6"

// Field keys of a license document.
const (
	FieldType         Symbol = "type"
	FieldSerial       Symbol = "serial"
	FieldVersion      Symbol = "version"
	FieldUsers        Symbol = "users"
	FieldAgents       Symbol = "agents"
	FieldAlerting     Symbol = "alerting"
	FieldProfiling    Symbol = "profiling"
	FieldCorrelation  Symbol = "correlation"
	FieldIntelligence Symbol = "intelligence"
	FieldConnectors   Symbol = "connectors"
	FieldRMI          Symbol = "rmi"
	FieldNIA          Symbol = "nia"
	FieldShards       Symbol = "shards"
	FieldExploits     Symbol = "exploits"
	FieldDeletion     Symbol = "deletion"
	FieldModify       Symbol = "modify"
	FieldScout        Symbol = "scout"
	FieldOCR          Symbol = "ocr"
	FieldTranslation  Symbol = "translation"
	FieldArchive      Symbol = "archive"
	FieldCollectors   Symbol = "collectors"
	FieldCheck        Symbol = "check"
	FieldExpiry       Symbol = "expiry"
	FieldDigestSeed   Symbol = "digest_seed"
	FieldDigest       Symbol = "digest"
	FieldSignature    Symbol = "signature"
	FieldIntegrity    Symbol = "integrity"
)

// Keys of the agents record.
const (
	AgentsTotal   Symbol = "total"
	AgentsDesktop Symbol = "desktop"
	AgentsMobile  Symbol = "mobile"
	PlatformWinMo Symbol = "winmo"
)

// Platforms lists the agent platforms of the current schema in document order.
var Platforms = []Symbol{"windows", "osx", "linux", "winphone", "ios", "blackberry", "bb10", "symbian", "android"}

// TypeReusable is the only license type issued.
const TypeReusable = "reusable"

// SerialOff marks a license that does not require a HASP dongle.
const SerialOff = "off"

// Document is a single license. It is not safe for concurrent use: each
// operation owns its document from load to serialization.
type Document struct {
	root *Map
}

// New returns a document with the defaults of a freshly generated license:
// one login seat, one collector, no agents.
func New(version, check string) *Document {
	agents := NewMap(
		Entry{AgentsTotal, int64(0)},
		Entry{AgentsDesktop, int64(0)},
		Entry{AgentsMobile, int64(0)},
	)
	for _, p := range Platforms {
		agents.Set(p, Pair(false, false))
	}

	root := NewMap(
		Entry{FieldType, TypeReusable},
		Entry{FieldSerial, SerialOff},
		Entry{FieldVersion, version},
		Entry{FieldUsers, int64(1)},
		Entry{FieldAgents, agents},
		Entry{FieldAlerting, false},
		Entry{FieldProfiling, false},
		Entry{FieldIntelligence, false},
		Entry{FieldConnectors, false},
		Entry{FieldRMI, Pair(false, false)},
		Entry{FieldNIA, Pair(int64(0), false)},
		Entry{FieldShards, int64(1)},
		Entry{FieldExploits, false},
		Entry{FieldDeletion, false},
		Entry{FieldModify, false},
		Entry{FieldScout, true},
		Entry{FieldOCR, true},
		Entry{FieldTranslation, false},
		Entry{FieldArchive, int64(0)},
		Entry{FieldCollectors, NewMap(
			Entry{Symbol("collectors"), int64(1)},
			Entry{Symbol("anonymizers"), int64(0)},
		)},
	)
	if check != "" {
		root.Set(FieldCheck, check)
	}
	return &Document{root: root}
}

// FromMap wraps a deserialized mapping.
func FromMap(m *Map) *Document {
	if m == nil {
		m = NewMap()
	}
	return &Document{root: m}
}

// Map returns the underlying mapping, shared with the document.
func (d *Document) Map() *Map {
	return d.root
}

// Get returns a top-level field.
func (d *Document) Get(key Symbol) (any, bool) {
	return d.root.Get(key)
}

// Set stores a top-level field.
func (d *Document) Set(key Symbol, value any) {
	d.root.Set(key, value)
}

// Delete removes a top-level field.
func (d *Document) Delete(key Symbol) (any, bool) {
	return d.root.Delete(key)
}

// Has reports whether a top-level field is present and not nil.
func (d *Document) Has(key Symbol) bool {
	return d.root.Has(key)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{root: d.root.Clone()}
}

// Canonical renders the document without the excluded fields.
func (d *Document) Canonical(exclude ...Symbol) string {
	return Inspect(d.root.Without(exclude...))
}

// Version returns the declared schema version.
func (d *Document) Version() (string, error) {
	v, ok := d.root.Get(FieldVersion)
	if !ok || v == nil {
		return "", licenseErrors.Malformed(string(FieldVersion), "missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", licenseErrors.Malformed(string(FieldVersion), "expected a string, got %s", Inspect(v))
	}
	return s, nil
}

// SetVersion overrides the declared schema version.
func (d *Document) SetVersion(v string) {
	d.root.Set(FieldVersion, v)
}

// Serial returns the dongle serial, "off" when no dongle is required.
func (d *Document) Serial() string {
	if s, ok := d.stringField(FieldSerial); ok {
		return s
	}
	return ""
}

// Check returns the watermark.
func (d *Document) Check() (string, bool) {
	v, ok := d.root.Get(FieldCheck)
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		if !t {
			return "", false
		}
	}
	// Any other truthy watermark counts as set, whatever its type.
	return Inspect(v), true
}

// Expiry returns the visible expiry text.
func (d *Document) Expiry() (string, bool) {
	return d.stringField(FieldExpiry)
}

// DigestSeed returns the raw bytes of the hidden expiry.
func (d *Document) DigestSeed() ([]byte, bool) {
	v, ok := d.root.Get(FieldDigestSeed)
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case Binary:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

// Agents returns the agents record.
func (d *Document) Agents() (*Map, error) {
	v, ok := d.root.Get(FieldAgents)
	if !ok || v == nil {
		return nil, licenseErrors.Malformed(string(FieldAgents), "missing")
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, licenseErrors.Malformed(string(FieldAgents), "expected a mapping")
	}
	return m, nil
}

// AgentCounts returns agents.total, agents.desktop and agents.mobile.
func (d *Document) AgentCounts() (total, desktop, mobile int64, err error) {
	agents, err := d.Agents()
	if err != nil {
		return 0, 0, 0, err
	}
	counts := make([]int64, 3)
	for i, key := range []Symbol{AgentsTotal, AgentsDesktop, AgentsMobile} {
		v, _ := agents.Get(key)
		n, ok := Int(v)
		if !ok {
			return 0, 0, 0, licenseErrors.Malformed("agents."+string(key), "expected an integer, got %s", Inspect(v))
		}
		counts[i] = n
	}
	return counts[0], counts[1], counts[2], nil
}

// ValidateAgents enforces agents.total >= agents.desktop and agents.total >= agents.mobile.
func (d *Document) ValidateAgents() error {
	total, desktop, mobile, err := d.AgentCounts()
	if err != nil {
		return err
	}
	if total < desktop || total < mobile {
		return licenseErrors.NewAgentLimitsError(total, desktop, mobile)
	}
	return nil
}

func (d *Document) stringField(key Symbol) (string, bool) {
	v, ok := d.root.Get(key)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
