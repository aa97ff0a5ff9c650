package document

// Symbol is a mapping key or value that the legacy format renders as :name.
type Symbol string

// Binary is a byte string without a text encoding. It is rendered with \xHH
// escapes and stored as !binary in YAML.
type Binary []byte

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   any
	Value any
}

// Map is an insertion-ordered mapping. Replacing the value of an existing key
// keeps the key in place, adding a new key appends it. Supported value types
// are nil, bool, int64, float64, string, Symbol, Binary, []any and *Map.
type Map struct {
	entries []Entry
}

// NewMap creates a map holding the given entries in order.
func NewMap(entries ...Entry) *Map {
	m := &Map{}
	for _, e := range entries {
		m.SetKey(e.Key, e.Value)
	}
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the entries in insertion order. The slice must not be modified.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []any {
	keys := make([]any, 0, m.Len())
	for _, e := range m.Entries() {
		keys = append(keys, e.Key)
	}
	return keys
}

func (m *Map) index(key any) int {
	if m == nil {
		return -1
	}
	for i, e := range m.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under the symbol key.
func (m *Map) Get(key Symbol) (any, bool) {
	return m.GetKey(key)
}

// GetKey returns the value stored under an arbitrary key.
func (m *Map) GetKey(key any) (any, bool) {
	i := m.index(key)
	if i < 0 {
		return nil, false
	}
	return m.entries[i].Value, true
}

// Has reports whether the key is present with a non-nil value.
func (m *Map) Has(key Symbol) bool {
	v, ok := m.Get(key)
	return ok && v != nil
}

// Set stores value under the symbol key.
func (m *Map) Set(key Symbol, value any) {
	m.SetKey(key, value)
}

// SetKey stores value under an arbitrary key.
func (m *Map) SetKey(key any, value any) {
	if i := m.index(key); i >= 0 {
		m.entries[i].Value = value
		return
	}
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Delete removes the key and returns the value it held.
func (m *Map) Delete(key Symbol) (any, bool) {
	i := m.index(key)
	if i < 0 {
		return nil, false
	}
	v := m.entries[i].Value
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return v, true
}

// Without returns a shallow copy of m with the given keys removed.
func (m *Map) Without(keys ...Symbol) *Map {
	out := &Map{entries: make([]Entry, 0, m.Len())}
next:
	for _, e := range m.Entries() {
		for _, k := range keys {
			if e.Key == k {
				continue next
			}
		}
		out.entries = append(out.entries, e)
	}
	return out
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{entries: make([]Entry, len(m.entries))}
	for i, e := range m.entries {
		out.entries[i] = Entry{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case Binary:
		return append(Binary(nil), t...)
	default:
		return v
	}
}

// Int converts an integer value of any supported width to int64.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

// Pair builds the two-element arrays used for platform and feature flags.
func Pair(a, b any) []any {
	return []any{a, b}
}
