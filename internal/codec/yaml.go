// Package codec reads and writes license files. Files are YAML documents in
// the layout the legacy Ruby generator produced: symbol keys written as
// ":name", the hidden expiry as a !binary scalar, YAML 1.1 booleans.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"rcslicense/internal/document"
	licenseErrors "rcslicense/internal/errors"
)

const (
	tagStr    = "!!str"
	tagInt    = "!!int"
	tagFloat  = "!!float"
	tagBool   = "!!bool"
	tagNull   = "!!null"
	tagBinary = "!!binary"

	// tagLegacyBinary is the local tag Psych writes for byte strings.
	tagLegacyBinary = "!binary"
	tagRubySymbol   = "!ruby/symbol"
	tagRubySym      = "!ruby/sym"
)

// base64LineWidth matches the line length of Ruby's pack('m').
const base64LineWidth = 60

var (
	intPattern   = regexp.MustCompile(`^[-+]?(0|[1-9][0-9_]*|0[0-7_]+|0x[0-9a-fA-F_]+|0b[01_]+)$`)
	floatPattern = regexp.MustCompile(`^[-+]?([0-9][0-9_]*)?\.[0-9_]*([eE][-+]?[0-9]+)?$|^[-+]?[0-9][0-9_]*[eE][-+]?[0-9]+$`)
	datePattern  = regexp.MustCompile(`^[0-9]{4}-[0-9]{1,2}-[0-9]{1,2}`)
)

// YAML is the license file codec.
type YAML struct{}

// Decode parses a license file into an ordered mapping.
func (YAML) Decode(data []byte) (*document.Map, error) {
	return Decode(data)
}

// Encode serializes an ordered mapping into a license file.
func (YAML) Encode(m *document.Map) ([]byte, error) {
	return Encode(m)
}

// Decode parses a license file. The top-level node must be a mapping.
func Decode(data []byte) (*document.Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, licenseErrors.Malformed("", "invalid YAML: %v", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, licenseErrors.Malformed("", "empty document")
	}

	v, err := decodeNode(root.Content[0], "")
	if err != nil {
		return nil, err
	}
	m, ok := v.(*document.Map)
	if !ok {
		return nil, licenseErrors.Malformed("", "top level is not a mapping")
	}
	return m, nil
}

func decodeNode(n *yaml.Node, path string) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, licenseErrors.Malformed(path, "dangling alias")
		}
		return decodeNode(n.Alias, path)
	case yaml.MappingNode:
		m := document.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := decodeNode(n.Content[i], path)
			if err != nil {
				return nil, err
			}
			switch key.(type) {
			case *document.Map, []any, document.Binary:
				return nil, licenseErrors.Malformed(path, "unsupported mapping key at line %d", n.Content[i].Line)
			}
			child := joinPath(path, key)
			value, err := decodeNode(n.Content[i+1], child)
			if err != nil {
				return nil, err
			}
			m.SetKey(key, value)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := decodeNode(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return decodeScalar(n, path)
	default:
		return nil, licenseErrors.Malformed(path, "unexpected YAML node kind %d", n.Kind)
	}
}

func decodeScalar(n *yaml.Node, path string) (any, error) {
	if n.Style&yaml.TaggedStyle != 0 {
		return decodeTagged(n, path)
	}
	if n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return n.Value, nil
	}
	return resolvePlain(n.Value), nil
}

func decodeTagged(n *yaml.Node, path string) (any, error) {
	switch n.Tag {
	case tagStr:
		return n.Value, nil
	case tagBinary, tagLegacyBinary:
		data, err := base64.StdEncoding.DecodeString(stripSpace(n.Value))
		if err != nil {
			return nil, licenseErrors.Malformed(path, "invalid binary scalar: %v", err)
		}
		return document.Binary(data), nil
	case tagRubySymbol, tagRubySym:
		return document.Symbol(n.Value), nil
	case tagNull:
		return nil, nil
	case tagBool, tagInt, tagFloat:
		v := resolvePlain(n.Value)
		want := map[string]string{tagBool: "bool", tagInt: "int", tagFloat: "float"}[n.Tag]
		switch v.(type) {
		case bool:
			if want == "bool" {
				return v, nil
			}
		case int64:
			if want == "int" {
				return v, nil
			}
			if want == "float" {
				return float64(v.(int64)), nil
			}
		case float64:
			if want == "float" {
				return v, nil
			}
		}
		return nil, licenseErrors.Malformed(path, "%q is not a valid %s", n.Value, want)
	default:
		return nil, licenseErrors.Malformed(path, "unsupported tag %s", n.Tag)
	}
}

// resolvePlain applies the YAML 1.1 implicit typing Psych uses for plain
// scalars. Dates and times stay strings: the expiry is parsed by the
// evaluator, not by the codec.
func resolvePlain(s string) any {
	switch s {
	case "", "~", "null", "Null", "NULL":
		return nil
	case "true", "True", "TRUE", "yes", "Yes", "YES", "on", "On", "ON":
		return true
	case "false", "False", "FALSE", "no", "No", "NO", "off", "Off", "OFF":
		return false
	case ".inf", ".Inf", ".INF", "+.inf", "+.Inf", "+.INF":
		return math.Inf(1)
	case "-.inf", "-.Inf", "-.INF":
		return math.Inf(-1)
	case ".nan", ".NaN", ".NAN":
		return math.NaN()
	}

	if len(s) > 1 && s[0] == ':' {
		name := s[1:]
		if unquoted, err := strconv.Unquote(name); err == nil && strings.HasPrefix(name, `"`) {
			name = unquoted
		} else if len(name) > 1 && name[0] == '\'' && name[len(name)-1] == '\'' {
			name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
		}
		return document.Symbol(name)
	}

	if intPattern.MatchString(s) {
		if n, ok := parseInt(s); ok {
			return n
		}
	}
	if floatPattern.MatchString(s) && s != "." {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64); err == nil {
			return f
		}
	}
	return s
}

func parseInt(s string) (int64, bool) {
	digits := strings.ReplaceAll(s, "_", "")
	neg := false
	switch {
	case strings.HasPrefix(digits, "-"):
		neg = true
		digits = digits[1:]
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}

	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	case len(digits) > 1 && digits[0] == '0':
		base, digits = 8, digits[1:]
	}
	if digits == "" {
		return 0, false
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		if u > 1<<63 {
			return 0, false
		}
		return -int64(u), true
	}
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// Encode writes m as a YAML document starting with the "---" marker.
func Encode(m *document.Map) ([]byte, error) {
	root, err := encodeValue(m)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode license: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode license: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBool, Value: strconv.FormatBool(t)}, nil
	case int, int32, int64, uint32:
		n, _ := document.Int(t)
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagInt, Value: strconv.FormatInt(n, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagFloat, Value: formatFloat(t)}, nil
	case string:
		if !utf8.ValidString(t) {
			return encodeBinary(document.Binary(t)), nil
		}
		return encodeString(t), nil
	case document.Binary:
		return encodeBinary(t), nil
	case document.Symbol:
		return encodeSymbol(t), nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			child, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case *document.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range t.Entries() {
			key, err := encodeValue(e.Key)
			if err != nil {
				return nil, err
			}
			value, err := encodeValue(e.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, key, value)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot encode value of type %T", v)
	}
}

// encodeString quotes strings that would read back as another type.
func encodeString(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
	if _, isString := resolvePlain(s).(string); !isString || datePattern.MatchString(s) ||
		strings.TrimSpace(s) != s {
		n.Style = yaml.SingleQuotedStyle
	}
	return n
}

func encodeSymbol(s document.Symbol) *yaml.Node {
	if sym, ok := resolvePlain(":" + string(s)).(document.Symbol); ok && sym == s && plainSafe(string(s)) {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: ":" + string(s)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagRubySymbol, Style: yaml.TaggedStyle, Value: string(s)}
}

// plainSafe reports whether ":"+s survives as a plain scalar.
func plainSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r == '_' || r == '?' || r == '!' || r == '=' || r >= 0x80:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s[0] != '"' && s[0] != '\''
}

func encodeBinary(data document.Binary) *yaml.Node {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for len(encoded) > base64LineWidth {
		lines = append(lines, encoded[:base64LineWidth])
		encoded = encoded[base64LineWidth:]
	}
	lines = append(lines, encoded)
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   tagLegacyBinary,
		Style: yaml.TaggedStyle | yaml.LiteralStyle,
		Value: strings.Join(lines, "\n") + "\n",
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

func joinPath(parent string, key any) string {
	var name string
	switch k := key.(type) {
	case document.Symbol:
		name = string(k)
	case string:
		name = k
	default:
		name = document.Inspect(k)
	}
	if parent == "" {
		return name
	}
	return parent + "." + name
}
