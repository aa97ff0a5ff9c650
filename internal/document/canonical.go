package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Inspect renders v in the legacy inspect notation that digests and
// signatures are computed over. Output must stay byte-identical to the text
// the legacy generator produced for the same values in the same order.
func Inspect(v any) string {
	var b strings.Builder
	writeInspect(&b, v)
	return b.String()
}

func writeInspect(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case int, int32, int64, uint32:
		n, _ := Int(t)
		b.WriteString(strconv.FormatInt(n, 10))
	case float64:
		b.WriteString(formatFloat(t))
	case string:
		writeString(b, t)
	case Binary:
		writeBinary(b, t)
	case Symbol:
		writeSymbol(b, t)
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeInspect(b, item)
		}
		b.WriteByte(']')
	case *Map:
		b.WriteByte('{')
		for i, e := range t.Entries() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeInspect(b, e.Key)
			b.WriteString("=>")
			writeInspect(b, e.Value)
		}
		b.WriteByte('}')
	default:
		// Unsupported types never come out of the codec; render something
		// stable rather than panic.
		writeString(b, fmt.Sprint(t))
	}
}

// formatFloat follows Float#inspect: shortest round-trip digits, ".0" on
// integral values, exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(e, "e")
	x, _ := strconv.Atoi(exp)
	if x >= -4 && x < 16 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	sign := "+"
	if x < 0 {
		sign = "-"
		x = -x
	}
	return fmt.Sprintf("%se%s%02d", mant, sign, x)
}

// writeEscape handles the escapes shared by text and binary strings. It
// returns false when c needs no special treatment.
func writeEscape(b *strings.Builder, c rune, next rune) bool {
	switch c {
	case '"':
		b.WriteString(`\"`)
	case '\\':
		b.WriteString(`\\`)
	case '#':
		if next == '{' || next == '$' || next == '@' {
			b.WriteString(`\#`)
		} else {
			b.WriteByte('#')
		}
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	case '\f':
		b.WriteString(`\f`)
	case '\v':
		b.WriteString(`\v`)
	case '\b':
		b.WriteString(`\b`)
	case '\a':
		b.WriteString(`\a`)
	case 0x1b:
		b.WriteString(`\e`)
	default:
		return false
	}
	return true
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(b, `\x%02X`, s[i])
			i++
			continue
		}
		i += size
		var next rune
		if i < len(s) {
			next, _ = utf8.DecodeRuneInString(s[i:])
		}
		if writeEscape(b, r, next) {
			continue
		}
		switch {
		case r < 0x80 && r >= 0x20 && r != 0x7f:
			b.WriteRune(r)
		case r >= 0x80 && unicode.IsGraphic(r):
			b.WriteRune(r)
		case r < 0x10000:
			fmt.Fprintf(b, `\u%04X`, r)
		default:
			fmt.Fprintf(b, `\u{%X}`, r)
		}
	}
	b.WriteByte('"')
}

func writeBinary(b *strings.Builder, data Binary) {
	b.WriteByte('"')
	for i, c := range data {
		var next rune
		if i+1 < len(data) {
			next = rune(data[i+1])
		}
		if writeEscape(b, rune(c), next) {
			continue
		}
		if c >= 0x20 && c < 0x7f {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(b, `\x%02X`, c)
		}
	}
	b.WriteByte('"')
}

func writeSymbol(b *strings.Builder, s Symbol) {
	b.WriteByte(':')
	if isPlainSymbol(string(s)) {
		b.WriteString(string(s))
		return
	}
	writeString(b, string(s))
}

// isPlainSymbol reports whether a symbol prints without quotes: an
// identifier optionally ending in ?, ! or =.
func isPlainSymbol(s string) bool {
	if s == "" {
		return false
	}
	body := s
	if last := s[len(s)-1]; last == '?' || last == '!' || last == '=' {
		body = s[:len(s)-1]
	}
	if body == "" {
		return false
	}
	for i, r := range body {
		switch {
		case r == '_' || r >= 0x80 || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
