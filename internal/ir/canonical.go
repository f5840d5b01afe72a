package ir

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for a static value.
// CRITICAL: This is the ONLY serialization that should be used for metadata
// hashing.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. Floats, enums, host arrays, records and opaque values are tagged
//    objects so they never collide with ints or strings
// 5. Numeric arrays are rejected: they are dynamic, never metadata
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return Errorf(ErrCodeUnsupportedFieldType, "", "", "nil value has no canonical form")
	case Null:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		buf.WriteString(`{"$float":`)
		writeCanonicalString(buf, formatFloat(float64(val)))
		buf.WriteByte('}')
	case String:
		writeCanonicalString(buf, string(val))
	case Enum:
		buf.WriteString(`{"$enum":`)
		writeCanonicalString(buf, string(val))
		buf.WriteByte('}')
	case HostArray:
		buf.WriteString(`{"$host_array":{"bytes":`)
		writeCanonicalString(buf, base64.StdEncoding.EncodeToString(val.raw))
		buf.WriteString(`,"dtype":`)
		writeCanonicalString(buf, val.dtype.String())
		buf.WriteString(`,"shape":`)
		writeShape(buf, val.shape)
		buf.WriteString("}}")
	case Array:
		return Errorf(ErrCodeUnsupportedFieldType, "", "", "numeric array %s cannot be static metadata", val.Array)
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("map[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case *Record:
		fields := make(Map, len(val.vals))
		for i, f := range val.typ.Fields {
			fields[f.Name] = val.vals[i]
		}
		buf.WriteString(`{"$record":{"fields":`)
		if err := marshalCanonical(buf, fields); err != nil {
			return fmt.Errorf("record %s: %w", val.typ.Name, err)
		}
		buf.WriteString(`,"name":`)
		writeCanonicalString(buf, val.typ.Name)
		buf.WriteString("}}")
	case Opaque:
		m, ok := val.V.(encoding.BinaryMarshaler)
		if !ok {
			return Errorf(ErrCodeUnsupportedFieldType, "", "", "opaque %q value %T has no byte representation", val.Tag, val.V)
		}
		raw, err := m.MarshalBinary()
		if err != nil {
			return Errorf(ErrCodeUnsupportedFieldType, "", "", "opaque %q: %v", val.Tag, err)
		}
		buf.WriteString(`{"$opaque":{"bytes":`)
		writeCanonicalString(buf, base64.StdEncoding.EncodeToString(raw))
		buf.WriteString(`,"tag":`)
		writeCanonicalString(buf, val.Tag)
		buf.WriteString("}}")
	default:
		return Errorf(ErrCodeUnsupportedFieldType, "", "", "unsupported value type %T", v)
	}
	return nil
}

// formatFloat renders the shortest round-tripping form, always
// distinguishable from an integer literal. Negative zero renders as 0.0 since
// Equal does not tell the zeros apart.
func formatFloat(f float64) string {
	switch {
	case f == 0:
		return "0.0"
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeShape(buf *bytes.Buffer, shape []int) {
	buf.WriteByte('[')
	for i, d := range shape {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(d))
	}
	buf.WriteByte(']')
}

// writeCanonicalString writes a JSON string with NFC normalization.
// RFC 8785 compliance:
// - No HTML escaping (<, >, & are NOT escaped)
// - U+2028 and U+2029 are NOT escaped
// - Only control characters (U+0000-U+001F), backslash, and quote are escaped
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[r>>4])
				buf.WriteByte(hex[r&0xF])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Go's default string comparison uses UTF-8 which produces DIFFERENT
// order for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
