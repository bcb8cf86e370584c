// Package canon produces the canonical JSON encoding used for every
// checksum, deterministic identifier, and exported report byte stream.
//
// The encoding follows RFC 8785 with one relaxation: null is permitted,
// because ingested payloads are opaque and may legitimately carry nulls.
//
// Properties:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. Compact separators, no extraneous whitespace
//  3. No HTML escaping (< > & pass through)
//  4. Strings NFC normalized
//  5. Numbers carried as json.Number and emitted verbatim; raw float64
//     values are rejected so numeric text can never be reformatted
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces canonical JSON for v.
// CRITICAL: this is the only serialization that may feed checksums,
// deterministic IDs, or artifact exports. Two semantically equal values
// with different map construction order marshal byte-identically.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses JSON into the value shapes Marshal accepts.
// Numbers are decoded as json.Number so their source text survives a
// decode/encode round trip byte-for-byte.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// Reject trailing content after the first value.
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func marshalValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case string:
		return marshalString(buf, val)
	case json.Number:
		// Emitted exactly as parsed. This is what keeps "5000.00"
		// equal to "5000.00" across every export.
		buf.WriteString(string(val))
		return nil
	case int:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case int64:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case float64, float32:
		return fmt.Errorf("raw floats are forbidden in canonical JSON (decode with canon.Decode to preserve number text): %v", val)
	case []any:
		return marshalArray(buf, val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalArray(buf, arr)
	case map[string]any:
		return marshalObject(buf, val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalValue(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalObject(buf *bytes.Buffer, obj map[string]any) error {
	buf.WriteByte('{')
	keys := SortedKeys(obj)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// marshalString writes a canonical JSON string: NFC normalized, no HTML
// escaping, and U+2028/U+2029 left unescaped per RFC 8785.
func marshalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline, remove it.
	out := tmp.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}

	// Go's encoder escapes U+2028/U+2029 for JavaScript compatibility;
	// RFC 8785 requires them literal. \\u202x (escaped backslash followed
	// by literal "u202x" text) must stay as-is.
	out = unescapeLineSeparators(out)

	buf.Write(out)
	return nil
}

// unescapeLineSeparators converts \u2028 and \u2029 escape sequences to
// literal characters, preserving sequences preceded by an odd run of
// backslashes (those encode a literal backslash, not the separator).
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	var result []byte
	i := 0
	for i < len(data) {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {

			// Count backslashes already emitted immediately before this
			// position. An even count means this backslash starts a real
			// \u202x escape.
			backslashes := 0
			if result == nil {
				for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
					backslashes++
				}
			} else {
				for j := len(result) - 1; j >= 0 && result[j] == '\\'; j-- {
					backslashes++
				}
			}

			if backslashes%2 == 0 {
				if result == nil {
					result = make([]byte, 0, len(data))
					result = append(result, data[:i]...)
				}
				if data[i+5] == '8' {
					result = append(result, "\u2028"...)
				} else {
					result = append(result, "\u2029"...)
				}
				i += 6
				continue
			}
		}

		if result != nil {
			result = append(result, data[i])
		}
		i++
	}

	if result == nil {
		return data
	}
	return result
}

// SortedKeys returns obj's keys in RFC 8785 canonical order (UTF-16 code
// units). Go's sort.Strings uses UTF-8 which produces a DIFFERENT order
// for strings containing supplementary-plane characters.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as required by
// RFC 8785. Surrogate pairs make this differ from byte comparison.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
