package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785-flavored canonical JSON, used only to
// compute a stable content hash for a compile session (see
// internal/session). It is not the format written to the .log.json /
// .sim.json artifacts — those use plain indented encoding/json for
// readability (spec §6.4, §6.5).
//
// Differences from encoding/json.Marshal:
//  1. Object keys are sorted by UTF-16 code unit.
//  2. No HTML escaping.
//  3. Strings are NFC normalized before encoding, so visually identical
//     overlay glyphs (η, Φ, ≥, ≤) hash identically regardless of the input
//     source's Unicode normalization form.
//
// Unlike the teacher's canonical encoder, floats are permitted here: the
// simulation trace (spec §4.I) is float-valued by design, and determinism
// is preserved because every float that reaches this function is already
// rounded to a fixed number of decimals.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case int:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case int64:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case float64:
		buf.WriteString(formatCanonicalFloat(val))
		return nil
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return writeCanonicalArray(buf, arr)
	case []any:
		return writeCanonicalArray(buf, val)
	case map[string]any:
		return writeCanonicalObject(buf, val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return writeCanonicalObject(buf, obj)
	default:
		// Round-trip through encoding/json so callers can pass IR structs
		// (with their `json:` tags) directly.
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("canonical: unsupported type %T: %w", v, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("canonical: re-decoding %T: %w", v, err)
		}
		return writeCanonical(buf, generic)
	}
}

// formatCanonicalFloat renders a float the same way encoding/json would, so
// hashes computed here agree with the numbers written into .sim.json.
func formatCanonicalFloat(f float64) string {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Sprintf("%v", f)
	}
	return string(data)
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	result := tmp.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	buf.Write(result)
	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareKeysRFC8785 compares strings by UTF-16 code unit, per RFC 8785.
// Go's default string comparison uses UTF-8 byte order, which can disagree
// with this for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
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
