package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindAbsent marks a field that could not be extracted.
	KindAbsent Kind = iota
	// KindInt marks an integer value.
	KindInt
	// KindText marks a value kept as text (e.g., "N/A").
	KindText
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindInt:
		return "int"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an integer-or-text field: a model answer, a ground-truth answer,
// or a question identifier. The zero Value is absent.
//
// Value is comparable and can be used as a map key. Two values are equal only
// when both the kind and the payload match, so Int(42) != Text("42").
type Value struct {
	Kind Kind
	Int  int64
	Text string
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// Int returns an integer value.
func Int(n int64) Value { return Value{Kind: KindInt, Int: n} }

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Coerce returns Int when s parses as an integer (see ParseInt), otherwise
// Text(s) unchanged.
func Coerce(s string) Value {
	if n, ok := ParseInt(s); ok {
		return Int(n)
	}
	return Text(s)
}

// ParseInt parses a base-10 integer the way model output and CSV cells are
// written in practice. Surrounding whitespace and a leading sign are allowed,
// digits may be separated by single underscores ("1_000") and any Unicode
// decimal digit counts ("٣" is 3). Values outside int64 do not parse.
func ParseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	if s != "" && (s[0] == '+' || s[0] == '-') {
		b.WriteByte(s[0])
		s = s[1:]
	}
	digits, underscore := 0, false
	for _, r := range s {
		if r == '_' {
			if digits == 0 || underscore {
				return 0, false
			}
			underscore = true
			continue
		}
		d, ok := digitValue(r)
		if !ok {
			return 0, false
		}
		b.WriteByte('0' + d)
		digits++
		underscore = false
	}
	if digits == 0 || underscore {
		return 0, false
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	return n, err == nil
}

// digitValue maps a Unicode decimal digit to its value. Decimal digits are
// encoded in contiguous runs of ten starting at zero.
func digitValue(r rune) (byte, bool) {
	if r >= '0' && r <= '9' {
		return byte(r - '0'), true
	}
	if !unicode.IsDigit(r) {
		return 0, false
	}
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return byte((r - lo) % 10), true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return byte((r - lo) % 10), true
		}
	}
	return 0, false
}

// IsAbsent reports whether the value is absent.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// IsInt reports whether the value holds an integer.
func (v Value) IsInt() bool { return v.Kind == KindInt }

// Truthy reports whether the value is present and non-empty: a non-zero
// integer or a non-empty string.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.Int != 0
	case KindText:
		return v.Text != ""
	default:
		return false
	}
}

// String renders the payload; absent renders as "<absent>".
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindText:
		return v.Text
	default:
		return "<absent>"
	}
}

// MarshalJSON encodes integers as numbers, text as strings and absent as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Absent()
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	default:
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("value: want integer, string or null, got %s", data)
		}
		*v = Int(n)
		return nil
	}
}
