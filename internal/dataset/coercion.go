package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Cell coercion.
 *
 * Dataset cells arrive from heterogeneous readers: SAS transport numerics as
 * float64, JSON as float64/json.Number, CSV-ish sources as strings. Aggregating
 * operations and join keys need one canonical form per kind.
 *
 * Kinds:
 *   - Numeric: strict - numbers and numeric strings to float64, rejects bools
 *   - Text: lenient - everything to string
 *   - Date: ISO 8601 (full or partial: YYYY, YYYY-MM, YYYY-MM-DD, with time)
 *
 * Null vs failure: nil input reports IsNull and never fails. Empty or
 * whitespace-only strings are missing values in SDTM data and also report
 * IsNull. Anything else that cannot be converted returns ErrCoercionFailed.
 */

// Kind selects a coercion target.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
	KindDate
)

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any  // float64, string or time.Time (valid only if !IsNull)
	IsNull bool // true if input was nil or blank
}

// Coerce converts value to kind.
func Coerce(value any, kind Kind) (CoercionResult, error) {
	if isMissing(value) {
		return CoercionResult{IsNull: true}, nil
	}
	switch kind {
	case KindNumeric:
		f, ok := ToFloat64(value)
		if !ok {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	case KindText:
		return CoercionResult{Value: toText(value)}, nil
	case KindDate:
		t, err := ParseDate(toText(value))
		if err != nil {
			return CoercionResult{}, err
		}
		return CoercionResult{Value: t}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

func isMissing(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	if f, ok := value.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

// ToFloat64 converts numeric cells and numeric strings to float64.
// Booleans are rejected (strict mode).
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// dateLayouts are tried in order; partial dates resolve to their earliest instant.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses an ISO 8601 date or partial date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO 8601 date", types.ErrCoercionFailed, s)
}

// NormalizeNumber turns json.Number into int64 when integral, float64
// otherwise. Other values pass through unchanged.
func NormalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// keyPart renders a cell into a canonical join key component.
// Numerics of any Go type compare equal by value; other types keep a type tag
// so the string "1" never equals the number 1.
func keyPart(v any) string {
	if v == nil {
		return "n:"
	}
	if _, isBool := v.(bool); !isBool {
		if _, isString := v.(string); !isString {
			if f, ok := ToFloat64(v); ok {
				return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
			}
		}
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	default:
		return "x:" + toText(t)
	}
}

func decodeNumbers(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}
