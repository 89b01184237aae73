package gridview

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic value class of a column, resolved once when columns
// are prepared.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// Sort hints accepted in Attributes.SortAs
const (
	SortAsNumber = "number"
	SortAsDate   = "date"
	SortAsString = "string"
)

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.ReplaceAll(t, "-", "")
	return strings.ReplaceAll(t, "_", "")
}

// isNumberType reports whether the declared type name compares numerically.
func isNumberType(t string) bool {
	switch normalizeType(t) {
	case "int", "integer", "long", "double":
		return true
	}
	return false
}

// isDateType reports whether the declared type name is one of the known date types.
func isDateType(t string) bool {
	switch normalizeType(t) {
	case "date", "localdate", "localdatetime", "zoneddatetime":
		return true
	}
	return false
}

// ResolveKind picks the comparison class for a column. An explicit sortAs
// hint wins over the declared type.
func ResolveKind(typeName, sortAs string) Kind {
	switch strings.ToLower(strings.TrimSpace(sortAs)) {
	case SortAsNumber:
		return KindNumber
	case SortAsDate:
		return KindDate
	case SortAsString:
		return KindString
	}
	switch {
	case isNumberType(typeName):
		return KindNumber
	case isDateType(typeName):
		return KindDate
	}
	switch normalizeType(typeName) {
	case "boolean", "bool":
		return KindBoolean
	}
	return KindString
}

// ToFloat converts a raw cell value to a number. ok is false for nil, NaN
// and anything that does not parse.
func ToFloat(v interface{}) (float64, bool) {
	return toFloat(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		return toFloat(string(n))
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case []byte:
		return toFloat(string(n))
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// toTime converts a raw cell value to a time. Numbers are epoch milliseconds.
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	case []byte:
		return toTime(string(t))
	}
	if f, ok := toFloat(v); ok {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Time{}, false
}

// cellText renders a scalar cell value. Floats never use exponent form so
// large ids survive a JSON round trip.
func cellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}

// truthy mirrors how a loosely typed value is read as a flag: nil, "",
// false and zero are false.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
