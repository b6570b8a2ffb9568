// Package values holds loose value coercion helpers shared by the pipeline
// stages: records are schema-agnostic maps, so numeric folding and group-key
// construction have to tolerate whatever types a source hands us.
package values

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// groupKeySep separates field values inside a composite group key. A unit
// separator is unlikely to appear in real field values.
const groupKeySep = "\x1f"

// Parse converts a raw string into int, float64 or string, in that order.
func Parse(s string) interface{} {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ToFloat converts supported numeric types (and numeric strings) to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
		return 0, false
	case nil:
		return 0, false
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), true
		case reflect.Float32, reflect.Float64:
			return rv.Float(), true
		}
		return 0, false
	}
}

// IsNumeric reports whether v folds as a number.
func IsNumeric(v interface{}) bool {
	if _, ok := v.(string); ok {
		return false
	}
	_, ok := ToFloat(v)
	return ok
}

// Format renders a single field value for use inside a group key.
func Format(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GroupKey builds the composite key for a record at one grouping level.
// Missing fields contribute an empty component so that key arity stays
// stable across records.
func GroupKey(fields []string, rec map[string]interface{}) string {
	if len(fields) == 1 {
		return Format(rec[fields[0]])
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = Format(rec[f])
	}
	return strings.Join(parts, groupKeySep)
}
