package dashboard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

// float64Value coerces a row value to a number. Anything that is not numeric
// (or a numeric string) becomes 0.
func float64Value(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case bool:
		if val {
			f = 1
		}
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case []byte:
		return float64Value(string(val))
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func boolValue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return false
	}
}

// formatValue renders a row value the way it is displayed and grouped.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// isScalar reports whether v can be shown in a table cell as is.
func isScalar(v any) bool {
	switch v.(type) {
	case string, []byte, bool, json.Number, time.Time,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// isBlank reports values that count as "not set": nil, empty strings, false,
// zero and NaN.
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []byte:
		return len(val) == 0
	case bool:
		return !val
	case time.Time:
		return val.IsZero()
	case json.Number:
		return float64Value(val) == 0
	case float64:
		return val == 0 || math.IsNaN(val)
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return float64Value(val) == 0
	}
	return false
}

// round2 rounds to two decimals with halves rounding up.
func round2(f float64) float64 {
	return math.Floor(f*100+0.5) / 100
}
