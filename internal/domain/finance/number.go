// Package finance computes the derived figures of a financial overview from
// rows already fetched from the cashcat API. Everything here is pure.
package finance

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Round2 rounds to two decimals, half toward positive infinity, matching
// round(v*100)/100 as the cashcat UI computes it.
func Round2(v float64) float64 {
	r := math.Floor(v*100+0.5) / 100
	if r == 0 {
		return 0
	}
	return r
}

// Number coerces an upstream value to a finite float. JSON numbers and numeric
// strings are accepted; anything else is 0.
func Number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Field returns row[name] when row is an object, nil otherwise.
func Field(row any, name string) any {
	m, ok := row.(map[string]any)
	if !ok {
		return nil
	}
	return m[name]
}

// Text returns the string field name of row, or "".
func Text(row any, name string) string {
	s, _ := Field(row, name).(string)
	return s
}

// Sum adds the numeric field name across rows, rounding once at the end.
func Sum(rows []any, name string) float64 {
	total := 0.0
	for _, row := range rows {
		total += Number(Field(row, name))
	}
	return Round2(total)
}
