package model

import (
	"strconv"
	"strings"
)

// DaysNever is the numeric sentinel for "days since" fields the upstream
// reports as "Never". FormatDays and ParseDays invert each other exactly.
const DaysNever = 999

// ToFloat coerces an upstream value to float64. Returns def when the value
// is absent or cannot be parsed. The textual sentinel "Never" maps to DaysNever.
func ToFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		cleaned = strings.TrimPrefix(cleaned, "$")
		if strings.EqualFold(cleaned, "Never") {
			return DaysNever
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

// ToInt coerces an upstream value to int, defaulting like ToFloat.
func ToInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		i, err := strconv.Atoi(cleaned)
		if err != nil {
			f, err := strconv.ParseFloat(cleaned, 64)
			if err != nil {
				return def
			}
			return int(f)
		}
		return i
	default:
		return def
	}
}

// ToBool coerces yes/no-style upstream values to bool. Unrecognized values
// return false.
func ToBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

// FormatDays renders a normalized days value for display: the DaysNever
// sentinel becomes "Never", anything else a whole number of days.
func FormatDays(days float64) string {
	if days == DaysNever {
		return "Never"
	}
	return strconv.FormatFloat(days, 'f', 0, 64)
}

// ParseDays is the exact inverse of FormatDays: "Never" (case-insensitive)
// becomes DaysNever, unparsable input also falls back to DaysNever.
func ParseDays(s string) float64 {
	if strings.EqualFold(strings.TrimSpace(s), "Never") {
		return DaysNever
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return DaysNever
	}
	return f
}
