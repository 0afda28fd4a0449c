package geo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Attributes maps attribute names to loosely typed values as they come from
// GeoJSON, DBF or SQLite sources. Use the typed accessors instead of asserting.
type Attributes map[string]any

// Int returns the attribute as an integer. Floats truncate toward zero,
// numeric strings are parsed (leading integer prefix as a last resort), and
// absent, unparsable or non-finite values yield 0.
func (a Attributes) Int(key string) int {
	val, ok := a[key]
	if !ok || val == nil {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return truncate(float64(v))
	case float64:
		return truncate(v)
	case json.Number:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	}
	return 0
}

func truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int(f)
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return truncate(f)
	}

	// Leading integer prefix, e.g. "12 personas".
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
