package catalog

import "github.com/kthendral/optimizehub/internal/domain"

// paramInt/paramFloat read an algorithm parameter with a default,
// tolerating the JSON-decoded numeric types (float64 from JSON,
// possibly int/int64 from programmatic callers) declared admissible
// per algorithm (§3 Algorithm spec).
func paramInt(p domain.Params, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func paramFloat(p domain.Params, key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}
