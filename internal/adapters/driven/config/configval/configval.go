// Package configval coerces raw configuration values into the types the
// ConfigStore getters return. Values may come from TOML, where integers
// decode as int64 and arrays as []any, or from Go callers.
package configval

// String returns v when it is a string.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int accepts any integer kind and floats, which are truncated.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Float accepts floats and integers. TOML writes 95.0 back as 95.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// Strings returns the string elements of a []string or []any and nil for
// anything else.
func Strings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
