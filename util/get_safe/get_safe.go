package getsafe

// Float pulls a numeric value out of loosely typed metadata, or 0 when the
// key is absent or holds something else. JSON decoding widens every number to
// float64, but values set in process may still be ints.
func Float(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
