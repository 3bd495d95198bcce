package wcs

// Header card values arrive as whatever the reader produced: fitsio hands
// back int/float64/string, decoded zarr attrs hand back float64 and []any.
// These helpers coerce without caring which reader was used.

func headerInt(h map[string]any, key string) (int, bool) {
	v, ok := h[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case float32:
		return int(x), true
	}
	return 0, false
}

func headerFloat(h map[string]any, key string) (float64, bool) {
	v, ok := h[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func headerFloatOr(h map[string]any, key string, def float64) float64 {
	if f, ok := headerFloat(h, key); ok {
		return f
	}
	return def
}

func headerStringOr(h map[string]any, key, def string) string {
	if v, ok := h[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func headerFloats(h map[string]any, key string) ([]float64, bool) {
	v, ok := h[key]
	if !ok {
		return nil, false
	}
	switch xs := v.(type) {
	case []float64:
		return xs, true
	case []any:
		out := make([]float64, 0, len(xs))
		for _, x := range xs {
			switch f := x.(type) {
			case float64:
				out = append(out, f)
			case int:
				out = append(out, float64(f))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

func headerInts(h map[string]any, key string) ([]int, bool) {
	fs, ok := headerFloats(h, key)
	if !ok {
		if v, isInts := h[key].([]int); isInts {
			return v, true
		}
		return nil, false
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out, true
}

func headerStrings(h map[string]any, key string) ([]string, bool) {
	v, ok := h[key]
	if !ok {
		return nil, false
	}
	switch xs := v.(type) {
	case []string:
		return xs, true
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			s, ok := x.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
