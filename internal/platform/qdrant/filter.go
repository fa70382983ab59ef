package qdrant

import "fmt"

// translateFilter converts the provider-neutral equality filter map into a
// Qdrant "must match" filter. Only scalar equality is supported; any other
// value type is rejected with an error.
func translateFilter(filter map[string]any) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	must := make([]map[string]any, 0, len(filter))
	for key, val := range filter {
		switch val.(type) {
		case string, int, int64, float64, bool:
			must = append(must, map[string]any{
				"key":   key,
				"match": map[string]any{"value": val},
			})
		default:
			return nil, fmt.Errorf("qdrant filter: unsupported value type for key %q", key)
		}
	}
	return map[string]any{"must": must}, nil
}
