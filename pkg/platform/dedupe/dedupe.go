// Package dedupe removes repeated values from slices.
package dedupe

// Values removes duplicates from a slice. Order of first occurrence is preserved.
//
// Example:
//
//	Values([]string{"foo", "bar", "foo"})
//	// Returns: []string{"foo", "bar"}
func Values[T comparable](values []T) []T {
	if len(values) == 0 {
		return values
	}

	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// By removes elements whose key was already seen. Order is preserved.
func By[T any, K comparable](values []T, key func(T) K) []T {
	if len(values) == 0 {
		return values
	}

	seen := make(map[K]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, v)
	}
	return result
}
