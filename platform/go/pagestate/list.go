package pagestate

// Lists held in State are treated as immutable: helpers return new slices.

// Prepend returns item followed by items.
func Prepend[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// UpdateBy applies fn to the first element whose key matches.
func UpdateBy[T any, K comparable](items []T, key K, keyOf func(T) K, fn func(T) T) ([]T, bool) {
	for i, it := range items {
		if keyOf(it) == key {
			out := append([]T(nil), items...)
			out[i] = fn(it)
			return out, true
		}
	}
	return items, false
}

// ReplaceBy swaps the element whose key matches with next.
func ReplaceBy[T any, K comparable](items []T, key K, keyOf func(T) K, next T) ([]T, bool) {
	return UpdateBy(items, key, keyOf, func(T) T { return next })
}

// RemoveBy drops every element whose key matches.
func RemoveBy[T any, K comparable](items []T, key K, keyOf func(T) K) ([]T, bool) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keyOf(it) != key {
			out = append(out, it)
		}
	}
	return out, len(out) != len(items)
}

// Find returns the first element whose key matches.
func Find[T any, K comparable](items []T, key K, keyOf func(T) K) (T, bool) {
	for _, it := range items {
		if keyOf(it) == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}
