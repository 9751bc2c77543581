// Package collection holds small generic container helpers shared by the engines.
package collection

import (
	"cmp"
	"slices"

	"github.com/okian/squad/internal/domain/rating"
)

// Shuffle permutes items in place (Fisher-Yates) using src.
func Shuffle[T any](src rating.Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rating.Intn(src, i+1)
		items[i], items[j] = items[j], items[i]
	}
}

// GroupBy buckets items by key. Each bucket keeps the input order and is a
// fresh slice, so the input is never aliased.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	buckets := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		buckets[k] = append(buckets[k], item)
	}
	return buckets
}

// DescendingKeys returns the keys of m from highest to lowest.
func DescendingKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int { return cmp.Compare(b, a) })
	return keys
}

// EachDescending calls fn for every entry of m in descending key order.
func EachDescending[K cmp.Ordered, V any](m map[K]V, fn func(K, V)) {
	for _, k := range DescendingKeys(m) {
		fn(k, m[k])
	}
}

// IndexFunc returns the index of the first item whose key equals k, or -1.
func IndexFunc[T any, K comparable](items []T, k K, key func(T) K) int {
	for i, item := range items {
		if key(item) == k {
			return i
		}
	}
	return -1
}

// RemoveAt returns items without the element at i, preserving order.
// The backing array of items is not modified.
func RemoveAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
