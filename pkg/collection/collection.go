// Package collection holds the generic slice helpers used by the API
// listings.
//
//	live := collection.Filter(orders, func(o *models.Order) bool { return o.PaymentStatus == models.PaymentCompleted })
//	ids := collection.Map(live, func(o *models.Order) string { return o.ID })
package collection

import "sort"

// Map transforms each element of s with fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns a new slice with the elements for which fn is true.
func Filter[T any](s []T, fn func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// SortBy returns a sorted copy of s. The sort is stable.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	out := append([]T(nil), s...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Paginate returns page (1-indexed) of s with size items per page. Pages
// past the end are empty.
func Paginate[T any](s []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(s) {
		return []T{}
	}
	end := min(start+size, len(s))
	return s[start:end]
}
