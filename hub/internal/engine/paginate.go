package engine

import "math/bits"

// Paginate returns the 1-indexed window (page, size) of items. A zero page or
// size, or a window past the end, yields an empty non-nil slice.
func Paginate[T any](items []T, page, size uint64) []T {
	if page == 0 || size == 0 {
		return []T{}
	}
	hi, start := bits.Mul64(page-1, size)
	n := uint64(len(items))
	if hi != 0 || start >= n {
		return []T{}
	}
	end := start + size
	if end < start || end > n {
		end = n
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
