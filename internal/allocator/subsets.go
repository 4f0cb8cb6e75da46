package allocator

// subset is a set of indices into the leaf's ticker slice, always sorted
// ascending.
type subset []int

// enumerate yields every non-empty subset of {0,...,n-1} in increasing
// order of size, and lexicographically within each size — the fixed
// traversal order that keeps results reproducible. yield returning
// false stops enumeration early.
func enumerate(n int, yield func(subset) bool) {
	for size := 1; size <= n; size++ {
		if !enumerateSize(n, size, yield) {
			return
		}
	}
}

// enumerateSizeUpTo yields every non-empty subset of size <= maxSize, in
// the same fixed order as enumerate. Used once the width budget is spent
// without a zero-residual candidate, restricting the remaining search
// to subsets of size <= 2.
func enumerateSizeUpTo(n, maxSize int, yield func(subset) bool) {
	for size := 1; size <= maxSize && size <= n; size++ {
		if !enumerateSize(n, size, yield) {
			return
		}
	}
}

func enumerateSize(n, size int, yield func(subset) bool) bool {
	combo := make(subset, size)
	for i := range combo {
		combo[i] = i
	}
	for {
		if !yield(append(subset(nil), combo...)) {
			return false
		}
		i := size - 1
		for i >= 0 && combo[i] == n-size+i {
			i--
		}
		if i < 0 {
			return true
		}
		combo[i]++
		for j := i + 1; j < size; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
}
