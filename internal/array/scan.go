package array

// Scan computes the inclusive associative scan of xs under op.
//
// It uses the work-efficient up-sweep/down-sweep formulation so the same
// schedule maps onto a parallel runtime; op must be associative.
func Scan[T any](xs []T, op func(T, T) T) []T {
	n := len(xs)
	out := make([]T, n)
	copy(out, xs)
	if n < 2 {
		return out
	}

	// Up-sweep: out[i] holds the reduction of its subtree at each level.
	step := 1
	for ; step < n; step *= 2 {
		for i := 2*step - 1; i < n; i += 2 * step {
			out[i] = op(out[i-step], out[i])
		}
	}

	// Down-sweep: push partial reductions into the gaps left above.
	for step /= 2; step >= 1; step /= 2 {
		for i := 3*step - 1; i < n; i += 2 * step {
			out[i] = op(out[i-step], out[i])
		}
	}
	return out
}

// PrefixSum returns the running count of true entries in mask.
// With exclusive set, entry i counts the true entries strictly before i;
// otherwise it includes i itself.
func PrefixSum(mask []bool, exclusive bool) []int {
	ones := make([]int, len(mask))
	for i, m := range mask {
		if m {
			ones[i] = 1
		}
	}
	incl := Scan(ones, func(a, b int) int { return a + b })
	if !exclusive {
		return incl
	}
	for i := range incl {
		incl[i] -= ones[i]
	}
	return incl
}
