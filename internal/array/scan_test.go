package array

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestScanMatchesSequentialSum(t *testing.T) {
	for n := 0; n <= 33; n++ {
		xs := make([]int, n)
		want := make([]int, n)
		acc := 0
		for i := range xs {
			xs[i] = i*7%5 + 1
			acc += xs[i]
			want[i] = acc
		}
		got := Scan(xs, func(a, b int) int { return a + b })
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("n=%d scan mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestScanPreservesOperandOrder(t *testing.T) {
	xs := []string{"a", "b", "c", "d", "e"}
	got := Scan(xs, func(a, b string) string { return a + b })
	assert.Equal(t, []string{"a", "ab", "abc", "abcd", "abcde"}, got)
}

func TestScanDoesNotMutateInput(t *testing.T) {
	xs := []int{1, 1, 1}
	Scan(xs, func(a, b int) int { return a + b })
	assert.Equal(t, []int{1, 1, 1}, xs)
}

func TestPrefixSum(t *testing.T) {
	mask := []bool{false, true, false, true, true}

	assert.Equal(t, []int{0, 1, 1, 2, 3}, PrefixSum(mask, false))
	assert.Equal(t, []int{0, 0, 1, 1, 2}, PrefixSum(mask, true))
	assert.Empty(t, PrefixSum(nil, true))
}
