package resource

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSorted_CanonicalOrder(t *testing.T) {
	rs := []Resource{UV, Tilt, Fans}
	got := Sorted(rs)
	assert.Equal(t, []Resource{Fans, Tilt, UV}, got)
	// Input untouched.
	assert.Equal(t, []Resource{UV, Tilt, Fans}, rs)
}

func TestSorted_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := All()
	for i := 0; i < 100; i++ {
		perm := make([]Resource, len(base))
		copy(perm, base)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })

		got := Sorted(perm)
		require.True(t, sort.SliceIsSorted(got, func(a, b int) bool { return got[a] < got[b] }),
			"permutation %v not canonically sorted: %v", perm, got)
		assert.Equal(t, Sorted(base), got)
	}
}

func TestAll_IsCanonicallySorted(t *testing.T) {
	all := All()
	assert.True(t, sort.SliceIsSorted(all, func(a, b int) bool { return all[a] < all[b] }))
}
