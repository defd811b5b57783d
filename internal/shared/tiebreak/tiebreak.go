// Package tiebreak holds the bookkeeping shared by the scheduler and the
// allocators: a seedable shuffle used for symmetry breaking, requester
// de-duplication and the even split of a block budget.
package tiebreak

import (
	"math/rand"

	mapset "github.com/deckarep/golang-set/v2"
)

// Shuffler randomizes orderings before any stable sort. Two shufflers built
// from the same seed produce the same permutations.
type Shuffler struct {
	r *rand.Rand
}

func NewShuffler(seed int64) *Shuffler {
	return &Shuffler{r: rand.New(rand.NewSource(seed))}
}

// Shuffle permutes items in place.
func Shuffle[T any](s *Shuffler, items []T) {
	s.r.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Unique returns the distinct values of ids in first-seen order.
func Unique(ids []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen.Add(id) {
			unique = append(unique, id)
		}
	}
	return unique
}

// EvenSplit divides total into n parts that differ by at most one block.
// The first total%n parts get the extra block.
func EvenSplit(total, n int) []int {
	if n <= 0 {
		return nil
	}
	if total < 0 {
		total = 0
	}
	parts := make([]int, n)
	base, extra := total/n, total%n
	for i := range parts {
		parts[i] = base
		if i < extra {
			parts[i]++
		}
	}
	return parts
}
