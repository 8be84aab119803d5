package service

import (
	"hash/fnv"
	"sort"
	"sync"

	"skyrating/internal/constants"
)

// userLocks serializes mutations per user id by hashing ids onto a fixed set of mutexes.
type userLocks struct {
	stripes [constants.UserLockStripes]sync.Mutex
}

func stripeOf(id string) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % constants.UserLockStripes)
}

// lock acquires the stripes of ids in ascending order so two callers locking
// the same pair can never deadlock. The returned func releases them.
func (l *userLocks) lock(ids ...string) func() {
	idx := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		s := stripeOf(id)
		if !seen[s] {
			seen[s] = true
			idx = append(idx, s)
		}
	}
	sort.Ints(idx)

	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}
