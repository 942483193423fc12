package sync

import (
	"sort"
	base "sync"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(stripes, hashEntriesPerLock),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	sharded := l.hashRing.stripe(key)
	return &l.locks[sharded]
}

// Acquire locks the stripes covering keys and returns a function releasing
// them. Stripes are taken in ascending order so concurrent callers with
// overlapping key sets cannot deadlock. A stripe is write locked if any key
// mapping to it has exclusive set, otherwise it is read locked.
func (l *StripedLock) Acquire(keys [][]byte, exclusive []bool) (release func()) {
	modes := make(map[int]bool)
	for i, key := range keys {
		sharded := l.hashRing.stripe(key)
		modes[sharded] = modes[sharded] || (i < len(exclusive) && exclusive[i])
	}

	stripes := make([]int, 0, len(modes))
	for stripe := range modes {
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	for _, stripe := range stripes {
		if modes[stripe] {
			l.locks[stripe].Lock()
		} else {
			l.locks[stripe].RLock()
		}
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			if modes[stripes[i]] {
				l.locks[stripes[i]].Unlock()
			} else {
				l.locks[stripes[i]].RUnlock()
			}
		}
	}
}
