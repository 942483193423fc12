package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over stripe indexes. Account keys are
// uniformly distributed, so replicas exist to even out stripe sizes rather
// than to handle membership changes.
type ring struct {
	points *treemap.Map

	// first caches the stripe at the lowest point, which is where keys past
	// the last point wrap to.
	first int
}

// newRing places replicas points on the ring for each of stripes.
func newRing(stripes, replicas uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	var seed [12]byte
	for stripe := uint32(0); stripe < uint32(stripes); stripe++ {
		binary.LittleEndian.PutUint32(seed[:4], stripe)
		for replica := uint64(0); replica < uint64(replicas); replica++ {
			binary.LittleEndian.PutUint64(seed[4:], replica)
			points.Put(hashKey(seed[:]), int(stripe))
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// stripe returns the stripe owning key.
func (r *ring) stripe(key []byte) int {
	if _, stripe := r.points.Ceiling(hashKey(key)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

func hashKey(key []byte) int64 {
	h, _ := murmur3.Sum128(key)
	return int64(h)
}
