package runtime

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/code-payments/counter-program/pkg/solana"
)

const (
	signatureFilterErrRate = 0.01
)

// signatureSet remembers processed transaction signatures. The bloom filter
// answers the common case of a new signature without touching the exact set.
type signatureSet struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	seen   map[solana.Signature]struct{}
}

func newSignatureSet(expected uint) *signatureSet {
	return &signatureSet{
		filter: bloom.NewWithEstimates(expected, signatureFilterErrRate),
		seen:   make(map[solana.Signature]struct{}),
	}
}

func (s *signatureSet) Contains(sig solana.Signature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.filter.Test(sig[:]) {
		return false
	}

	_, ok := s.seen[sig]
	return ok
}

func (s *signatureSet) Add(sig solana.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter.Add(sig[:])
	s.seen[sig] = struct{}{}
}
