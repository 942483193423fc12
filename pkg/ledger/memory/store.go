package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/counter-program/pkg/ledger"
)

type store struct {
	mu      sync.Mutex
	records map[string]*ledger.Record
	last    uint64
}

func New() ledger.Store {
	return &store{
		records: make(map[string]*ledger.Record),
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make(map[string]*ledger.Record)
	s.last = 0
	s.mu.Unlock()
}

func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}

func (s *store) Save(_ context.Context, data *ledger.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(data); err != nil {
		return err
	}
	s.save(data)
	return nil
}

func (s *store) SaveBatch(_ context.Context, records ...*ledger.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if _, ok := seen[record.Address]; ok {
			return ledger.ErrStaleVersion
		}
		seen[record.Address] = struct{}{}

		if err := s.checkVersion(record); err != nil {
			return err
		}
	}

	for _, record := range records {
		s.save(record)
	}
	return nil
}

func (s *store) Get(_ context.Context, address string) (*ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetAll(_ context.Context, addresses ...string) ([]*ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*ledger.Record, 0, len(addresses))
	for _, address := range addresses {
		item, ok := s.records[address]
		if !ok {
			continue
		}

		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res, nil
}

func (s *store) checkVersion(data *ledger.Record) error {
	var current uint64
	if item, ok := s.records[data.Address]; ok {
		current = item.Version
	}

	if current != data.Version {
		return ledger.ErrStaleVersion
	}
	return nil
}

func (s *store) save(data *ledger.Record) {
	data.Version++
	data.LastUpdatedAt = time.Now()

	if item, ok := s.records[data.Address]; ok {
		data.Id = item.Id
	} else {
		s.last++
		data.Id = s.last
	}

	cloned := data.Clone()
	s.records[data.Address] = &cloned
}
