package storage

import (
	"context"
	"sync"

	"voxelnet/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genotypes   map[string]model.GenotypeRecord
	rollouts    map[string]model.RolloutRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genotypes = make(map[string]model.GenotypeRecord)
	s.rollouts = make(map[string]model.RolloutRecord)
	return nil
}

func (s *MemoryStore) SaveGenotype(_ context.Context, record model.GenotypeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if record.ID == "" {
		return ErrMissingID
	}
	record.Genes = append([]float64(nil), record.Genes...)
	record.ParentIDs = append([]string(nil), record.ParentIDs...)
	s.genotypes[record.ID] = record
	return nil
}

func (s *MemoryStore) GetGenotype(_ context.Context, id string) (model.GenotypeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.GenotypeRecord{}, false, ErrNotInitialized
	}
	record, ok := s.genotypes[id]
	if ok {
		record.Genes = append([]float64(nil), record.Genes...)
	}
	return record, ok, nil
}

func (s *MemoryStore) ListGenotypes(_ context.Context) ([]model.GenotypeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.GenotypeRecord, 0, len(s.genotypes))
	for _, record := range s.genotypes {
		out = append(out, record)
	}
	sortGenotypes(out)
	return out, nil
}

func (s *MemoryStore) DeleteGenotype(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	delete(s.genotypes, id)
	for rid, rollout := range s.rollouts {
		if rollout.GenotypeID == id {
			delete(s.rollouts, rid)
		}
	}
	return nil
}

func (s *MemoryStore) SaveRollout(_ context.Context, record model.RolloutRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if record.ID == "" {
		return ErrMissingID
	}
	s.rollouts[record.ID] = record
	return nil
}

func (s *MemoryStore) GetRollout(_ context.Context, id string) (model.RolloutRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RolloutRecord{}, false, ErrNotInitialized
	}
	record, ok := s.rollouts[id]
	return record, ok, nil
}

func (s *MemoryStore) ListRollouts(_ context.Context, genotypeID string) ([]model.RolloutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.RolloutRecord, 0)
	for _, record := range s.rollouts {
		if genotypeID == "" || record.GenotypeID == genotypeID {
			out = append(out, record)
		}
	}
	sortRollouts(out)
	return out, nil
}
