package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"voxelnet/internal/model"
)

// FileStore keeps one indented JSON document per record under
// <root>/genotypes and <root>/rollouts.
type FileStore struct {
	root string

	mu          sync.RWMutex
	initialized bool
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == "" {
		return errors.New("file store root is required")
	}
	for _, dir := range []string{s.genotypeDir(), s.rolloutDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	s.initialized = true
	return nil
}

func (s *FileStore) genotypeDir() string { return filepath.Join(s.root, "genotypes") }
func (s *FileStore) rolloutDir() string  { return filepath.Join(s.root, "rollouts") }

func (s *FileStore) SaveGenotype(_ context.Context, record model.GenotypeRecord) error {
	if _, err := EncodeGenotype(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	return writeJSON(filepath.Join(s.genotypeDir(), fileName(record.ID)), record)
}

func (s *FileStore) GetGenotype(_ context.Context, id string) (model.GenotypeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.GenotypeRecord{}, false, ErrNotInitialized
	}
	data, ok, err := readFile(filepath.Join(s.genotypeDir(), fileName(id)))
	if err != nil || !ok {
		return model.GenotypeRecord{}, false, err
	}
	record, err := DecodeGenotype(data)
	if err != nil {
		return model.GenotypeRecord{}, false, err
	}
	return record, true, nil
}

func (s *FileStore) ListGenotypes(_ context.Context) ([]model.GenotypeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.GenotypeRecord, 0)
	err := eachFile(s.genotypeDir(), func(data []byte) error {
		record, err := DecodeGenotype(data)
		if err != nil {
			return err
		}
		out = append(out, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortGenotypes(out)
	return out, nil
}

func (s *FileStore) DeleteGenotype(ctx context.Context, id string) error {
	rollouts, err := s.ListRollouts(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rollout := range rollouts {
		if err := removeFile(filepath.Join(s.rolloutDir(), fileName(rollout.ID))); err != nil {
			return err
		}
	}
	return removeFile(filepath.Join(s.genotypeDir(), fileName(id)))
}

func (s *FileStore) SaveRollout(_ context.Context, record model.RolloutRecord) error {
	if _, err := EncodeRollout(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	return writeJSON(filepath.Join(s.rolloutDir(), fileName(record.ID)), record)
}

func (s *FileStore) GetRollout(_ context.Context, id string) (model.RolloutRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RolloutRecord{}, false, ErrNotInitialized
	}
	data, ok, err := readFile(filepath.Join(s.rolloutDir(), fileName(id)))
	if err != nil || !ok {
		return model.RolloutRecord{}, false, err
	}
	record, err := DecodeRollout(data)
	if err != nil {
		return model.RolloutRecord{}, false, err
	}
	return record, true, nil
}

func (s *FileStore) ListRollouts(_ context.Context, genotypeID string) ([]model.RolloutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.RolloutRecord, 0)
	err := eachFile(s.rolloutDir(), func(data []byte) error {
		record, err := DecodeRollout(data)
		if err != nil {
			return err
		}
		if genotypeID == "" || record.GenotypeID == genotypeID {
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRollouts(out)
	return out, nil
}

// fileName keeps ids from escaping the store directory.
func fileName(id string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(id) + ".json"
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func eachFile(dir string, fn func([]byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return nil
}
