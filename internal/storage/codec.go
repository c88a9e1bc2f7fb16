package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxelnet/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrMissingID       = errors.New("record id is required")
)

// CurrentVersion is the version stamp new records are written with.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// NewGenotypeRecord stamps a record with a fresh id, the current versions and
// a creation time.
func NewGenotypeRecord(now time.Time) model.GenotypeRecord {
	return model.GenotypeRecord{
		VersionedRecord: CurrentVersion(),
		ID:              uuid.NewString(),
		CreatedAt:       now.UTC(),
	}
}

func NewRolloutRecord(genotypeID string, now time.Time) model.RolloutRecord {
	return model.RolloutRecord{
		VersionedRecord: CurrentVersion(),
		ID:              uuid.NewString(),
		GenotypeID:      genotypeID,
		CreatedAt:       now.UTC(),
	}
}

func EncodeGenotype(r model.GenotypeRecord) ([]byte, error) {
	if r.ID == "" {
		return nil, ErrMissingID
	}
	return json.Marshal(r)
}

func DecodeGenotype(data []byte) (model.GenotypeRecord, error) {
	var record model.GenotypeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.GenotypeRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.GenotypeRecord{}, err
	}
	if record.Layout.Size != len(record.Genes) {
		return model.GenotypeRecord{}, fmt.Errorf("%w: genotype %s has %d genes, layout says %d",
			model.ErrConfiguration, record.ID, len(record.Genes), record.Layout.Size)
	}
	return record, nil
}

func EncodeRollout(r model.RolloutRecord) ([]byte, error) {
	if r.ID == "" {
		return nil, ErrMissingID
	}
	return json.Marshal(r)
}

func DecodeRollout(data []byte) (model.RolloutRecord, error) {
	var record model.RolloutRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.RolloutRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.RolloutRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

func sortGenotypes(records []model.GenotypeRecord) {
	slices.SortFunc(records, func(a, b model.GenotypeRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortRollouts(records []model.RolloutRecord) {
	slices.SortFunc(records, func(a, b model.RolloutRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
