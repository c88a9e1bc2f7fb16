package storage

import (
	"context"
	"errors"

	"voxelnet/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// Store persists genotypes and the rollouts run with them.
type Store interface {
	Init(ctx context.Context) error
	SaveGenotype(ctx context.Context, record model.GenotypeRecord) error
	GetGenotype(ctx context.Context, id string) (model.GenotypeRecord, bool, error)
	// ListGenotypes returns records oldest first, ties broken by id.
	ListGenotypes(ctx context.Context) ([]model.GenotypeRecord, error)
	DeleteGenotype(ctx context.Context, id string) error
	SaveRollout(ctx context.Context, record model.RolloutRecord) error
	GetRollout(ctx context.Context, id string) (model.RolloutRecord, bool, error)
	ListRollouts(ctx context.Context, genotypeID string) ([]model.RolloutRecord, error)
}
