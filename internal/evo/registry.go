package evo

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"voxelnet/internal/genotype"
	"voxelnet/internal/model"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = fmt.Errorf("%w: operator not found", model.ErrConfiguration)
	ErrVersionMismatch  = errors.New("operator version mismatch")
)

// Params carries everything a registered builder may need.
type Params struct {
	Layout genotype.Layout
	Sigma  float64
	Lower  float64
	Upper  float64
	Target Region
}

type BuildFn func(p Params) (Operator, error)

type OperatorSpec struct {
	Name          string
	Build         BuildFn
	SchemaVersion int
	CodecVersion  int
}

type registeredOperator struct {
	build         BuildFn
	schemaVersion int
	codecVersion  int
}

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredOperator
}{
	m: make(map[string]registeredOperator),
}

func init() {
	initializeBuiltInOperators()
}

func initializeBuiltInOperators() {
	MustRegisterOperator("gaussian", func(p Params) (Operator, error) {
		return GaussianMutation{Sigma: p.Sigma}, nil
	})
	MustRegisterOperator("geometric", func(p Params) (Operator, error) {
		return GeometricCrossover{Lower: p.Lower, Upper: p.Upper}, nil
	})
	MustRegisterOperator("module_crossover", func(p Params) (Operator, error) {
		return ModuleCrossover{Layout: p.Layout, Lower: p.Lower, Upper: p.Upper, Sigma: p.Sigma}, nil
	})
	MustRegisterOperator("block_swap", func(p Params) (Operator, error) {
		return BlockSwapCrossover{Layout: p.Layout}, nil
	})
	MustRegisterOperator("module_mutation", func(p Params) (Operator, error) {
		return ModuleMutation{Layout: p.Layout, Sigma: p.Sigma, Target: p.Target}, nil
	})
}

// RegisterOperator registers a builder with default schema and codec versions.
func RegisterOperator(name string, build BuildFn) error {
	return RegisterOperatorWithSpec(OperatorSpec{
		Name:          name,
		Build:         build,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func MustRegisterOperator(name string, build BuildFn) {
	if err := RegisterOperator(name, build); err != nil {
		panic(err)
	}
}

func RegisterOperatorWithSpec(spec OperatorSpec) error {
	if spec.Name == "" {
		return errors.New("operator name is required")
	}
	if spec.Build == nil {
		return errors.New("operator builder is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, spec.Name)
	}
	operatorRegistry.m[spec.Name] = registeredOperator{
		build:         spec.Build,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
	}
	return nil
}

// ResolveOperator builds a registered operator for a stored genotype, checking
// that the record was written with the versions the operator understands.
func ResolveOperator(name string, record model.VersionedRecord, p Params) (Operator, error) {
	operatorRegistry.mu.RLock()
	entry, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	if record.SchemaVersion != entry.schemaVersion || record.CodecVersion != entry.codecVersion {
		return nil, fmt.Errorf("%w: operator=%s expected(schema=%d codec=%d) got(schema=%d codec=%d)",
			ErrVersionMismatch,
			name,
			entry.schemaVersion,
			entry.codecVersion,
			record.SchemaVersion,
			record.CodecVersion,
		)
	}
	return entry.build(p)
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()
	names := maps.Keys(operatorRegistry.m)
	slices.Sort(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	operatorRegistry.m = make(map[string]registeredOperator)
	operatorRegistry.mu.Unlock()
	initializeBuiltInOperators()
}
