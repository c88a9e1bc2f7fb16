package nn

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"voxelnet/internal/model"
)

var (
	ErrActivationExists   = fmt.Errorf("%w: activation already registered", model.ErrConfiguration)
	ErrActivationNotFound = fmt.Errorf("%w: activation not found", model.ErrConfiguration)
	ErrActivationInvalid  = fmt.Errorf("%w: activation needs a name and a function", model.ErrConfiguration)
)

// ActivationFunc is applied element-wise after every perceptron layer.
type ActivationFunc func(x float64) float64

var activations = struct {
	mu sync.RWMutex
	m  map[string]ActivationFunc
}{
	m: make(map[string]ActivationFunc),
}

func init() {
	registerBuiltinActivations()
}

func registerBuiltinActivations() {
	MustRegisterActivation("identity", func(x float64) float64 { return x })
	MustRegisterActivation("relu", func(x float64) float64 { return math.Max(0, x) })
	MustRegisterActivation("tanh", math.Tanh)
	MustRegisterActivation("sin", math.Sin)
	MustRegisterActivation("sigmoid", func(x float64) float64 {
		return 1.0 / (1.0 + math.Exp(-x))
	})
}

func RegisterActivation(name string, fn ActivationFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("%w: name=%q", ErrActivationInvalid, name)
	}
	activations.mu.Lock()
	defer activations.mu.Unlock()
	if _, exists := activations.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}
	activations.m[name] = fn
	return nil
}

func MustRegisterActivation(name string, fn ActivationFunc) {
	if err := RegisterActivation(name, fn); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (ActivationFunc, error) {
	activations.mu.RLock()
	fn, ok := activations.m[name]
	activations.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return fn, nil
}

// ListActivations returns the registered names in sorted order.
func ListActivations() []string {
	activations.mu.RLock()
	defer activations.mu.RUnlock()

	names := maps.Keys(activations.m)
	slices.Sort(names)
	return names
}

func resetActivationsForTests() {
	activations.mu.Lock()
	activations.m = make(map[string]ActivationFunc)
	activations.mu.Unlock()
	registerBuiltinActivations()
}
