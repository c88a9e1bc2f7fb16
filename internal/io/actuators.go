package io

import (
	"context"
	"sync"

	"voxelnet/internal/model"
)

const (
	RecorderActuatorName = "recorder"
	DiscardActuatorName  = "discard"
)

// RecorderActuator keeps the last actuation grid and the number of writes.
type RecorderActuator struct {
	mu     sync.RWMutex
	last   model.Grid[float64]
	writes int
}

func NewRecorderActuator() *RecorderActuator {
	return &RecorderActuator{}
}

func (a *RecorderActuator) Name() string {
	return RecorderActuatorName
}

func (a *RecorderActuator) Write(_ context.Context, _ float64, actuation model.Grid[float64]) error {
	a.mu.Lock()
	a.last = actuation.Clone()
	a.writes++
	a.mu.Unlock()
	return nil
}

func (a *RecorderActuator) Last() model.Grid[float64] {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last.Clone()
}

func (a *RecorderActuator) Writes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.writes
}

type DiscardActuator struct{}

func (DiscardActuator) Name() string { return DiscardActuatorName }

func (DiscardActuator) Write(context.Context, float64, model.Grid[float64]) error { return nil }
