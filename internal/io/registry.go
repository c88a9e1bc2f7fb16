package io

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"voxelnet/internal/model"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrSensorExists     = errors.New("sensor already registered")
	ErrSensorNotFound   = fmt.Errorf("%w: sensor not found", model.ErrConfiguration)
	ErrActuatorExists   = errors.New("actuator already registered")
	ErrActuatorNotFound = fmt.Errorf("%w: actuator not found", model.ErrConfiguration)
	ErrVersionMismatch  = errors.New("registry version mismatch")
)

// SensorFactory builds a sensor with the given number of channels per cell.
type SensorFactory func(channels int) Sensor

type ActuatorFactory func() Actuator

type SensorSpec struct {
	Name          string
	Factory       SensorFactory
	SchemaVersion int
	CodecVersion  int
}

type ActuatorSpec struct {
	Name          string
	Factory       ActuatorFactory
	SchemaVersion int
	CodecVersion  int
}

var sensorRegistry = struct {
	mu sync.RWMutex
	m  map[string]SensorFactory
}{
	m: make(map[string]SensorFactory),
}

var actuatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]ActuatorFactory
}{
	m: make(map[string]ActuatorFactory),
}

func init() {
	initializeBuiltIns()
}

func initializeBuiltIns() {
	mustRegisterSensor(SinusoidSensorName, func(channels int) Sensor {
		return SinusoidSensor{Channels: channels, Freq: 1, Phase: 0.5}
	})
	mustRegisterSensor(ConstantSensorName, func(channels int) Sensor {
		return ConstantSensor{Channels: channels, Value: 1}
	})
	mustRegisterSensor(PulseSensorName, func(channels int) Sensor {
		return PulseSensor{Channels: channels, Period: 1}
	})
	mustRegisterActuator(RecorderActuatorName, func() Actuator { return NewRecorderActuator() })
	mustRegisterActuator(DiscardActuatorName, func() Actuator { return DiscardActuator{} })
}

func RegisterSensor(name string, factory SensorFactory) error {
	return RegisterSensorWithSpec(SensorSpec{
		Name:          name,
		Factory:       factory,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func RegisterSensorWithSpec(spec SensorSpec) error {
	if spec.Name == "" {
		return errors.New("sensor name is required")
	}
	if spec.Factory == nil {
		return errors.New("sensor factory is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	sensorRegistry.mu.Lock()
	defer sensorRegistry.mu.Unlock()

	if _, exists := sensorRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrSensorExists, spec.Name)
	}
	sensorRegistry.m[spec.Name] = spec.Factory
	return nil
}

func mustRegisterSensor(name string, factory SensorFactory) {
	if err := RegisterSensor(name, factory); err != nil {
		panic(err)
	}
}

// ResolveSensor builds the named sensor with channels readings per cell.
func ResolveSensor(name string, channels int) (Sensor, error) {
	if channels < 0 {
		return nil, fmt.Errorf("%w: %d sensor channels", model.ErrConfiguration, channels)
	}
	sensorRegistry.mu.RLock()
	factory, ok := sensorRegistry.m[name]
	sensorRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSensorNotFound, name)
	}
	return factory(channels), nil
}

func ListSensors() []string {
	sensorRegistry.mu.RLock()
	defer sensorRegistry.mu.RUnlock()
	names := maps.Keys(sensorRegistry.m)
	slices.Sort(names)
	return names
}

func RegisterActuator(name string, factory ActuatorFactory) error {
	return RegisterActuatorWithSpec(ActuatorSpec{
		Name:          name,
		Factory:       factory,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func RegisterActuatorWithSpec(spec ActuatorSpec) error {
	if spec.Name == "" {
		return errors.New("actuator name is required")
	}
	if spec.Factory == nil {
		return errors.New("actuator factory is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	actuatorRegistry.mu.Lock()
	defer actuatorRegistry.mu.Unlock()

	if _, exists := actuatorRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrActuatorExists, spec.Name)
	}
	actuatorRegistry.m[spec.Name] = spec.Factory
	return nil
}

func mustRegisterActuator(name string, factory ActuatorFactory) {
	if err := RegisterActuator(name, factory); err != nil {
		panic(err)
	}
}

func ResolveActuator(name string) (Actuator, error) {
	actuatorRegistry.mu.RLock()
	factory, ok := actuatorRegistry.m[name]
	actuatorRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActuatorNotFound, name)
	}
	return factory(), nil
}

func ListActuators() []string {
	actuatorRegistry.mu.RLock()
	defer actuatorRegistry.mu.RUnlock()
	names := maps.Keys(actuatorRegistry.m)
	slices.Sort(names)
	return names
}

func resetRegistriesForTests() {
	sensorRegistry.mu.Lock()
	sensorRegistry.m = make(map[string]SensorFactory)
	sensorRegistry.mu.Unlock()
	actuatorRegistry.mu.Lock()
	actuatorRegistry.m = make(map[string]ActuatorFactory)
	actuatorRegistry.mu.Unlock()
	initializeBuiltIns()
}
