package dolly

import (
	"errors"
	"fmt"

	"github.com/teranos/dolly/trip"
)

// ErrInvalidConfig is matched by every *ConfigError via errors.Is.
var ErrInvalidConfig = errors.New("dolly: invalid slider configuration")

// ConfigError reports an invalid min/max/step relationship.
//
// It is the only error the engine ever surfaces. It is returned from New,
// NewBounds, Config.Validate and Engine.Reconfigure, and it is fatal to the
// widget: no engine exists for a configuration that produced it.
type ConfigError struct {
	Field  string // "min", "max" or "step"
	Reason string
	Min    float64
	Max    float64
	Step   float64
}

func newConfigError(field, reason string, min, max, step float64) *ConfigError {
	return &ConfigError{Field: field, Reason: reason, Min: min, Max: max, Step: step}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dolly: %s %s (min=%v max=%v step=%v)", e.Field, e.Reason, e.Min, e.Max, e.Step)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Trip converts the error into a Fall for a trip.Handler.
func (e *ConfigError) Trip() *trip.Trip {
	return trip.NewFall(trip.KindConfig, e.Error(), trip.Context{
		"field": e.Field,
		"min":   e.Min,
		"max":   e.Max,
		"step":  e.Step,
	})
}
