package dolly

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the host-supplied description of a slider, fixed for a session.
//
// Changing Min, Max or Step means re-initializing the slider; see
// Engine.Reconfigure.
//
// Example usage:
//
//	cfg := dolly.DefaultConfig()
//	cfg.Min, cfg.Max = 50, 200
//	cfg.Value = 100
//	cfg.Orientation = dolly.Vertical
type Config struct {
	Min float64 `env:"MIN" envDefault:"0"`
	Max float64 `env:"MAX" envDefault:"100"`
	// Step is the grid spacing used by arrow keys and pointer quantization.
	Step float64 `env:"STEP" envDefault:"1"`
	// PageStep is the PageUp/PageDown increment (0 = a tenth of the range)
	PageStep float64 `env:"PAGE_STEP" envDefault:"0"`
	// Value is the initial value; it is clamped and quantized at creation.
	Value       float64     `env:"VALUE" envDefault:"0"`
	Orientation Orientation `env:"ORIENTATION" envDefault:"horizontal"`
	// ResetValue makes Reconfigure start again from Value instead of keeping
	// the current value.
	ResetValue bool `env:"RESET_VALUE" envDefault:"false"`
}

// DefaultConfig returns a 0..100 horizontal slider with step 1 at 0.
func DefaultConfig() Config {
	return Config{
		Min:         0,
		Max:         100,
		Step:        1,
		Orientation: Horizontal,
	}
}

// Validate reports the *ConfigError New would return for c.
func (c Config) Validate() error {
	if _, err := NewBounds(c.Min, c.Max, c.Step); err != nil {
		return err
	}
	if c.Orientation != Horizontal && c.Orientation != Vertical {
		return newConfigError("orientation", "must be horizontal or vertical", c.Min, c.Max, c.Step)
	}
	return nil
}

// ConfigFromEnv reads a Config from environment variables named prefix+FIELD,
// e.g. DOLLY_MIN, DOLLY_MAX, DOLLY_STEP, DOLLY_ORIENTATION. Unset variables
// fall back to DefaultConfig values. The result is validated.
func ConfigFromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
