// Package config loads quadsplit settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chazu/quadsplit/pkg/kernel/manifold"
	"github.com/chazu/quadsplit/pkg/kernel/sdfx"
	"github.com/chazu/quadsplit/pkg/meshio"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

// ErrUnknownKey is returned when a config file sets a key Config does not
// define.
var ErrUnknownKey = errors.New("unknown key")

// Config is the full set of options. The zero value is not useful; start
// from Default.
type Config struct {
	Refine Refine `toml:"refine"`
	Clean  Clean  `toml:"clean"`
	Kernel Kernel `toml:"kernel"`
	Engine Engine `toml:"engine"`
	Output Output `toml:"output"`
	Log    Log    `toml:"log"`
}

type Refine struct {
	RequireNormals bool `toml:"require_normals"`
}

// Clean controls welding of loaded meshes before they are refined.
type Clean struct {
	Weld      bool    `toml:"weld"`
	Tolerance float64 `toml:"tolerance"`
}

// Kernel selects the solid modeling backend used by scripts. Cells is the
// sdfx marching cubes resolution; Segments is the manifold facet count for
// round primitives.
type Kernel struct {
	Backend  string `toml:"backend"`
	Cells    int    `toml:"cells"`
	Segments int    `toml:"segments"`
}

// Kernel backends.
const (
	BackendSDFX     = "sdfx"
	BackendManifold = "manifold"
)

type Engine struct {
	Timeout string `toml:"timeout"`
}

// TimeoutDuration parses Timeout.
func (e Engine) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: engine.timeout: %w", err)
	}
	return d, nil
}

// Output controls how meshes are written. An empty Format means the format
// follows the output file extension.
type Output struct {
	Format  string `toml:"format"`
	Normals bool   `toml:"normals"`
}

type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// ZapLevel parses Level.
func (l Log) ZapLevel() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Refine: Refine{RequireNormals: true},
		Clean:  Clean{Weld: true},
		Kernel: Kernel{Backend: BackendSDFX, Cells: sdfx.DefaultCells, Segments: manifold.DefaultSegments},
		Engine: Engine{Timeout: "30s"},
		Output: Output{Normals: true},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults. Keys the Config does not know are an
// error. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w:\n%s", ErrUnknownKey, strict.String())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Clean.Tolerance < 0 {
		return fmt.Errorf("clean.tolerance must not be negative, got %g", c.Clean.Tolerance)
	}
	if c.Kernel.Backend != BackendSDFX && c.Kernel.Backend != BackendManifold {
		return fmt.Errorf("kernel.backend must be %q or %q, got %q", BackendSDFX, BackendManifold, c.Kernel.Backend)
	}
	if c.Kernel.Cells < 2 {
		return fmt.Errorf("kernel.cells must be at least 2, got %d", c.Kernel.Cells)
	}
	if c.Kernel.Segments < 3 {
		return fmt.Errorf("kernel.segments must be at least 3, got %d", c.Kernel.Segments)
	}
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return fmt.Errorf("engine.timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Output.Format != "" {
		if _, err := meshio.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("output.format: %w", err)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Encode writes c as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return data, nil
}
