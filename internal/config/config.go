// Package config handles gridwarp configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/internal/logger"
)

// Grid size range offered to users.
const (
	MinGridSize = 2
	MaxGridSize = 10
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all gridwarp settings.
type Config struct {
	Grid    GridConfig    `yaml:"grid"`
	Mesh    MeshConfig    `yaml:"mesh"`
	View    ViewConfig    `yaml:"view"`
	Logging LoggingConfig `yaml:"logging"`
}

// GridConfig holds control grid settings.
type GridConfig struct {
	Kind      string `yaml:"kind"`
	Size      int    `yaml:"size"`
	Attenuate bool   `yaml:"attenuate"`
	Seed      uint64 `yaml:"seed"` // 0 picks a new seed per build
}

// MeshConfig holds mesh file paths.
type MeshConfig struct {
	Path   string `yaml:"path"`
	Output string `yaml:"output"`
}

// ViewConfig holds the viewport used to map cursor positions.
type ViewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Kind: grid.Bilinear.String(),
			Size: MinGridSize,
		},
		View: ViewConfig{
			Width:  800,
			Height: 800,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if _, err := grid.ParseKind(c.Grid.Kind); err != nil {
		return fmt.Errorf("%w: grid.kind: %w", ErrInvalidConfig, err)
	}
	if c.Grid.Size < MinGridSize || c.Grid.Size > MaxGridSize {
		return fmt.Errorf("%w: grid.size %d outside [%d, %d]", ErrInvalidConfig, c.Grid.Size, MinGridSize, MaxGridSize)
	}
	if c.View.Width <= 0 || c.View.Height <= 0 {
		return fmt.Errorf("%w: view %dx%d", ErrInvalidConfig, c.View.Width, c.View.Height)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// GridKind returns the configured grid kind. Call Validate first.
func (c *Config) GridKind() grid.Kind {
	k, _ := grid.ParseKind(c.Grid.Kind)
	return k
}

// GridParams returns generation parameters for a model of the given size.
func (c *Config) GridParams(modelSize float32) grid.Params {
	return grid.Params{
		Kind:      c.GridKind(),
		Size:      c.Grid.Size,
		ModelSize: modelSize,
		Seed:      c.Grid.Seed,
	}
}
