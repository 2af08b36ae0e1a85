// Package config handles rosetool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Config holds all rosetool settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Map     MapConfig     `yaml:"map"`
	Export  ExportConfig  `yaml:"export"`
	Workers int           `yaml:"workers"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig locates the extracted ROSE client data.
type DataConfig struct {
	Root string `yaml:"root"` // directory containing 3DDATA

	// Overlays are extra data directories searched before Root, last
	// first. Patched files go here.
	Overlays []string `yaml:"overlays,omitempty"`
}

// MapConfig selects the map tiles to load. Tile coordinates are inclusive.
type MapConfig struct {
	Dir               string `yaml:"dir"`
	StartX            int    `yaml:"start_x"`
	StartY            int    `yaml:"start_y"`
	EndX              int    `yaml:"end_x"`
	EndY              int    `yaml:"end_y"`
	BuildingCatalog   string `yaml:"building_catalog"`
	DecorationCatalog string `yaml:"decoration_catalog"`
}

// TilePath returns the path of tile (x, y) with the given extension.
func (m MapConfig) TilePath(x, y int, ext string) string {
	return path.Join(m.Dir, fmt.Sprintf("%d_%d.%s", x, y, strings.TrimPrefix(ext, ".")))
}

// TilesX returns the number of tile columns.
func (m MapConfig) TilesX() int { return m.EndX - m.StartX + 1 }

// TilesY returns the number of tile rows.
func (m MapConfig) TilesY() int { return m.EndY - m.StartY + 1 }

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	OutDir string `yaml:"out_dir"`
	Binary bool   `yaml:"binary"` // write .glb instead of .gltf
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config set up for the Junon (JDT01) map.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Root: ".",
		},
		Map: MapConfig{
			Dir:               "3DDATA/MAPS/JUNON/JDT01",
			StartX:            31,
			StartY:            30,
			EndX:              34,
			EndY:              33,
			BuildingCatalog:   "3DDATA/JUNON/LIST_CNST_JDT.ZSC",
			DecorationCatalog: "3DDATA/JUNON/LIST_DECO_JDT.ZSC",
		},
		Export: ExportConfig{
			OutDir: "export",
			Binary: true,
		},
		Workers: 4,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks settings that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	var errs []error
	if c.Data.Root == "" {
		errs = append(errs, errors.New("data.root is empty"))
	}
	if c.Map.EndX < c.Map.StartX || c.Map.EndY < c.Map.StartY {
		errs = append(errs, fmt.Errorf("map range %d,%d..%d,%d is empty",
			c.Map.StartX, c.Map.StartY, c.Map.EndX, c.Map.EndY))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}
