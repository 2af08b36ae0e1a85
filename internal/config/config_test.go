package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "3DDATA/MAPS/JUNON/JDT01", cfg.Map.Dir)
	assert.Equal(t, 31, cfg.Map.StartX)
	assert.Equal(t, 30, cfg.Map.StartY)
	assert.Equal(t, 34, cfg.Map.EndX)
	assert.Equal(t, 33, cfg.Map.EndY)
	assert.Equal(t, 4, cfg.Map.TilesX())
	assert.Equal(t, 4, cfg.Map.TilesY())
	assert.Equal(t, "3DDATA/JUNON/LIST_CNST_JDT.ZSC", cfg.Map.BuildingCatalog)
	assert.Equal(t, "3DDATA/JUNON/LIST_DECO_JDT.ZSC", cfg.Map.DecorationCatalog)
	assert.True(t, cfg.Export.Binary)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
	assert.NoError(t, cfg.Validate())
}

func TestTilePath(t *testing.T) {
	m := Default().Map
	assert.Equal(t, "3DDATA/MAPS/JUNON/JDT01/31_30.HIM", m.TilePath(31, 30, "HIM"))
	assert.Equal(t, "3DDATA/MAPS/JUNON/JDT01/32_33.til", m.TilePath(32, 33, ".til"))
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rosetool.yaml")
	yamlContent := `
data:
  root: /srv/rose
  overlays:
    - /srv/rose-patch
map:
  dir: 3DDATA/MAPS/ZANT/JZT01
  start_x: 30
  end_x: 30
export:
  binary: false
workers: 8
logging:
  level: warn
  log_file: /tmp/rosetool.log
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(&Flags{Config: configPath})
	require.NoError(t, err)

	assert.Equal(t, "/srv/rose", cfg.Data.Root)
	assert.Equal(t, []string{"/srv/rose-patch"}, cfg.Data.Overlays)
	assert.Equal(t, "3DDATA/MAPS/ZANT/JZT01", cfg.Map.Dir)
	assert.Equal(t, 30, cfg.Map.StartX)
	assert.Equal(t, 30, cfg.Map.EndX)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 30, cfg.Map.StartY)
	assert.Equal(t, "3DDATA/JUNON/LIST_CNST_JDT.ZSC", cfg.Map.BuildingCatalog)
	assert.False(t, cfg.Export.Binary)
	assert.Equal(t, "export", cfg.Export.OutDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/rosetool.log", cfg.Logging.LogFile)
}

func TestLoad_UnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rosetool.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workerz: 3\n"), 0o644))

	_, err := Load(&Flags{Config: configPath})
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rosetool.yaml")
	require.NoError(t, os.WriteFile(configPath, nil, 0o644))

	cfg, err := Load(&Flags{Config: configPath})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(&Flags{Config: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestFlagsOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rosetool.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workers: 2\ndata:\n  root: /from/file\n"), 0o644))

	fs := flag.NewFlagSet("map", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-config", configPath,
		"-debug",
		"-root", "/from/flag",
		"-workers", "6",
		"-out", "/tmp/out",
	}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/from/flag", cfg.Data.Root)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "/tmp/out", cfg.Export.OutDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty root", func(c *Config) { c.Data.Root = "" }},
		{"reversed x range", func(c *Config) { c.Map.EndX = c.Map.StartX - 1 }},
		{"reversed y range", func(c *Config) { c.Map.EndY = c.Map.StartY - 1 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveTo(t *testing.T) {
	savePath := filepath.Join(t.TempDir(), "subdir", "rosetool.yaml")

	cfg := Default()
	cfg.Data.Root = "/data/rose"
	cfg.Map.StartX = 40
	cfg.Map.EndX = 41
	cfg.Workers = 3
	require.NoError(t, cfg.SaveTo(savePath))

	loaded, err := Load(&Flags{Config: savePath})
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, []string{"roseimport", "RoseImport"}, filepath.Base(dir))
}
