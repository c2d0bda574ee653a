package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headfit/pkg/placement"
	"headfit/pkg/postprocess"
	"headfit/pkg/scale"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, scale.DefaultParams(), cfg.ScaleParams())
	assert.Equal(t, placement.DefaultConfig(), cfg.PlacementConfig())
	assert.Equal(t, postprocess.DefaultOptions(), cfg.PostprocessOptions())
	assert.Equal(t, 48, cfg.Scan.NeckSteps)
	assert.Equal(t, 36, cfg.Scan.HeadSteps)
	assert.Equal(t, 0.0016, cfg.Trim.Margin)
}

func TestDecimatorChoice(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.PostprocessOptions().Decimator)

	cfg.Postprocess.Decimator = "Plane"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, postprocess.NewPlaneDecimator(), cfg.PostprocessOptions().Decimator)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"headfit.yaml", "headfit.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.Postprocess.TargetTriangleBudget = 12345
			cfg.Placement.HorizontalBias = 0.02
			cfg.Output.Format = "stl"
			require.NoError(t, SaveConfig(cfg, path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("scale:\n  shrinkBias: 0.9\n"), 0644))
	cfg, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Scale.ShrinkBias)
	assert.Equal(t, 0.28, cfg.Scale.Min)

	tomlPath := filepath.Join(dir, "partial.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[placement]\nrightIters = 4\n"), 0644))
	cfg, err = LoadConfig(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Placement.RightIters)
	assert.Equal(t, 0.008, cfg.Placement.RightStep)
}

func TestLoadConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scale: [unclosed"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty neck range":  func(c *Config) { c.Scan.NeckZMin = 0.9 },
		"zero steps":        func(c *Config) { c.Scan.HeadSteps = 0 },
		"quantile range":    func(c *Config) { c.Placement.BodyTopP = 1.5 },
		"inverted ratios":   func(c *Config) { c.Postprocess.MinRatio = 0.7 },
		"negative budget":   func(c *Config) { c.Postprocess.TargetTriangleBudget = -1 },
		"bad format":        func(c *Config) { c.Output.Format = "fbx" },
		"scale clamp":       func(c *Config) { c.Scale.Min = 0.9 },
		"zero band":         func(c *Config) { c.Scan.RingBandRatio = 0 },
		"negative iters":    func(c *Config) { c.Placement.RightIters = -1 },
		"negative min gap":  func(c *Config) { c.Placement.MinSafeGap = -0.1 },
		"zero right step":   func(c *Config) { c.Placement.RightStep = 0 },
		"negative weld":     func(c *Config) { c.Postprocess.WeldDistance = -1 },
		"foot band too big": func(c *Config) { c.Postprocess.FootBand = 2 },
		"unknown decimator": func(c *Config) { c.Postprocess.Decimator = "quadric" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}
