// Package config provides configuration loading and management for headfit.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"headfit/pkg/landmark"
	"headfit/pkg/placement"
	"headfit/pkg/postprocess"
	"headfit/pkg/scale"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML or TOML
type Config struct {
	// Landmark scan parameters
	Scan struct {
		// NeckZMin and NeckZMax bound the neck sweep as fractions of body height
		NeckZMin float64 `yaml:"neckZMin" toml:"neckZMin"`
		NeckZMax float64 `yaml:"neckZMax" toml:"neckZMax"`

		// NeckSteps is the number of neck sweep intervals
		NeckSteps int `yaml:"neckSteps" toml:"neckSteps"`

		// HeadZMin and HeadZMax bound the head-base sweep as fractions of head height
		HeadZMin float64 `yaml:"headZMin" toml:"headZMin"`
		HeadZMax float64 `yaml:"headZMax" toml:"headZMax"`

		// HeadSteps is the number of head-base sweep intervals
		HeadSteps int `yaml:"headSteps" toml:"headSteps"`

		// RingBandRatio is the ring half-thickness as a fraction of the part height
		RingBandRatio float64 `yaml:"ringBandRatio" toml:"ringBandRatio"`

		// MinPoints is the smallest ring that gets measured
		MinPoints int `yaml:"minPoints" toml:"minPoints"`

		// ShoulderOffset places the shoulder ring this fraction of body height below the neck
		ShoulderOffset float64 `yaml:"shoulderOffset" toml:"shoulderOffset"`

		// ShoulderBandFactor widens the body band for the shoulder ring
		ShoulderBandFactor float64 `yaml:"shoulderBandFactor" toml:"shoulderBandFactor"`

		// ShoulderMinBand is the floor of the shoulder band in world units
		ShoulderMinBand float64 `yaml:"shoulderMinBand" toml:"shoulderMinBand"`

		// RingCap limits vertices per mesh during ring extraction
		RingCap int `yaml:"ringCap" toml:"ringCap"`

		// VertexCap limits vertices per mesh for order statistics
		VertexCap int `yaml:"vertexCap" toml:"vertexCap"`
	} `yaml:"scan" toml:"scan"`

	// Scale solver parameters
	Scale struct {
		MarginRadius      float64 `yaml:"marginRadius" toml:"marginRadius"`
		MaxHeadHeightFrac float64 `yaml:"maxHeadHeightFrac" toml:"maxHeadHeightFrac"`
		HeadShoulderFrac  float64 `yaml:"headShoulderFrac" toml:"headShoulderFrac"`
		Min               float64 `yaml:"min" toml:"min"`
		Max               float64 `yaml:"max" toml:"max"`
		FailsafeCap       float64 `yaml:"failsafeCap" toml:"failsafeCap"`
		ShrinkBias        float64 `yaml:"shrinkBias" toml:"shrinkBias"`
	} `yaml:"scale" toml:"scale"`

	// Placement parameters
	Placement struct {
		GapZ                  float64 `yaml:"gapZ" toml:"gapZ"`
		MinSafeGap            float64 `yaml:"minSafeGap" toml:"minSafeGap"`
		HeadBaseP             float64 `yaml:"headBaseP" toml:"headBaseP"`
		BodyTopP              float64 `yaml:"bodyTopP" toml:"bodyTopP"`
		TorsoBandLow          float64 `yaml:"torsoBandLow" toml:"torsoBandLow"`
		TorsoBandHigh         float64 `yaml:"torsoBandHigh" toml:"torsoBandHigh"`
		HorizontalBias        float64 `yaml:"horizontalBias" toml:"horizontalBias"`
		RightMax              float64 `yaml:"rightMax" toml:"rightMax"`
		RightIters            int     `yaml:"rightIters" toml:"rightIters"`
		RightStep             float64 `yaml:"rightStep" toml:"rightStep"`
		RightEps              float64 `yaml:"rightEps" toml:"rightEps"`
		ExtraHorizontalOffset float64 `yaml:"extraHorizontalOffset" toml:"extraHorizontalOffset"`
	} `yaml:"placement" toml:"placement"`

	// Hidden geometry trim
	Trim struct {
		// Enabled turns the head trim on
		Enabled bool `yaml:"enabled" toml:"enabled"`

		// Margin is added to the body top to get the cut height
		Margin float64 `yaml:"margin" toml:"margin"`
	} `yaml:"trim" toml:"trim"`

	// Export cleanup
	Postprocess struct {
		WeldDistance          float64 `yaml:"weldDistance" toml:"weldDistance"`
		ShadingAngleThreshold float64 `yaml:"shadingAngleThreshold" toml:"shadingAngleThreshold"`
		FootBand              float64 `yaml:"footBand" toml:"footBand"`
		TargetTriangleBudget  int     `yaml:"targetTriangleBudget" toml:"targetTriangleBudget"`
		MinRatio              float64 `yaml:"minRatio" toml:"minRatio"`
		MaxRatio              float64 `yaml:"maxRatio" toml:"maxRatio"`

		// Decimator is "edge" (shortest edge collapse) or "plane" (flat
		// vertex removal for closed meshes)
		Decimator string `yaml:"decimator" toml:"decimator"`
	} `yaml:"postprocess" toml:"postprocess"`

	// Output parameters
	Output struct {
		// Dir is where the final mesh is written
		Dir string `yaml:"dir" toml:"dir"`

		// Format is "obj" or "stl"
		Format string `yaml:"format" toml:"format"`

		// ExportAssembled also writes the merged mesh before cleanup
		ExportAssembled bool `yaml:"exportAssembled" toml:"exportAssembled"`

		// DiagnosticsDir receives scan profile charts when set
		DiagnosticsDir string `yaml:"diagnosticsDir" toml:"diagnosticsDir"`

		// Timestamp appends a run timestamp to output names
		Timestamp bool `yaml:"timestamp" toml:"timestamp"`

		// LogLevel is one of debug, info, warn, error
		LogLevel string `yaml:"logLevel" toml:"logLevel"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Scan.NeckZMin = 0.50
	cfg.Scan.NeckZMax = 0.82
	cfg.Scan.NeckSteps = 48
	cfg.Scan.HeadZMin = 0.05
	cfg.Scan.HeadZMax = 0.35
	cfg.Scan.HeadSteps = 36
	cfg.Scan.RingBandRatio = 0.012
	cfg.Scan.MinPoints = landmark.DefaultMinPoints
	cfg.Scan.ShoulderOffset = 0.06
	cfg.Scan.ShoulderBandFactor = 1.5
	cfg.Scan.ShoulderMinBand = 0.010
	cfg.Scan.RingCap = landmark.DefaultRingCap
	cfg.Scan.VertexCap = 60000

	sp := scale.DefaultParams()
	cfg.Scale.MarginRadius = sp.MarginRadius
	cfg.Scale.MaxHeadHeightFrac = sp.MaxHeadHeightFrac
	cfg.Scale.HeadShoulderFrac = sp.HeadShoulderFrac
	cfg.Scale.Min = sp.Min
	cfg.Scale.Max = sp.Max
	cfg.Scale.FailsafeCap = sp.FailsafeCap
	cfg.Scale.ShrinkBias = sp.ShrinkBias

	pc := placement.DefaultConfig()
	cfg.Placement.GapZ = pc.GapZ
	cfg.Placement.MinSafeGap = pc.MinSafeGap
	cfg.Placement.HeadBaseP = pc.HeadBaseP
	cfg.Placement.BodyTopP = pc.BodyTopP
	cfg.Placement.TorsoBandLow = pc.TorsoBandLow
	cfg.Placement.TorsoBandHigh = pc.TorsoBandHigh
	cfg.Placement.HorizontalBias = pc.HorizontalBias
	cfg.Placement.RightMax = pc.RightMax
	cfg.Placement.RightIters = pc.RightIters
	cfg.Placement.RightStep = pc.RightStep
	cfg.Placement.RightEps = pc.RightEps
	cfg.Placement.ExtraHorizontalOffset = pc.ExtraHorizontalOffset

	cfg.Trim.Enabled = true
	cfg.Trim.Margin = 0.0016

	po := postprocess.DefaultOptions()
	cfg.Postprocess.WeldDistance = po.WeldDistance
	cfg.Postprocess.ShadingAngleThreshold = po.ShadingAngle
	cfg.Postprocess.FootBand = po.FootBand
	cfg.Postprocess.TargetTriangleBudget = po.TargetTriangles
	cfg.Postprocess.MinRatio = po.MinRatio
	cfg.Postprocess.MaxRatio = po.MaxRatio
	cfg.Postprocess.Decimator = "edge"

	cfg.Output.Dir = "export"
	cfg.Output.Format = "obj"
	cfg.Output.ExportAssembled = false
	cfg.Output.Timestamp = true
	cfg.Output.LogLevel = "info"

	return cfg
}

// ScaleParams returns the scale solver parameters.
func (c *Config) ScaleParams() scale.Params {
	return scale.Params{
		MarginRadius:      c.Scale.MarginRadius,
		MaxHeadHeightFrac: c.Scale.MaxHeadHeightFrac,
		HeadShoulderFrac:  c.Scale.HeadShoulderFrac,
		Min:               c.Scale.Min,
		Max:               c.Scale.Max,
		FailsafeCap:       c.Scale.FailsafeCap,
		ShrinkBias:        c.Scale.ShrinkBias,
	}
}

// PlacementConfig returns the placement solver configuration.
func (c *Config) PlacementConfig() placement.Config {
	return placement.Config{
		GapZ:                  c.Placement.GapZ,
		MinSafeGap:            c.Placement.MinSafeGap,
		RingBandRatio:         c.Scan.RingBandRatio,
		HeadBaseP:             c.Placement.HeadBaseP,
		BodyTopP:              c.Placement.BodyTopP,
		TorsoBandLow:          c.Placement.TorsoBandLow,
		TorsoBandHigh:         c.Placement.TorsoBandHigh,
		HorizontalBias:        c.Placement.HorizontalBias,
		RightMax:              c.Placement.RightMax,
		RightIters:            c.Placement.RightIters,
		RightStep:             c.Placement.RightStep,
		RightEps:              c.Placement.RightEps,
		ExtraHorizontalOffset: c.Placement.ExtraHorizontalOffset,
		VertexCap:             c.Scan.VertexCap,
		RingCap:               c.Scan.RingCap,
	}
}

// PostprocessOptions returns the export cleanup options.
func (c *Config) PostprocessOptions() postprocess.Options {
	return postprocess.Options{
		WeldDistance:    c.Postprocess.WeldDistance,
		ShadingAngle:    c.Postprocess.ShadingAngleThreshold,
		FootBand:        c.Postprocess.FootBand,
		TargetTriangles: c.Postprocess.TargetTriangleBudget,
		MinRatio:        c.Postprocess.MinRatio,
		MaxRatio:        c.Postprocess.MaxRatio,
		Decimator:       c.decimator(),
	}
}

// decimator returns nil for the default edge collapse.
func (c *Config) decimator() postprocess.Decimator {
	if strings.EqualFold(c.Postprocess.Decimator, "plane") {
		return postprocess.NewPlaneDecimator()
	}
	return nil
}

func unit(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %s must be within [0, 1], got %g", ErrInvalid, name, v)
	}
	return nil
}

func positive(name string, v float64) error {
	if !(v > 0) {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalid, name, v)
	}
	return nil
}

// Validate checks the configuration before any geometry work is done.
func (c *Config) Validate() error {
	checks := []error{
		unit("scan.neckZMin", c.Scan.NeckZMin),
		unit("scan.neckZMax", c.Scan.NeckZMax),
		unit("scan.headZMin", c.Scan.HeadZMin),
		unit("scan.headZMax", c.Scan.HeadZMax),
		positive("scan.ringBandRatio", c.Scan.RingBandRatio),
		unit("placement.headBaseP", c.Placement.HeadBaseP),
		unit("placement.bodyTopP", c.Placement.BodyTopP),
		unit("postprocess.footBand", c.Postprocess.FootBand),
		unit("postprocess.minRatio", c.Postprocess.MinRatio),
		unit("postprocess.maxRatio", c.Postprocess.MaxRatio),
		positive("placement.rightStep", c.Placement.RightStep),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	switch {
	case c.Scan.NeckZMin >= c.Scan.NeckZMax:
		return fmt.Errorf("%w: neck scan range [%g, %g] is empty", ErrInvalid, c.Scan.NeckZMin, c.Scan.NeckZMax)
	case c.Scan.HeadZMin >= c.Scan.HeadZMax:
		return fmt.Errorf("%w: head scan range [%g, %g] is empty", ErrInvalid, c.Scan.HeadZMin, c.Scan.HeadZMax)
	case c.Scan.NeckSteps < 1 || c.Scan.HeadSteps < 1:
		return fmt.Errorf("%w: scan steps must be at least 1", ErrInvalid)
	case c.Placement.RightIters < 0:
		return fmt.Errorf("%w: placement.rightIters must not be negative", ErrInvalid)
	case c.Placement.RightMax < 0:
		return fmt.Errorf("%w: placement.rightMax must not be negative", ErrInvalid)
	case c.Placement.MinSafeGap < 0:
		return fmt.Errorf("%w: placement.minSafeGap must not be negative", ErrInvalid)
	case c.Postprocess.MinRatio > c.Postprocess.MaxRatio:
		return fmt.Errorf("%w: decimation ratio bounds [%g, %g] are inverted", ErrInvalid, c.Postprocess.MinRatio, c.Postprocess.MaxRatio)
	case c.Postprocess.WeldDistance < 0:
		return fmt.Errorf("%w: postprocess.weldDistance must not be negative", ErrInvalid)
	case c.Postprocess.TargetTriangleBudget < 0:
		return fmt.Errorf("%w: postprocess.targetTriangleBudget must not be negative", ErrInvalid)
	}

	switch strings.ToLower(c.Postprocess.Decimator) {
	case "", "edge", "plane":
	default:
		return fmt.Errorf("%w: postprocess.decimator must be edge or plane, got %q", ErrInvalid, c.Postprocess.Decimator)
	}

	switch strings.ToLower(c.Output.Format) {
	case "obj", "stl":
	default:
		return fmt.Errorf("%w: output.format must be obj or stl, got %q", ErrInvalid, c.Output.Format)
	}

	if err := c.ScaleParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isTOML(configPath) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
