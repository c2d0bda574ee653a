package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"headfit/internal/logging"
	"headfit/pkg/assembly"
	"headfit/pkg/config"
)

func main() {
	// Parse command line arguments
	headPath := flag.String("head", "", "Head mesh (.obj or .stl)")
	bodyPath := flag.String("body", "", "Body mesh (.obj or .stl)")
	configPath := flag.String("config", "headfit.yaml", "Configuration file (.yaml or .toml)")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	outputPath := flag.String("output", "", "Final mesh path (default: <out-dir>/<case>_final_<stamp>.<format>)")
	outputDir := flag.String("out-dir", "", "Output directory")
	caseName := flag.String("case", "", "Case name (default: the head file's directory name)")
	exportAssembled := flag.Bool("export-assembled", false, "Also export the merged mesh before cleanup")
	diagnosticsDir := flag.String("diagnostics", "", "Directory for landmark scan charts")
	printJSON := flag.Bool("print-json", false, "Print the result record as JSON between markers")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	targetTris := flag.Int("target-tris", 0, "Triangle budget for the final mesh")
	weldDist := flag.Float64("weld-dist", 0, "Vertex weld distance")
	shadingAngle := flag.Float64("shading-angle", 0, "Auto-smooth angle threshold in degrees")
	horizontalBias := flag.Float64("horizontal-bias", 0, "Head offset from the torso centerline in +X")
	extraOffset := flag.Float64("extra-offset", 0, "Extra +X offset applied after convergence")
	shrinkBias := flag.Float64("shrink-bias", 0, "Multiplier applied to the solved head scale")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			logging.Fatal("Failed to write configuration", "err", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *headPath == "" || *bodyPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logging.Fatal("Failed to load configuration", "path", *configPath, "err", err)
	}

	// Only flags given on the command line override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out-dir":
			cfg.Output.Dir = *outputDir
		case "export-assembled":
			cfg.Output.ExportAssembled = *exportAssembled
		case "diagnostics":
			cfg.Output.DiagnosticsDir = *diagnosticsDir
		case "log-level":
			cfg.Output.LogLevel = *logLevel
		case "target-tris":
			cfg.Postprocess.TargetTriangleBudget = *targetTris
		case "weld-dist":
			cfg.Postprocess.WeldDistance = *weldDist
		case "shading-angle":
			cfg.Postprocess.ShadingAngleThreshold = *shadingAngle
		case "horizontal-bias":
			cfg.Placement.HorizontalBias = *horizontalBias
		case "extra-offset":
			cfg.Placement.ExtraHorizontalOffset = *extraOffset
		case "shrink-bias":
			cfg.Scale.ShrinkBias = *shrinkBias
		}
	})

	if err := logging.SetLevel(cfg.Output.LogLevel); err != nil {
		logging.Warn("Unknown log level, keeping info", "level", cfg.Output.LogLevel)
	}

	assembler := assembly.NewAssembler(&assembly.Params{
		HeadPath:   *headPath,
		BodyPath:   *bodyPath,
		OutputPath: *outputPath,
		CaseName:   *caseName,
		Config:     cfg,
	})

	startTime := time.Now()
	if err := assembler.Process(); err != nil {
		logging.Fatal("Assembly failed", "err", err)
	}

	result, err := assembler.GetResult()
	if err != nil {
		logging.Fatal("Assembly produced no result", "err", err)
	}
	logging.Info("Assembly completed",
		"seconds", fmt.Sprintf("%.2f", time.Since(startTime).Seconds()),
		"output", result.OutputPath,
		"triangles", result.FinalTriangleCount,
		"scale", result.ScaleUsed)

	if *printJSON {
		if err := result.WriteJSON(os.Stdout); err != nil {
			logging.Fatal("Failed to print result", "err", err)
		}
	}
}
