// Command max17048gen turns a board configuration file into Go source that
// wires its fuel gauges into a core.App.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fuelgauge-go/services/codegen"
	"fuelgauge-go/services/config"
	_ "fuelgauge-go/services/hal/devices/max17048"
)

func main() {
	configPath := flag.String("config", "", "Board configuration file (.yaml, .yml or .toml)")
	envFile := flag.String("env", "", "Optional dotenv file for ${NAME} substitution")
	outPath := flag.String("out", "", "Output path for the generated Go file (default stdout)")
	pkg := flag.String("package", "main", "Package clause of the generated file")
	planPath := flag.String("plan", "", "Optional output path for the binding plan (.yaml or .cbor)")
	verbose := flag.Bool("verbose", false, "Log debug output")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: max17048gen -config <path> [-env <path>] [-out <path>] [-package <name>] [-plan <path>] [-verbose]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log, *configPath, *envFile, *outPath, *pkg, *planPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, configPath, envFile, outPath, pkg, planPath string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Debug("config loaded", "path", configPath, "buses", len(cfg.I2C), "records", len(cfg.Sensor))

	plan, err := config.Build(cfg)
	if err != nil {
		return err
	}
	log.Debug("plan built",
		"components", plan.Count(codegen.OpNewComponent),
		"sensors", plan.Count(codegen.OpNewSensor),
	)

	if planPath != "" {
		if err := writePlan(planPath, plan); err != nil {
			return fmt.Errorf("writing plan: %w", err)
		}
		log.Info("generated", "path", planPath)
	}

	em := codegen.NewEmitter(codegen.EmitterOptions{
		Package:   pkg,
		Generator: "max17048gen",
		Source:    filepath.Base(configPath),
	})
	if err := plan.Replay(em); err != nil {
		return fmt.Errorf("emitting: %w", err)
	}
	src, err := em.Source()
	if outPath == "" {
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(src)
		return err
	}
	if err != nil {
		// Write unformatted so you can debug the generator output
		if src != nil {
			_ = os.WriteFile(outPath+".broken", src, 0o644)
		}
		return fmt.Errorf("%s: %w", filepath.Base(outPath), err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(outPath, src, 0o644); err != nil {
		return err
	}
	log.Info("generated", "path", outPath)
	return nil
}

func writePlan(path string, plan codegen.Plan) error {
	var b bytes.Buffer
	var err error
	switch filepath.Ext(path) {
	case ".cbor":
		err = plan.EncodeCBOR(&b)
	case ".yaml", ".yml":
		err = plan.EncodeYAML(&b)
	default:
		return fmt.Errorf("unknown plan extension %q (want .yaml or .cbor)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b.Bytes(), 0o644)
}
