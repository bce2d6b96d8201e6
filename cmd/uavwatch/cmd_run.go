package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/sim"
)

// runFlags holds the parsed run-command flag values.
type runFlags struct {
	cycles      int
	seed        int64
	anomalyRate float64
	outputDir   string
}

// registerRunFlags declares the override flags on fs and returns their
// destination struct.
func registerRunFlags(fs *flag.FlagSet) *runFlags {
	rf := &runFlags{}
	fs.IntVar(&rf.cycles, "cycles", 0, "override number of simulation cycles")
	fs.Int64Var(&rf.seed, "seed", 0, "override RNG seed")
	fs.Float64Var(&rf.anomalyRate, "anomaly-rate", 0, "override fault-injection rate")
	fs.StringVar(&rf.outputDir, "output", "", "override report output directory")
	return rf
}

// applyRunOverrides copies flag values onto cfg for flags the user actually
// set, so explicit zero values (seed 0, anomaly-rate 0) are honored.
func applyRunOverrides(cfg *core.Config, fs *flag.FlagSet, rf *runFlags) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cycles":
			cfg.Simulation.Cycles = rf.cycles
		case "seed":
			cfg.Simulation.Seed = rf.seed
		case "anomaly-rate":
			cfg.Simulation.AnomalyRate = rf.anomalyRate
		case "output":
			cfg.Reports.OutputDir = rf.outputDir
		}
	})
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	printSummary := fs.Bool("summary", false, "print the run summary as JSON on stdout")
	rf := registerRunFlags(fs)
	_ = fs.Parse(args)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	applyRunOverrides(cfg, fs, rf)

	runner, err := sim.NewRunner(cfg)
	if err != nil {
		fatal(err)
	}
	defer runner.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := runner.Run(ctx)
	if err != nil {
		fatal(err)
	}

	if *printSummary {
		data, err := json.MarshalIndent(result.Summary, "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Println(string(data))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
