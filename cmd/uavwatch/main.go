package main

// ---------------------------------------------------------------------------
// main.go - command dispatcher for the uavwatch CLI
//
// This file is intentionally slim. Command implementations live in their
// own files (cmd_*.go).
// ---------------------------------------------------------------------------

import (
	"fmt"
	"os"
)

var (
	version   = "0.3.0"
	commit    = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--version", "-V":
			printVersion()
			os.Exit(0)
		case "--help", "-h", "help":
			printUsage()
			os.Exit(0)
		}
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	subcmd := os.Args[1]
	args := os.Args[2:]

	switch subcmd {
	case "run":
		cmdRun(args)
	case "topology":
		cmdTopology(args)
	case "config":
		cmdConfig(args)
	case "version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", subcmd)
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("uavwatch %s (commit %s, built %s)\n", version, commit, buildDate)
}

func printUsage() {
	fmt.Print(`uavwatch — UAV telemetry trust and anomaly pipeline

Usage:
  uavwatch <command> [flags]

Commands:
  run        run the telemetry simulation and write reports
  topology   inspect the fleet connectivity graph
  config     print or write the default configuration
  version    print version information

Run 'uavwatch <command> -h' for command flags.
`)
}
