package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/topology"
)

func cmdTopology(args []string) {
	fs := flag.NewFlagSet("topology", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	path := fs.String("path", "", "shortest path query as SOURCE,DEST")
	neighbors := fs.String("neighbors", "", "list neighbors of a unit")
	isolated := fs.Bool("isolated", false, "list isolated units")
	_ = fs.Parse(args)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	topo := topology.NewTopology(zerolog.Nop())
	topo.Initialize(cfg.Topology.Units, cfg.Topology.ConnectionProbability, cfg.Simulation.Seed)

	switch {
	case *path != "":
		parts := strings.SplitN(*path, ",", 2)
		if len(parts) != 2 {
			fatal(fmt.Errorf("-path wants SOURCE,DEST, got %q", *path))
		}
		route := topo.ShortestPath(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		if route == nil {
			fmt.Println("no path")
			return
		}
		fmt.Println(strings.Join(route, " -> "))

	case *neighbors != "":
		for _, id := range topo.Neighbors(*neighbors) {
			fmt.Println(id)
		}

	case *isolated:
		for _, id := range topo.IsolatedUnits() {
			fmt.Println(id)
		}

	default:
		data, err := json.MarshalIndent(topo.Statistics(), "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Println(string(data))
	}
}
