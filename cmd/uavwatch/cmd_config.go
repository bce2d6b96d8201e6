package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
)

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	write := fs.String("write", "", "write the default configuration to a file")
	_ = fs.Parse(args)

	cfg := core.DefaultConfig()

	if *write != "" {
		if _, err := os.Stat(*write); err == nil {
			fatal(fmt.Errorf("refusing to overwrite existing file %s", *write))
		}
		if err := core.SaveConfig(cfg, *write); err != nil {
			fatal(err)
		}
		fmt.Printf("wrote default config to %s\n", *write)
		return
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fatal(err)
	}
	fmt.Print(string(data))
}
