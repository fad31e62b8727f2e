package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sitewatch/internal/app"
	"sitewatch/internal/config"
)

// main starts sitewatch service using file or directory config source.
// Params: CLI flags (--config-file or --config-dir, optional --simulate).
// Returns: process exit code by startup/run result.
func main() {
	var (
		configFile = flag.String("config-file", "", "path to one TOML config file")
		configDir  = flag.String("config-dir", "", "path to directory with TOML config fragments")
		simulate   = flag.Duration("simulate", 0, "emit synthetic readings at this interval (0 disables)")
	)
	flag.Parse()

	source, err := config.FromCLI(*configFile, *configDir)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config load failed:", err.Error())
		os.Exit(2)
	}

	service, err := app.New(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service init failed:", err.Error())
		os.Exit(1)
	}
	if *simulate > 0 {
		service.EnableSimulation(*simulate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := service.Run(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service run failed:", err.Error())
		os.Exit(1)
	}
}
