// cmd/aloft/main.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// This file contains the implementation of the main() function, which
// initializes the system and then runs the simulation until the user
// quits or the process is signaled.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aloft-sim/aloft/log"
	"github.com/aloft-sim/aloft/metrics"
	"github.com/aloft-sim/aloft/server"
	"github.com/aloft-sim/aloft/sim"
	"github.com/aloft-sim/aloft/util"

	"github.com/apenwarr/fixconsole"
	"golang.org/x/sync/errgroup"
)

var (
	cpuprofile   = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile   = flag.String("memprofile", "", "write memory profile to this file")
	logLevel     = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir       = flag.String("logdir", "", "log file directory")
	scenarioFile = flag.String("scenario", "", "filename of JSON file with a scenario definition")
	httpPort     = flag.Int("port", 0, "base port for the HTTP status server")
	rate         = flag.Float64("rate", 0, "simulation rate multiplier")
	tickRate     = flag.Int("tickrate", 0, "simulation ticks per second")
	nslots       = flag.Int("slots", 0, "number of snapshot slots")
	resetSlots   = flag.Bool("resetslots", false, "discard persisted snapshot slots")
)

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		// Not sure this will actually appear, but what else are we going
		// to do...
		fmt.Printf("FixConsole: %v\n", err)
	}

	// The config file provides defaults; explicitly-passed flags win.
	config := LoadOrMakeDefaultConfig(nil)
	if *scenarioFile != "" {
		config.Scenario = *scenarioFile
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *httpPort != 0 {
		config.HTTPPort = *httpPort
	}
	if *rate != 0 {
		config.SimRate = float32(*rate)
	}
	if *tickRate != 0 {
		config.TickRate = *tickRate
	}
	if *nslots != 0 {
		config.Slots = *nslots
	}

	lg := log.New(false, config.LogLevel, *logDir)
	defer lg.CatchAndReportCrash()

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Cleanup()

	scenario := sim.DefaultScenario()
	if config.Scenario != "" {
		if scenario, err = sim.LoadScenario(config.Scenario); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	s, err := sim.New(sim.Config{
		Scenario: scenario,
		Metrics:  m,
		TickRate: config.TickRate,
		SimRate:  config.SimRate,
		Slots:    config.Slots,
		Lg:       lg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *resetSlots {
		lg.Infof("Discarding persisted snapshot slots")
	} else {
		s.LoadPersistedSnapshots()
	}
	if err := util.CacheCullObjects(64 * 1024 * 1024); err != nil {
		lg.Warnf("cache cull: %v", err)
	}

	srv := server.Launch(s, m, config.HTTPPort, lg)
	lg.Infof("HTTP server on port %d", srv.Port())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runTicker(ctx, s) })
	g.Go(func() error { return runInput(ctx, s, config, lg) })
	g.Go(func() error { return runEventEcho(ctx, s, config) })

	err = g.Wait()
	s.Shutdown()
	if serr := config.Save(lg); serr != nil {
		lg.Errorf("config save: %v", serr)
	}
	if err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
}

// runTicker drives the sim from the wall clock. Update quantizes the
// elapsed time into fixed ticks itself, so the ticker just needs to
// fire comfortably more often than the tick rate.
func runTicker(ctx context.Context, s *sim.Sim) error {
	t := time.NewTicker(8 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Update()
		}
	}
}
