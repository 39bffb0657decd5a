// cmd/aloft/config.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"encoding/json"
	"io"
	"os"
	"path"

	"github.com/aloft-sim/aloft/log"
	"github.com/aloft-sim/aloft/server"
	"github.com/aloft-sim/aloft/sim"
	"github.com/aloft-sim/aloft/util"
)

const currentConfigVersion = 1

type GlobalConfig struct {
	Version  int
	Scenario string
	TickRate int
	SimRate  float32
	HTTPPort int
	LogLevel string
	Slots    int

	// MuteEventEcho is toggled from the command loop while the echo
	// goroutine reads it, hence atomic.
	MuteEventEcho util.AtomicBool
}

func defaultConfig() *GlobalConfig {
	return &GlobalConfig{
		Version:  currentConfigVersion,
		TickRate: sim.DefaultTickRate,
		SimRate:  1,
		HTTPPort: server.DefaultHTTPPort,
		LogLevel: "info",
		Slots:    sim.DefaultSlots,
	}
}

func configFilePath(lg *log.Logger) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		lg.Errorf("Unable to find user config dir: %v", err)
		dir = "."
	}

	dir = path.Join(dir, "Aloft")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		lg.Errorf("%s: unable to make directory for config file: %v", dir, err)
	}

	return path.Join(dir, "config.json")
}

func LoadOrMakeDefaultConfig(lg *log.Logger) *GlobalConfig {
	fn := configFilePath(lg)

	config := defaultConfig()
	if b, err := os.ReadFile(fn); err == nil {
		if err := json.Unmarshal(b, config); err != nil {
			lg.Errorf("%s: configuration file is corrupt: %v", fn, err)
			config = defaultConfig()
		} else if config.Version < currentConfigVersion {
			// The schema changed; better to start over than to guess at
			// what stale fields mean now.
			lg.Warnf("%s: config version %d is stale, resetting", fn, config.Version)
			config = defaultConfig()
		}
	}

	if config.TickRate <= 0 {
		config.TickRate = sim.DefaultTickRate
	}
	if config.SimRate == 0 {
		config.SimRate = 1
	}
	if config.Slots <= 0 {
		config.Slots = sim.DefaultSlots
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	config.Version = currentConfigVersion

	return config
}

func (gc *GlobalConfig) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(gc)
}

func (gc *GlobalConfig) Save(lg *log.Logger) error {
	fn := configFilePath(lg)
	lg.Infof("Saving config to: %s", fn)

	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	return gc.Encode(f)
}
