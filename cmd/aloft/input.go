// cmd/aloft/input.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aloft-sim/aloft/camera"
	"github.com/aloft-sim/aloft/log"
	"github.com/aloft-sim/aloft/math"
	"github.com/aloft-sim/aloft/sim"
	"github.com/aloft-sim/aloft/util"
	"github.com/aloft-sim/aloft/wx"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  state                    show the aircraft state
  pause                    toggle pause
  rate R                   set the simulation rate multiplier
  throttle N               set the throttle slider, 0-100
  ap                       toggle the autopilot
  ap alt N                 hold altitude N meters
  ap hdg N                 hold compass heading N degrees
  ap vnav on|off           vertical navigation toward the altitude target
  ap off                   disengage
  cam [orbit|chase|first]  cycle or set the camera mode
  profile [NAME]           cycle or select the aircraft profile
  wind DIR SPEED [GUST]    set the wind, compass degrees and m/s
  save N / restore N       snapshot slots
  export track FILE        write the recorded flight track
  export snapshots FILE    write the snapshot slots
  echo                     toggle event echoing
  quit`

// runInput turns stdin lines into sim commands until EOF, "quit", or
// cancellation.
func runInput(ctx context.Context, s *sim.Sim, config *GlobalConfig, lg *log.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Println(`Type "help" for commands.`)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := execCommand(s, config, strings.Fields(line)); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				fmt.Printf("error: %v\n", err)
				lg.Warnf("%q: %v", line, err)
			}
		}
	}
}

func execCommand(s *sim.Sim, config *GlobalConfig, f []string) error {
	if len(f) == 0 {
		return nil
	}

	switch f[0] {
	case "help":
		fmt.Println(helpText)

	case "state", "st":
		printStatus(s.Status())

	case "pause", "p":
		fmt.Println(util.Select(s.TogglePause(), "paused", "running"))

	case "rate":
		if len(f) != 2 {
			return fmt.Errorf("usage: rate R")
		}
		r, err := parseFloat(f[1])
		if err != nil {
			return err
		}
		return s.SetSimRate(r)

	case "throttle", "thr":
		if len(f) != 2 {
			return fmt.Errorf("usage: throttle N")
		}
		v, err := parseFloat(f[1])
		if err != nil {
			return err
		}
		s.SetThrottle(v)

	case "ap":
		return execAutopilotCommand(s, f[1:])

	case "cam":
		if len(f) == 1 {
			fmt.Println("camera:", s.CycleCamera())
			return nil
		}
		m, err := parseCameraMode(f[1])
		if err != nil {
			return err
		}
		return s.SetCameraMode(m)

	case "profile":
		if len(f) == 1 {
			fmt.Println("profile:", s.CycleProfile())
			return nil
		}
		return s.SelectProfile(f[1])

	case "wind":
		if len(f) != 3 && len(f) != 4 {
			return fmt.Errorf("usage: wind DIR SPEED [GUST]")
		}
		var w wx.Wind
		var err error
		if w.DirectionDeg, err = parseFloat(f[1]); err != nil {
			return err
		}
		if w.SpeedMS, err = parseFloat(f[2]); err != nil {
			return err
		}
		if len(f) == 4 {
			if w.GustMS, err = parseFloat(f[3]); err != nil {
				return err
			}
		}
		return s.SetWind(w)

	case "save", "restore":
		if len(f) != 2 {
			return fmt.Errorf("usage: %s N", f[0])
		}
		slot, err := strconv.Atoi(f[1])
		if err != nil {
			return err
		}
		if f[0] == "save" {
			return s.SaveSnapshot(slot)
		}
		return s.RestoreSnapshot(slot)

	case "export":
		if len(f) != 3 || (f[1] != "track" && f[1] != "snapshots") {
			return fmt.Errorf("usage: export track|snapshots FILE")
		}
		out, err := os.Create(f[2])
		if err != nil {
			return err
		}
		defer out.Close()
		if f[1] == "track" {
			err = s.ExportTrack(out)
		} else {
			err = s.ExportSnapshots(out)
		}
		if err == nil {
			fmt.Println("wrote", f[2])
		}
		return err

	case "echo":
		mute := !config.MuteEventEcho.Load()
		config.MuteEventEcho.Store(mute)
		fmt.Println(util.Select(mute, "events muted", "events echoed"))

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("%s: unknown command", f[0])
	}
	return nil
}

func execAutopilotCommand(s *sim.Sim, f []string) error {
	if len(f) == 0 {
		fmt.Println(util.Select(s.ToggleAutopilot(), "autopilot engaged", "autopilot off"))
		return nil
	}

	switch f[0] {
	case "off":
		s.DisengageAutopilot()

	case "alt":
		if len(f) != 2 {
			return fmt.Errorf("usage: ap alt N")
		}
		alt, err := parseFloat(f[1])
		if err != nil {
			return err
		}
		s.SetAutopilotAltitude(alt)

	case "hdg":
		if len(f) != 2 {
			return fmt.Errorf("usage: ap hdg N")
		}
		deg, err := parseFloat(f[1])
		if err != nil {
			return err
		}
		s.SetAutopilotHeading(math.CompassToHeading(deg))

	case "vnav":
		if len(f) != 2 || (f[1] != "on" && f[1] != "off") {
			return fmt.Errorf("usage: ap vnav on|off")
		}
		s.SetVerticalNav(f[1] == "on")

	default:
		return fmt.Errorf("ap %s: unknown command", f[0])
	}
	return nil
}

func parseFloat(str string) (float32, error) {
	v, err := strconv.ParseFloat(str, 32)
	return float32(v), err
}

func parseCameraMode(str string) (camera.Mode, error) {
	switch str {
	case "orbit":
		return camera.Orbit, nil
	case "chase":
		return camera.Chase, nil
	case "first":
		return camera.FirstPerson, nil
	default:
		return 0, fmt.Errorf("%s: unknown camera mode", str)
	}
}

func printStatus(st sim.Status) {
	fmt.Printf("%s [%s] %s\n", st.Scenario, st.Profile,
		util.Select(st.Paused, "paused", "running"))
	fmt.Printf("  alt %.0f m  hdg %03.0f  spd %.0f m/s  climb %+.1f m/s  %s\n",
		st.State.Altitude, st.CompassDeg, st.State.Speed, st.VerticalSpeedTrend,
		util.Select(st.State.OnGround, "on ground", "airborne"))
	fmt.Printf("  camera %s  rate %gx  sim time %.0f s  ticks %d\n",
		st.CameraMode, st.SimRate, st.SimTime, st.Ticks)
	if on, ok := st.Autopilot["enabled"].(bool); ok && on {
		fmt.Printf("  autopilot: alt %v m  hdg %.0f  vnav %v\n",
			st.Autopilot["target_altitude"], st.Autopilot["target_compass"],
			st.Autopilot["vertical_nav"])
	}
	fmt.Printf("  terrain %.1f m (%d queries, %d failed)\n",
		st.TerrainHeight, st.TerrainQueries, st.TerrainFailures)
	for i, filled := range st.Slots {
		if filled {
			fmt.Printf("  slot %d saved\n", i)
		}
	}
}

// runEventEcho prints simulation events to the prompt as they happen.
// Muted events are still drained so the stream doesn't back up.
func runEventEcho(ctx context.Context, s *sim.Sim, config *GlobalConfig) error {
	sub := s.Subscribe()
	defer sub.Unsubscribe()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			for _, e := range sub.Get() {
				if !config.MuteEventEcho.Load() {
					fmt.Printf("* %s\n", e.String())
				}
			}
		}
	}
}
