// sim/scenario.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/math"
	"github.com/aloft-sim/aloft/terrain"
	"github.com/aloft-sim/aloft/wx"
	"github.com/iancoleman/orderedmap"
)

// CurrentScenarioVersion is bumped when the scenario schema changes
// incompatibly; older files are rejected rather than misread.
const CurrentScenarioVersion = 1

// Scenario is everything needed to start a flight: where the aircraft
// spawns, what the air is doing, what the ground looks like, and which
// aircraft can be flown. Files are authored in degrees and converted
// on load; everything in memory is radians.
type Scenario struct {
	Version int    `json:"version"`
	Name    string `json:"name"`

	Spawn   Spawn       `json:"spawn"`
	Wind    wx.Wind     `json:"wind"`
	Terrain TerrainSpec `json:"terrain"`

	// Profiles preserves the authored order for cycling; Initial names
	// the one selected at start.
	Profiles []flight.Profile `json:"-"`
	Initial  string           `json:"profile,omitempty"`
}

type Spawn struct {
	LongitudeDeg float32 `json:"longitude"`
	LatitudeDeg  float32 `json:"latitude"`
	AltitudeM    float32 `json:"altitude"`
	// CompassDeg is the initial course as a compass direction, degrees.
	CompassDeg float32 `json:"heading"`
	SpeedMS    float32 `json:"speed"`
	OnGround   bool    `json:"on_ground"`
}

type TerrainSpec struct {
	// Kind selects the provider: "flat", "synthetic", or "none".
	Kind   string  `json:"kind"`
	Height float32 `json:"height,omitempty"` // flat only, meters MSL
	Scale  float32 `json:"scale,omitempty"`  // synthetic only
}

// NewProvider builds the terrain provider ts describes. Kind "none"
// (or empty) returns nil; the sampler treats that as a world with no
// terrain service and holds its fallback height.
func (ts TerrainSpec) NewProvider() (terrain.Provider, error) {
	switch ts.Kind {
	case "", "none":
		return nil, nil
	case "flat":
		return terrain.Flat{Height: ts.Height}, nil
	case "synthetic":
		return terrain.Synthetic{Scale: ts.Scale}, nil
	default:
		return nil, fmt.Errorf("%q: %w", ts.Kind, ErrUnknownTerrainKind)
	}
}

// State returns the spawn as an initial aircraft state. For grounded
// spawns the altitude is provisional; the sim settles it onto the
// sampled terrain.
func (s *Scenario) State(p flight.Profile) flight.State {
	alt := s.Spawn.AltitudeM
	if s.Spawn.OnGround {
		alt = s.Spawn.AltitudeM + p.GearClearance
	}
	return flight.State{
		Position: math.Point2LL{
			math.Radians(s.Spawn.LongitudeDeg),
			math.Radians(s.Spawn.LatitudeDeg),
		},
		Altitude: alt,
		Heading:  math.CompassToHeading(s.Spawn.CompassDeg),
		Speed:    max(0, s.Spawn.SpeedMS),
		OnGround: s.Spawn.OnGround,
	}
}

// InitialProfile returns the index of the selected profile.
func (s *Scenario) InitialProfile() int {
	for i, p := range s.Profiles {
		if p.Name == s.Initial {
			return i
		}
	}
	return 0
}

func (s *Scenario) Validate() error {
	if s.Version != CurrentScenarioVersion {
		return fmt.Errorf("version %d: %w", s.Version, ErrScenarioVersionSkew)
	}
	if s.Name == "" {
		return fmt.Errorf("missing name: %w", ErrInvalidScenario)
	}
	if math.Abs(s.Spawn.LatitudeDeg) > 89 || math.Abs(s.Spawn.LongitudeDeg) > 180 {
		return fmt.Errorf("spawn %v,%v: %w", s.Spawn.LongitudeDeg, s.Spawn.LatitudeDeg,
			ErrInvalidScenario)
	}
	if err := s.Wind.Validate(); err != nil {
		return err
	}
	if _, err := s.Terrain.NewProvider(); err != nil {
		return err
	}
	if len(s.Profiles) == 0 {
		return fmt.Errorf("no profiles: %w", ErrInvalidScenario)
	}
	for i := range s.Profiles {
		if err := s.Profiles[i].Validate(); err != nil {
			return err
		}
	}
	if s.Initial != "" && !slices.ContainsFunc(s.Profiles,
		func(p flight.Profile) bool { return p.Name == s.Initial }) {
		return fmt.Errorf("initial profile %q: %w", s.Initial, flight.ErrUnknownProfile)
	}
	return nil
}

// LoadScenario reads and validates a scenario file. The profiles
// object keeps its authored order, which is the in-cockpit cycling
// order.
func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func ParseScenario(b []byte) (*Scenario, error) {
	var raw struct {
		Version  int             `json:"version"`
		Name     string          `json:"name"`
		Spawn    Spawn           `json:"spawn"`
		Wind     wx.Wind         `json:"wind"`
		Terrain  TerrainSpec     `json:"terrain"`
		Profiles json.RawMessage `json:"profiles"`
		Initial  string          `json:"profile"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	sc := &Scenario{
		Version: raw.Version,
		Name:    raw.Name,
		Spawn:   raw.Spawn,
		Wind:    raw.Wind,
		Terrain: raw.Terrain,
		Initial: raw.Initial,
	}

	if len(raw.Profiles) > 0 {
		// Decode twice: an ordered map for the authored order, a typed
		// map for the values.
		om := orderedmap.New()
		if err := json.Unmarshal(raw.Profiles, om); err != nil {
			return nil, err
		}
		byName := make(map[string]flight.Profile)
		if err := json.Unmarshal(raw.Profiles, &byName); err != nil {
			return nil, err
		}
		for _, name := range om.Keys() {
			p := byName[name]
			p.Name = name
			sc.Profiles = append(sc.Profiles, p)
		}
	} else {
		sc.Profiles = flight.BuiltinProfiles()
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// DefaultScenario is flown when no file is given: parked on a flat
// field near Seattle with a light westerly.
func DefaultScenario() *Scenario {
	return &Scenario{
		Version: CurrentScenarioVersion,
		Name:    "default",
		Spawn: Spawn{
			LongitudeDeg: -122.30,
			LatitudeDeg:  47.60,
			CompassDeg:   90,
			OnGround:     true,
		},
		Wind:     wx.Wind{DirectionDeg: 270, SpeedMS: 3},
		Terrain:  TerrainSpec{Kind: "flat"},
		Profiles: flight.BuiltinProfiles(),
	}
}
