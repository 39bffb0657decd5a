// sim/errors.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "errors"

var (
	ErrInvalidScenario     = errors.New("invalid scenario")
	ErrUnknownTerrainKind  = errors.New("unknown terrain kind")
	ErrInvalidSnapshotSlot = errors.New("invalid snapshot slot")
	ErrEmptySnapshotSlot   = errors.New("empty snapshot slot")
	ErrInvalidSnapshotFile = errors.New("invalid snapshot file")
	ErrInvalidTrackFile    = errors.New("invalid track file")
	ErrUnknownCameraMode   = errors.New("unknown camera mode")
	ErrInvalidSimRate      = errors.New("invalid simulation rate")
	ErrScenarioVersionSkew = errors.New("scenario version mismatch")
)
