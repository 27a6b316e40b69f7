/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package waypoints implements piecewise-linear control envelopes and their
// serialisation format.
package waypoints

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Waypoint is a control point on a piecewise-linear envelope: at Time seconds
// the envelope must reach Level (between 0 and 1).
type Waypoint struct {
	Time  float64
	Level float64
}

// Timeline is an ordered list of waypoints, strictly ascending by timestamp.
type Timeline []Waypoint

// DefaultLevel is the envelope level when a track has no waypoints at all.
const DefaultLevel = 0.5

// Parse parses the serialised waypoint format.
//
// Waypoints are separated by pipes and ordered by timestamp. Each waypoint is
// two floats separated by a semicolon: the timestamp in seconds and the level
// between 0 and 1. For example: "64.224167;0.5|66.224167;0.8|77.245023;0.8".
// An empty string is an empty timeline. Malformed entries are skipped with a
// warning.
func Parse(serialised string) Timeline {
	if serialised == "" {
		return nil
	}

	var result Timeline
	for _, entry := range strings.Split(serialised, "|") {
		parts := strings.Split(entry, ";")
		if len(parts) != 2 {
			log.Warn().Str("waypoint", entry).Msg("incorrectly formatted waypoint")
			continue
		}
		timestamp, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			log.Warn().Str("waypoint", entry).Msg("incorrectly formatted float in waypoint")
			continue
		}
		level, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			log.Warn().Str("waypoint", entry).Msg("incorrectly formatted float in waypoint")
			continue
		}
		result = append(result, Waypoint{Time: timestamp, Level: level})
	}
	return result
}

// Serialize renders the timeline in the format understood by Parse.
func Serialize(timeline Timeline) string {
	parts := make([]string, 0, len(timeline))
	for _, wp := range timeline {
		parts = append(parts,
			strconv.FormatFloat(wp.Time, 'f', -1, 64)+";"+strconv.FormatFloat(wp.Level, 'f', -1, 64))
	}
	return strings.Join(parts, "|")
}

// At samples the envelope at time t. Between two waypoints the level is
// linearly interpolated. Before the first waypoint and after the last the
// envelope holds flat at the nearest waypoint's level. An empty timeline
// holds DefaultLevel throughout.
func (tl Timeline) At(t float64) float64 {
	if len(tl) == 0 {
		return DefaultLevel
	}
	if t <= tl[0].Time {
		return tl[0].Level
	}
	last := tl[len(tl)-1]
	if t >= last.Time {
		return last.Level
	}
	for i := 1; i < len(tl); i++ {
		if t >= tl[i].Time {
			continue
		}
		start, end := tl[i-1], tl[i]
		if start.Level == end.Level {
			return start.Level
		}
		ratio := (t - start.Time) / (end.Time - start.Time)
		return start.Level + ratio*(end.Level-start.Level)
	}
	return last.Level
}
