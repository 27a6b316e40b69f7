/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package autodj suggests the next track to play based on recently played
// tracks, a configurable tempo cadence and audience energy settings.
package autodj

import (
	"math"
	"sort"
	"strings"
)

// Track is the metadata the selector needs about one file.
type Track struct {
	Age        string
	Style      string
	Energy     string
	BPM        float64
	LastPlayed float64
	Exclude    bool
}

// Config holds the tunable selection weights.
type Config struct {
	AgeVariation        float64
	StyleVariation      float64
	EnergyVariation     float64
	Cadence             []int
	BPMPrecision        float64
	Energy              float64
	EnergySliderPower   float64
	LastPlayedInfluence float64
	MediumBPM           float64
	Now                 float64
}

// Input is everything one selection run reads. Suggest never mutates it, so
// it can be called repeatedly: once to fill an empty playlist and again to
// preview the following suggestion.
type Input struct {
	// Candidates are the playable files in the music directory.
	Candidates []string
	// Playlist is the current queue in play order.
	Playlist []string
	// History holds recently played tracks, most recent first.
	History []string
	// Tracks maps every known path to its metadata.
	Tracks map[string]Track

	Config Config
}

// energyToNumeric converts the energy level in track metadata to a value
// between 0 and 100.
var energyToNumeric = map[string]float64{
	"low":    0,
	"medium": 50,
	"high":   100,
}

// Suggest returns the path of the track the automatic DJ would play next, or
// an empty string when no candidate is available.
//
// Candidates are penalised for age, style and energy values that already
// occur often in recent history, for distance from the target tempo of the
// configured cadence, and for mismatching the configured audience energy;
// they earn a bonus for not having been played in a long time. Ties are
// broken deterministically by keeping the first maximum in sorted path
// order.
func Suggest(in Input) string {
	queued := make(map[string]bool, len(in.Playlist))
	for _, path := range in.Playlist {
		queued[path] = true
	}
	var candidates []string
	for _, path := range in.Candidates {
		track, known := in.Tracks[path]
		if !known || track.Exclude || track.BPM < 0 || queued[path] {
			continue
		}
		candidates = append(candidates, path)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)

	history := combinedHistory(in)
	ageHistogram := histogram(history, in.Tracks, func(t Track) string { return t.Age })
	styleHistogram := histogram(history, in.Tracks, func(t Track) string { return t.Style })
	energyHistogram := histogram(history, in.Tracks, func(t Track) string { return t.Energy })

	bpmTarget := cadenceTarget(history, in)
	bpmTarget += (in.Config.Energy - 50) * in.Config.EnergySliderPower

	bestRating := math.Inf(-1)
	bestTrack := ""
	for _, path := range candidates {
		track := in.Tracks[path]
		rating := 0.0

		numericEnergy, known := energyToNumeric[strings.ToLower(track.Energy)]
		if !known {
			numericEnergy = 50
		}

		rating -= in.Config.AgeVariation * ageHistogram[track.Age]
		rating -= in.Config.StyleVariation * styleHistogram[track.Style]
		rating -= in.Config.EnergyVariation * energyHistogram[track.Energy]
		rating -= 0.2 * in.Config.EnergySliderPower * math.Abs(numericEnergy-in.Config.Energy)

		if in.Config.LastPlayedInfluence > 0 {
			longAgo := in.Config.Now - track.LastPlayed
			longAgo /= 3600 * 24 * 7 * in.Config.LastPlayedInfluence
			rating += longAgo
		}

		rating -= math.Abs(track.BPM-bpmTarget) * in.Config.BPMPrecision

		if rating > bestRating {
			bestTrack = path
			bestRating = rating
		}
	}
	return bestTrack
}

// combinedHistory lists what was and will be heard before the suggestion
// slot: the playlist reversed (so the track playing soonest is most recent)
// followed by the session history, most recent first. Sentinel markers are
// left out.
func combinedHistory(in Input) []string {
	result := make([]string, 0, len(in.Playlist)+len(in.History))
	for i := len(in.Playlist) - 1; i >= 0; i-- {
		result = append(result, in.Playlist[i])
	}
	result = append(result, in.History...)
	filtered := result[:0]
	for _, path := range result {
		if !strings.HasPrefix(path, ":") {
			filtered = append(filtered, path)
		}
	}
	return filtered
}

// histogram builds a rank-decayed frequency map of one categorical field
// over the history: the most recent track counts fully, the one before it
// half, and so on. The unknown bucket gets the mean of the known buckets so
// tracks without the field are neither favoured nor penalised.
func histogram(history []string, tracks map[string]Track, field func(Track) string) map[string]float64 {
	result := make(map[string]float64)
	for i, path := range history {
		value := field(tracks[path])
		if value == "" {
			continue
		}
		result[value] += 1.0 / float64(i+1)
	}
	mean := 0.0
	if len(result) > 0 {
		total := 0.0
		for _, weight := range result {
			total += weight
		}
		mean = total / float64(len(result))
	}
	result[""] = mean
	return result
}

// cadenceTarget finds where in the configured tempo cadence the session
// currently is, and returns the tempo the cadence asks for next.
//
// The trailing history slice of the cadence's length (in chronological
// order, unknown tempos replaced by the medium tempo) is compared against
// every rotation of the cadence; the rotation with the smallest total
// absolute difference wins, first minimal rotation on ties. The cadence
// position one past the aligned window is the target.
func cadenceTarget(history []string, in Input) float64 {
	cadence := in.Config.Cadence
	if len(cadence) == 0 {
		return in.Config.MediumBPM
	}

	recent := history
	if len(recent) > len(cadence) {
		recent = recent[:len(cadence)]
	}
	bpmToMatch := make([]float64, len(recent))
	for i, path := range recent {
		// recent is most-recent-first; the cadence runs chronologically.
		bpm := in.Tracks[path].BPM
		if bpm < 0 {
			bpm = in.Config.MediumBPM
		}
		bpmToMatch[len(recent)-1-i] = bpm
	}

	bestRotate := 0
	bestDifference := math.Inf(1)
	for rotate := 0; rotate < len(cadence); rotate++ {
		difference := 0.0
		for i, bpm := range bpmToMatch {
			difference += math.Abs(float64(cadence[(rotate+i)%len(cadence)]) - bpm)
		}
		if difference < bestDifference {
			bestRotate = rotate
			bestDifference = difference
		}
	}
	return float64(cadence[(len(bpmToMatch)+bestRotate)%len(cadence)])
}
