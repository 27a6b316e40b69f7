/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package autodj

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Ghostkeeper/LynDJ/internal/history"
	"github.com/Ghostkeeper/LynDJ/internal/meta"
	"github.com/Ghostkeeper/LynDJ/internal/playlist"
	"github.com/Ghostkeeper/LynDJ/internal/prefs"
)

// BuildInput gathers everything a selection run needs from the live stores:
// the candidate files in the music directory, their metadata, the playlist,
// the session history and the configured weights.
func BuildInput(preferences *prefs.Store, metadata *meta.Store, queue *playlist.Store, sessions *history.List, now time.Time) Input {
	directory := preferences.GetString("directory/browse_path")

	var candidates []string
	tracks := make(map[string]Track)
	if listing, err := os.ReadDir(directory); err == nil {
		for _, file := range listing {
			path := filepath.Join(directory, file.Name())
			if !meta.IsMusicFile(path) {
				continue
			}
			candidates = append(candidates, path)
			entry := metadata.Entry(path)
			tracks[path] = Track{
				Age:        entry.Age,
				Style:      entry.Style,
				Energy:     entry.Energy,
				BPM:        entry.BPM,
				LastPlayed: entry.LastPlayed,
				Exclude:    entry.AutodjExclude,
			}
		}
	}

	queued := queue.Tracks()
	played := sessions.Recent(directory, now)
	for _, path := range append(append([]string(nil), queued...), played...) {
		if _, known := tracks[path]; known || strings.HasPrefix(path, ":") {
			continue
		}
		entry := metadata.Entry(path)
		tracks[path] = Track{
			Age:        entry.Age,
			Style:      entry.Style,
			Energy:     entry.Energy,
			BPM:        entry.BPM,
			LastPlayed: entry.LastPlayed,
			Exclude:    entry.AutodjExclude,
		}
	}

	return Input{
		Candidates: candidates,
		Playlist:   queued,
		History:    played,
		Tracks:     tracks,
		Config: Config{
			AgeVariation:        preferences.GetFloat("autodj/age_variation"),
			StyleVariation:      preferences.GetFloat("autodj/style_variation"),
			EnergyVariation:     preferences.GetFloat("autodj/energy_variation"),
			Cadence:             parseCadence(preferences.GetString("autodj/bpm_cadence")),
			BPMPrecision:        preferences.GetFloat("autodj/bpm_precision"),
			Energy:              preferences.GetFloat("autodj/energy"),
			EnergySliderPower:   preferences.GetFloat("autodj/energy_slider_power"),
			LastPlayedInfluence: preferences.GetFloat("autodj/last_played_influence"),
			MediumBPM:           preferences.GetFloat("playlist/medium_bpm"),
			Now:                 float64(now.Unix()),
		},
	}
}

// parseCadence reads the comma-separated tempo cadence. Entries that are not
// numbers are skipped.
func parseCadence(serialised string) []int {
	var cadence []int
	for _, part := range strings.Split(strings.Trim(serialised, ","), ",") {
		bpm, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		cadence = append(cadence, bpm)
	}
	return cadence
}
