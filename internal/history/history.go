/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history lists the tracks that have been played in this session.
package history

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/meta"
)

// SessionWindow is how far back a track's play still counts as part of the
// current session.
const SessionWindow = 24 * time.Hour

// List reads the session history out of the metadata of the music directory.
type List struct {
	meta   *meta.Store
	logger zerolog.Logger
}

// New creates a session history view over the metadata store.
func New(metadata *meta.Store, logger zerolog.Logger) *List {
	return &List{
		meta:   metadata,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Recent returns the tracks in the directory that were played within the
// session window, most recently played first.
func (l *List) Recent(directory string, now time.Time) []string {
	listing, err := os.ReadDir(directory)
	if err != nil {
		l.logger.Warn().Err(err).Str("directory", directory).Msg("unable to list music directory")
		return nil
	}

	cutoff := float64(now.Add(-SessionWindow).Unix())
	type played struct {
		path string
		at   float64
	}
	var recent []played
	for _, file := range listing {
		path := filepath.Join(directory, file.Name())
		if !meta.IsMusicFile(path) {
			continue
		}
		lastPlayed := l.meta.Entry(path).LastPlayed
		if lastPlayed >= cutoff {
			recent = append(recent, played{path: path, at: lastPlayed})
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		if recent[i].at != recent[j].at {
			return recent[i].at > recent[j].at
		}
		return recent[i].path < recent[j].path
	})

	paths := make([]string, len(recent))
	for i, entry := range recent {
		paths[i] = entry.path
	}
	return paths
}
