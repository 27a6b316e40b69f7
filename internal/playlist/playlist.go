/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist keeps the ordered list of tracks that are about to be
// played. There is only ever one playlist, persisted between restarts
// through the preference store.
package playlist

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/events"
	"github.com/Ghostkeeper/LynDJ/internal/prefs"
)

// PauseSentinel marks a position in the playlist where playback must pause
// instead of continuing with the next track.
const PauseSentinel = ":pause:"

const playlistKey = "playlist/playlist"

// Store is the ordered playlist of track paths and sentinel markers.
type Store struct {
	mu     sync.Mutex
	prefs  *prefs.Store
	bus    *events.Bus
	logger zerolog.Logger
}

// New creates the playlist backed by the preference store.
func New(preferences *prefs.Store, bus *events.Bus, logger zerolog.Logger) *Store {
	return &Store{
		prefs:  preferences,
		bus:    bus,
		logger: logger.With().Str("component", "playlist").Logger(),
	}
}

// Tracks returns a copy of the playlist in play order.
func (s *Store) Tracks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prefs.GetStringSlice(playlistKey)...)
}

// Len returns the number of entries in the playlist.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prefs.GetStringSlice(playlistKey))
}

// Head returns the next entry to play, if any.
func (s *Store) Head() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.prefs.GetStringSlice(playlistKey)
	if len(list) == 0 {
		return "", false
	}
	return list[0], true
}

// Contains reports whether the path is queued.
func (s *Store) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.prefs.GetStringSlice(playlistKey) {
		if entry == path {
			return true
		}
	}
	return false
}

// Add appends a track to the end of the playlist. A track that is already
// queued is not added again.
func (s *Store) Add(path string) {
	s.mu.Lock()
	list := s.prefs.GetStringSlice(playlistKey)
	if path != PauseSentinel {
		for _, entry := range list {
			if entry == path {
				s.mu.Unlock()
				s.logger.Debug().Str("path", path).Msg("track is already in the playlist")
				return
			}
		}
	}
	s.logger.Info().Str("path", path).Msg("adding track to the playlist")
	s.prefs.Set(playlistKey, append(list, path))
	s.mu.Unlock()
	s.bus.Publish(events.EventPlaylistChanged, events.Payload{"path": path})
}

// Remove deletes the entry at the given position.
func (s *Store) Remove(index int) {
	s.mu.Lock()
	list := s.prefs.GetStringSlice(playlistKey)
	if index < 0 || index >= len(list) {
		s.mu.Unlock()
		s.logger.Error().Int("index", index).Msg("removing playlist entry out of range")
		return
	}
	removed := list[index]
	s.logger.Info().Str("path", removed).Msg("removing track from the playlist")
	s.prefs.Set(playlistKey, append(append([]string(nil), list[:index]...), list[index+1:]...))
	s.mu.Unlock()
	s.bus.Publish(events.EventPlaylistChanged, events.Payload{"path": removed})
}

// PopHead removes the first entry, typically because it finished playing.
func (s *Store) PopHead() {
	s.Remove(0)
}

// Reorder moves an already-queued track to a new position. The playlist
// length never changes; an unknown path is ignored.
func (s *Store) Reorder(path string, newIndex int) {
	s.mu.Lock()
	list := append([]string(nil), s.prefs.GetStringSlice(playlistKey)...)
	oldIndex := -1
	for i, entry := range list {
		if entry == path {
			oldIndex = i
			break
		}
	}
	if oldIndex < 0 {
		s.mu.Unlock()
		return
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(list) {
		newIndex = len(list) - 1
	}
	s.logger.Info().Str("path", path).Int("index", newIndex).Msg("moving track in the playlist")
	list = append(list[:oldIndex], list[oldIndex+1:]...)
	list = append(list[:newIndex], append([]string{path}, list[newIndex:]...)...)
	s.prefs.Set(playlistKey, list)
	s.mu.Unlock()
	s.bus.Publish(events.EventPlaylistChanged, events.Payload{"path": path})
}
