/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package prefs stores user preferences and makes sure they get persisted.
package prefs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// saveDelay coalesces rapid preference changes into a single write.
const saveDelay = 250 * time.Millisecond

// Listener is called with the key of every preference change.
type Listener func(key string)

// Store is a typed key/value preference store with registered defaults.
// Changes are persisted to disk after a short debounce.
type Store struct {
	mu        sync.Mutex
	v         *viper.Viper
	path      string
	defaults  map[string]any
	saveTimer *time.Timer
	onChange  []Listener
	logger    zerolog.Logger
}

// New loads the preference file at path, creating it when absent.
func New(path string, logger zerolog.Logger) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("preference file didn't exist yet, creating it")
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			return nil, fmt.Errorf("create preference file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	return &Store{
		v:        v,
		path:     path,
		defaults: make(map[string]any),
		logger:   logger.With().Str("component", "prefs").Logger(),
	}, nil
}

// Add registers a preference key with its default value. Registering the same
// key twice is a programming error.
func (s *Store) Add(key string, def any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defaults[key]; ok {
		s.logger.Error().Str("key", key).Msg("preference registered twice")
		return
	}
	s.defaults[key] = def
	s.v.SetDefault(key, def)
}

// Has reports whether the key has been registered or stored.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defaults[key]; ok {
		return true
	}
	return s.v.IsSet(key)
}

// Set stores a new value and schedules a debounced save.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.v.Set(key, value)
	if s.saveTimer == nil {
		s.saveTimer = time.AfterFunc(saveDelay, s.save)
	} else {
		s.saveTimer.Reset(saveDelay)
	}
	listeners := append([]Listener(nil), s.onChange...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
}

// OnChange registers a callback invoked with the key of every change.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Save writes the preferences to disk immediately. It is also called from the
// debounce timer; calling it at shutdown catches changes the timer missed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.WriteConfig()
}

func (s *Store) save() {
	if err := s.Save(); err != nil {
		// Retried on the next change's debounce cycle.
		s.logger.Error().Err(err).Msg("saving preferences failed")
	}
}

func (s *Store) GetFloat(key string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetFloat64(key)
}

func (s *Store) GetInt(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetInt(key)
}

func (s *Store) GetBool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetBool(key)
}

func (s *Store) GetString(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key)
}

func (s *Store) GetStringSlice(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetStringSlice(key)
}
