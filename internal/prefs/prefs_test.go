/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package prefs

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "preferences.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("creating preference store: %v", err)
	}
	return s
}

func TestDefaultsAndOverrides(t *testing.T) {
	s := newStore(t)
	s.Add("player/fadeout", 2.0)
	if got := s.GetFloat("player/fadeout"); got != 2.0 {
		t.Fatalf("default = %v, expected 2.0", got)
	}
	s.Set("player/fadeout", 4.5)
	if got := s.GetFloat("player/fadeout"); got != 4.5 {
		t.Fatalf("after Set = %v, expected 4.5", got)
	}
	if !s.Has("player/fadeout") {
		t.Fatal("registered key not reported by Has")
	}
	if s.Has("player/unknown") {
		t.Fatal("unregistered key reported by Has")
	}
}

func TestSetNotifiesAllListeners(t *testing.T) {
	s := newStore(t)
	s.Add("player/mono", false)
	var first, second []string
	s.OnChange(func(key string) { first = append(first, key) })
	s.OnChange(func(key string) { second = append(second, key) })

	s.Set("player/mono", true)

	if len(first) != 1 || first[0] != "player/mono" {
		t.Fatalf("first listener got %v, expected the changed key", first)
	}
	if len(second) != 1 || second[0] != "player/mono" {
		t.Fatalf("second listener got %v, expected the changed key", second)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.json")
	s, err := New(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("creating preference store: %v", err)
	}
	s.Add("directory/browse_path", "")
	s.Set("directory/browse_path", "/music")
	if err := s.Save(); err != nil {
		t.Fatalf("saving preferences: %v", err)
	}

	reopened, err := New(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopening preference store: %v", err)
	}
	if got := reopened.GetString("directory/browse_path"); got != "/music" {
		t.Fatalf("reloaded value = %q, expected /music", got)
	}
}

func TestDuplicateRegistrationKeepsFirstDefault(t *testing.T) {
	s := newStore(t)
	s.Add("player/silence", 2.0)
	s.Add("player/silence", 9.0)
	if got := s.GetFloat("player/silence"); got != 2.0 {
		t.Fatalf("default = %v, expected the first registration to win", got)
	}
}
