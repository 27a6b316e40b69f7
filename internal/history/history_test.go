/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/events"
	"github.com/Ghostkeeper/LynDJ/internal/meta"
)

func newList(t *testing.T) (*List, *meta.Store, string) {
	t.Helper()
	dir := t.TempDir()
	metadata, err := meta.Open(filepath.Join(dir, "metadata.db"), events.NewBus(), zerolog.Nop())
	if err != nil {
		t.Fatalf("opening metadata store: %v", err)
	}
	return New(metadata, zerolog.Nop()), metadata, dir
}

func writeTrack(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("writing track file: %v", err)
	}
	return path
}

func TestRecentOrdersByMostRecentPlay(t *testing.T) {
	list, metadata, dir := newList(t)
	now := time.Now()
	first := writeTrack(t, dir, "first.mp3")
	second := writeTrack(t, dir, "second.flac")
	writeTrack(t, dir, "never.mp3")
	writeTrack(t, dir, "notes.txt")

	metadata.Change(first, "last_played", float64(now.Add(-2*time.Hour).Unix()))
	metadata.Change(second, "last_played", float64(now.Add(-10*time.Minute).Unix()))

	recent := list.Recent(dir, now)
	if len(recent) != 2 {
		t.Fatalf("recent = %v, expected the two played tracks", recent)
	}
	if recent[0] != second || recent[1] != first {
		t.Fatalf("recent = %v, expected most recently played first", recent)
	}
}

func TestRecentExcludesPlaysOutsideSessionWindow(t *testing.T) {
	list, metadata, dir := newList(t)
	now := time.Now()
	old := writeTrack(t, dir, "yesterday.mp3")
	fresh := writeTrack(t, dir, "today.mp3")

	metadata.Change(old, "last_played", float64(now.Add(-25*time.Hour).Unix()))
	metadata.Change(fresh, "last_played", float64(now.Add(-23*time.Hour).Unix()))

	recent := list.Recent(dir, now)
	if len(recent) != 1 || recent[0] != fresh {
		t.Fatalf("recent = %v, expected only the play inside the session window", recent)
	}
}

func TestRecentOnMissingDirectory(t *testing.T) {
	list, _, _ := newList(t)
	if recent := list.Recent("/does/not/exist", time.Now()); recent != nil {
		t.Fatalf("recent = %v for a missing directory, expected nil", recent)
	}
}
