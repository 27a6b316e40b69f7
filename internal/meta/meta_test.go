/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/events"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "metadata.db"), events.NewBus(), zerolog.Nop())
	if err != nil {
		t.Fatalf("opening metadata store: %v", err)
	}
	return s, dir
}

func writeFakeTrack(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestIsMusicFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		expected bool
	}{
		{"track.mp3", true},
		{"track.flac", true},
		{"track.opus", true},
		{"track.ogg", true},
		{"track.wav", true},
		{"track.MP3", true},
		{"notes.txt", false},
		{"track.m4a", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFakeTrack(t, dir, tc.name)
			if got := IsMusicFile(path); got != tc.expected {
				t.Fatalf("IsMusicFile(%q) = %v, expected %v", tc.name, got, tc.expected)
			}
		})
	}
	if IsMusicFile(dir) {
		t.Fatal("a directory is not a music file")
	}
	if IsMusicFile(filepath.Join(dir, "missing.mp3")) {
		t.Fatal("a missing file is not a music file")
	}
}

func TestUnreadableTagsFallBackToFilename(t *testing.T) {
	s, dir := testStore(t)
	path := writeFakeTrack(t, dir, "My Track.mp3")

	entry := s.Entry(path)
	if entry.Title != "My Track" {
		t.Fatalf("title = %q, expected filename-derived %q", entry.Title, "My Track")
	}
	if entry.BPM != -1 {
		t.Fatalf("bpm = %v, expected -1 for unknown", entry.BPM)
	}
	if entry.LastPlayed != -1 {
		t.Fatalf("last_played = %v, expected -1 for never played", entry.LastPlayed)
	}
	if entry.CutStart != -1 || entry.CutEnd != -1 {
		t.Fatalf("cut points = (%v, %v), expected (-1, -1)", entry.CutStart, entry.CutEnd)
	}
}

func TestChangeSurvivesRefresh(t *testing.T) {
	s, dir := testStore(t)
	path := writeFakeTrack(t, dir, "track.mp3")

	s.Change(path, "age", "vintage")
	s.Change(path, "energy", "high")
	s.Change(path, "cut_start", 1.25)

	entry := s.Entry(path)
	if entry.Age != "vintage" {
		t.Fatalf("age = %q, expected %q", entry.Age, "vintage")
	}
	if entry.Energy != "high" {
		t.Fatalf("energy = %q, expected %q", entry.Energy, "high")
	}
	if entry.CutStart != 1.25 {
		t.Fatalf("cut_start = %v, expected 1.25", entry.CutStart)
	}
}

func TestChangePublishesEvent(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus()
	s, err := Open(filepath.Join(dir, "metadata.db"), bus, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening metadata store: %v", err)
	}
	sub := bus.Subscribe(events.EventMetadataChanged)
	path := writeFakeTrack(t, dir, "track.mp3")

	s.Change(path, "style", "swing")

	select {
	case payload := <-sub:
		if payload["path"] != path || payload["field"] != "style" {
			t.Fatalf("unexpected event payload %v", payload)
		}
	default:
		t.Fatal("no metadata_changed event published")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "metadata.db")
	bus := events.NewBus()

	s, err := Open(dbPath, bus, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening metadata store: %v", err)
	}
	path := writeFakeTrack(t, dir, "track.flac")
	s.Change(path, "last_played", 12345.0)
	s.Change(path, "volume_waypoints", "10;0.2|20;0.8")
	if err := s.Save(); err != nil {
		t.Fatalf("saving metadata: %v", err)
	}

	reopened, err := Open(dbPath, bus, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopening metadata store: %v", err)
	}
	if !reopened.Has(path) {
		t.Fatal("entry lost across restart")
	}
	entry := reopened.Entry(path)
	if entry.LastPlayed != 12345.0 {
		t.Fatalf("last_played = %v, expected 12345", entry.LastPlayed)
	}
	if entry.VolumeWaypoints != "10;0.2|20;0.8" {
		t.Fatalf("volume_waypoints = %q", entry.VolumeWaypoints)
	}
}

func TestAddDirectory(t *testing.T) {
	s, dir := testStore(t)
	a := writeFakeTrack(t, dir, "a.mp3")
	b := writeFakeTrack(t, dir, "b.flac")
	writeFakeTrack(t, dir, "notes.txt")

	s.AddDirectory(dir)

	if !s.Has(a) || !s.Has(b) {
		t.Fatal("music files not picked up from directory")
	}
	if s.Has(filepath.Join(dir, "notes.txt")) {
		t.Fatal("non-music file picked up from directory")
	}
}

func TestGetByField(t *testing.T) {
	s, dir := testStore(t)
	path := writeFakeTrack(t, dir, "track.ogg")
	s.Change(path, "last_played", 128.0)

	if got := s.Get(path, "last_played"); got != 128.0 {
		t.Fatalf("Get(last_played) = %v, expected 128", got)
	}
	if got := s.Get(path, "title"); got != "track" {
		t.Fatalf("Get(title) = %v, expected %q", got, "track")
	}
}
