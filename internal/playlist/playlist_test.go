/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/events"
	"github.com/Ghostkeeper/LynDJ/internal/prefs"
)

func testPlaylist(t *testing.T) (*Store, *events.Bus) {
	t.Helper()
	store, err := prefs.New(filepath.Join(t.TempDir(), "preferences.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("creating preference store: %v", err)
	}
	prefs.RegisterDefaults(store)
	bus := events.NewBus()
	return New(store, bus, zerolog.Nop()), bus
}

func TestAddAndHead(t *testing.T) {
	p, _ := testPlaylist(t)
	if _, ok := p.Head(); ok {
		t.Fatal("empty playlist has a head")
	}
	p.Add("/music/a.mp3")
	p.Add("/music/b.mp3")
	head, ok := p.Head()
	if !ok || head != "/music/a.mp3" {
		t.Fatalf("head = %q, expected /music/a.mp3", head)
	}
	if p.Len() != 2 {
		t.Fatalf("length = %d, expected 2", p.Len())
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	p, _ := testPlaylist(t)
	p.Add("/music/a.mp3")
	p.Add("/music/a.mp3")
	if p.Len() != 1 {
		t.Fatalf("length = %d after duplicate add, expected 1", p.Len())
	}
}

func TestPauseSentinelMayRepeat(t *testing.T) {
	p, _ := testPlaylist(t)
	p.Add("/music/a.mp3")
	p.Add(PauseSentinel)
	p.Add("/music/b.mp3")
	p.Add(PauseSentinel)
	if p.Len() != 4 {
		t.Fatalf("length = %d, expected 4 with two pause markers", p.Len())
	}
}

func TestRemoveAndPopHead(t *testing.T) {
	p, _ := testPlaylist(t)
	p.Add("/music/a.mp3")
	p.Add("/music/b.mp3")
	p.Add("/music/c.mp3")

	p.Remove(1)
	if got := p.Tracks(); !reflect.DeepEqual(got, []string{"/music/a.mp3", "/music/c.mp3"}) {
		t.Fatalf("after Remove(1): %v", got)
	}
	p.PopHead()
	if got := p.Tracks(); !reflect.DeepEqual(got, []string{"/music/c.mp3"}) {
		t.Fatalf("after PopHead: %v", got)
	}
	p.Remove(5) // out of range, no-op
	if p.Len() != 1 {
		t.Fatalf("out-of-range Remove changed the playlist")
	}
}

func TestReorder(t *testing.T) {
	p, _ := testPlaylist(t)
	p.Add("/music/a.mp3")
	p.Add("/music/b.mp3")
	p.Add("/music/c.mp3")

	p.Reorder("/music/c.mp3", 0)
	if got := p.Tracks(); !reflect.DeepEqual(got, []string{"/music/c.mp3", "/music/a.mp3", "/music/b.mp3"}) {
		t.Fatalf("after Reorder: %v", got)
	}
	p.Reorder("/music/unknown.mp3", 1)
	if p.Len() != 3 {
		t.Fatal("reordering an unknown path changed the playlist")
	}
}

func TestChangeNotification(t *testing.T) {
	p, bus := testPlaylist(t)
	sub := bus.Subscribe(events.EventPlaylistChanged)
	p.Add("/music/a.mp3")
	select {
	case payload := <-sub:
		if payload["path"] != "/music/a.mp3" {
			t.Fatalf("unexpected payload %v", payload)
		}
	default:
		t.Fatal("no playlist_changed event published")
	}
}
