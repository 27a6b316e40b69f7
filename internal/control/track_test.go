/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/waypoints"
)

type fakeEvent struct {
	delay     time.Duration
	fn        func()
	cancelled bool
}

func (e *fakeEvent) Cancel() { e.cancelled = true }

// fakeScheduler records scheduled events so tests can fire them manually.
type fakeScheduler struct {
	events []*fakeEvent
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) Handle {
	e := &fakeEvent{delay: delay, fn: fn}
	s.events = append(s.events, e)
	return e
}

func (s *fakeScheduler) pending() []*fakeEvent {
	var out []*fakeEvent
	for _, e := range s.events {
		if !e.cancelled {
			out = append(out, e)
		}
	}
	return out
}

type recorder struct {
	volume   float64
	songEnds int
	stopped  int
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		SetVolume: func(level float64) { r.volume = level },
		Volume:    func() float64 { return r.volume },
		SongEnds:  func() { r.songEnds++ },
		Stopped:   func() { r.stopped++ },
	}
}

func newTestTrack(duration, silence float64, serialised string, scheduler Scheduler, rec *recorder) *Track {
	return NewTrack("/music/track.mp3", duration, silence, waypoints.Parse(serialised), scheduler, rec.hooks(), zerolog.Nop())
}

func TestEndEventDelay(t *testing.T) {
	s := &fakeScheduler{}
	rec := &recorder{volume: 0.5}
	track := newTestTrack(180, 2, "", s, rec)
	track.Play()

	if len(s.events) != 1 {
		t.Fatalf("scheduled %d events for a track without waypoints, expected only the end event", len(s.events))
	}
	if got := s.events[0].delay; got != 182*time.Second {
		t.Fatalf("end event delay = %v, expected 182s", got)
	}
	s.events[0].fn()
	if rec.songEnds != 1 {
		t.Fatalf("SongEnds fired %d times, expected 1", rec.songEnds)
	}
}

func TestEnvelopeCollapsesRunsAndInterpolates(t *testing.T) {
	s := &fakeScheduler{}
	rec := &recorder{volume: 0.5}
	track := newTestTrack(30, 2, "10;0.2|20;0.8", s, rec)
	track.Play()

	var envelope []*fakeEvent
	for _, e := range s.events[1:] {
		envelope = append(envelope, e)
	}
	if len(envelope) == 0 {
		t.Fatal("no envelope events scheduled")
	}
	// Runs of equal levels collapse to one event, so the flat hold before
	// the first waypoint produces a single event at its start.
	if envelope[0].delay != 0 {
		t.Fatalf("first envelope event at %v, expected 0 (level differs from current volume)", envelope[0].delay)
	}
	prev := time.Duration(-1)
	for _, e := range envelope {
		if e.delay < 0 {
			t.Fatalf("negative event delay %v", e.delay)
		}
		if e.delay < prev {
			t.Fatalf("envelope events out of order: %v after %v", e.delay, prev)
		}
		prev = e.delay
	}

	// The sample nearest t=15 must set the level halfway between 0.2 and 0.8.
	var nearest *fakeEvent
	for _, e := range envelope {
		if nearest == nil || absDuration(e.delay-15*time.Second) < absDuration(nearest.delay-15*time.Second) {
			nearest = e
		}
	}
	nearest.fn()
	if math.Abs(rec.volume-0.5) > 0.01 {
		t.Fatalf("level at t=15 is %v, expected about 0.5", rec.volume)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func TestRecalculateKeepsEndEvent(t *testing.T) {
	s := &fakeScheduler{}
	rec := &recorder{volume: 0.5}
	track := newTestTrack(30, 2, "10;0.2|20;0.8", s, rec)
	track.Play()
	endEvent := s.events[0]

	track.Recalculate(12.3)

	if endEvent.cancelled {
		t.Fatal("Recalculate cancelled the end-of-track event")
	}
	regenerated := false
	for _, e := range s.pending() {
		if e == endEvent {
			continue
		}
		regenerated = true
		if e.delay < 0 {
			t.Fatalf("regenerated event has negative delay %v", e.delay)
		}
	}
	if !regenerated {
		t.Fatal("no envelope events regenerated")
	}
}

func TestFadeoutRampsToZeroAndStops(t *testing.T) {
	s := &fakeScheduler{}
	rec := &recorder{volume: 0.8}
	track := newTestTrack(30, 2, "10;0.2|20;0.8", s, rec)
	track.Play()

	track.Fadeout(2)

	pending := s.pending()
	if len(pending) == 0 {
		t.Fatal("no fade-out events scheduled")
	}
	// Everything scheduled by Play must be gone.
	for _, e := range s.events[:len(s.events)-len(pending)] {
		if !e.cancelled {
			t.Fatal("a pre-fadeout event survived")
		}
	}
	last := pending[len(pending)-1]
	if last.delay != 2*time.Second {
		t.Fatalf("terminal fade event at %v, expected 2s", last.delay)
	}
	// Fire the ramp in order; volume must never increase.
	prevVolume := rec.volume
	for _, e := range pending {
		e.fn()
		if rec.volume > prevVolume {
			t.Fatalf("fade-out raised the volume from %v to %v", prevVolume, rec.volume)
		}
		prevVolume = rec.volume
	}
	if rec.volume != 0 {
		t.Fatalf("volume after fade-out = %v, expected 0", rec.volume)
	}
	if rec.stopped != 1 {
		t.Fatalf("Stopped fired %d times, expected 1", rec.stopped)
	}
}

func TestSetSongEndsReplacesEndEvent(t *testing.T) {
	s := &fakeScheduler{}
	rec := &recorder{volume: 0.5}
	track := newTestTrack(30, 2, "", s, rec)
	track.Play()
	old := s.events[0]

	track.SetSongEnds(5)

	if !old.cancelled {
		t.Fatal("old end event not cancelled")
	}
	pending := s.pending()
	if len(pending) != 1 {
		t.Fatalf("%d pending events after SetSongEnds, expected 1", len(pending))
	}
	if pending[0].delay != 5*time.Second {
		t.Fatalf("new end event at %v, expected 5s", pending[0].delay)
	}
}

func TestStoppedTrackIgnoresStaleFires(t *testing.T) {
	s := &fakeScheduler{}
	rec := &recorder{volume: 0.5}
	track := newTestTrack(30, 2, "10;0.2|20;0.8", s, rec)
	track.Play()

	events := append([]*fakeEvent(nil), s.events...)
	track.Stop()

	for _, e := range events {
		e.fn()
	}
	if rec.songEnds != 0 {
		t.Fatalf("stale end event fired %d times", rec.songEnds)
	}
	if rec.volume != 0.5 {
		t.Fatalf("stale envelope event changed the volume to %v", rec.volume)
	}
}
