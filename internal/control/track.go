/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package control

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/waypoints"
)

// envelopeStep is the sampling interval of the volume envelope and of
// fade-out ramps.
const envelopeStep = 50 * time.Millisecond

// Hooks are the player-side actions a track's events drive. Every callback
// runs on a timer goroutine.
type Hooks struct {
	SetVolume func(level float64)
	Volume    func() float64
	// SongEnds runs when the end-of-track event fires: report finished or
	// skipped, pop the playlist head and advance.
	SongEnds func()
	// Stopped runs after a fade-out ramp completes and playback must halt.
	Stopped func()
}

// Track owns all scheduled events of one playing track. Constructed when the
// track starts; Stop cancels everything at once. A fired event whose track
// was already stopped is a silent no-op, so a stale timer can never mutate
// the state of a newer track.
type Track struct {
	path     string
	duration float64
	silence  float64
	timeline waypoints.Timeline

	scheduler Scheduler
	hooks     Hooks
	logger    zerolog.Logger

	mu           sync.Mutex
	stopped      bool
	endEvent     Handle
	volumeEvents []Handle
}

// NewTrack prepares the event set for one track. duration is the trimmed
// playback length in seconds, silence the pause to leave before the next
// track starts.
func NewTrack(path string, duration, silence float64, timeline waypoints.Timeline, scheduler Scheduler, hooks Hooks, logger zerolog.Logger) *Track {
	return &Track{
		path:      path,
		duration:  duration,
		silence:   silence,
		timeline:  timeline,
		scheduler: scheduler,
		hooks:     hooks,
		logger:    logger.With().Str("component", "control").Str("track", path).Logger(),
	}
}

// Play schedules the end-of-track event and the volume envelope from the
// start of the track.
func (t *Track) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scheduleEndLocked(t.duration + t.silence)
	t.scheduleEnvelopeLocked(0)
}

// Stop cancels every pending event. Any timer that already fired but has not
// run yet becomes a no-op.
func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.cancelEndLocked()
	t.cancelEnvelopeLocked()
}

// Recalculate cancels and regenerates only the volume-envelope events,
// starting from the current playback position. The end-of-track event is
// untouched. Used when waypoints are edited mid-playback.
func (t *Track) Recalculate(position float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.cancelEnvelopeLocked()
	t.scheduleEnvelopeLocked(position)
}

// SetTimeline replaces the waypoint timeline the envelope is derived from.
// Call Recalculate afterwards to reschedule the envelope events.
func (t *Track) SetTimeline(timeline waypoints.Timeline) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeline = timeline
}

// Fadeout cancels all pending events and replaces them with a linear volume
// ramp to zero over the given number of seconds, ending in a full stop.
func (t *Track) Fadeout(duration float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.cancelEndLocked()
	t.cancelEnvelopeLocked()

	startVolume := t.hooks.Volume()
	step := envelopeStep.Seconds()
	for at := step; at < duration; at += step {
		level := (1 - at/duration) * startVolume
		t.volumeEvents = append(t.volumeEvents, t.scheduler.Schedule(secondsToDuration(at), func() {
			t.fire(func() { t.hooks.SetVolume(level) })
		}))
	}
	t.endEvent = t.scheduler.Schedule(secondsToDuration(duration), func() {
		t.fire(func() {
			t.hooks.SetVolume(0)
			t.hooks.Stopped()
		})
	})
	t.logger.Debug().Float64("duration", duration).Msg("fading out")
}

// SetSongEnds replaces the end-of-track event with one firing the given
// number of seconds from now. Used for a live cut-point edit.
func (t *Track) SetSongEnds(secondsFromNow float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.cancelEndLocked()
	t.scheduleEndLocked(secondsFromNow)
}

// fire runs an event action unless the track has been stopped in the
// meantime.
func (t *Track) fire(action func()) {
	t.mu.Lock()
	stale := t.stopped
	t.mu.Unlock()
	if stale {
		return
	}
	action()
}

func (t *Track) scheduleEndLocked(secondsFromNow float64) {
	t.endEvent = t.scheduler.Schedule(secondsToDuration(secondsFromNow), func() {
		t.fire(func() {
			t.logger.Debug().Msg("song ends")
			t.hooks.SongEnds()
		})
	})
}

// scheduleEnvelopeLocked samples the waypoint timeline every 50ms from the
// given position to the end of the track and schedules one volume event at
// the start of each run of equal levels. A track without waypoints gets no
// envelope events at all.
func (t *Track) scheduleEnvelopeLocked(from float64) {
	if len(t.timeline) == 0 {
		return
	}
	step := envelopeStep.Seconds()
	previous := t.hooks.Volume()
	for at := from; at < t.duration; at += step {
		level := t.timeline.At(at)
		if level == previous {
			continue
		}
		previous = level
		delay := at - from
		if delay < 0 {
			delay = 0
		}
		t.volumeEvents = append(t.volumeEvents, t.scheduler.Schedule(secondsToDuration(delay), func() {
			t.fire(func() { t.hooks.SetVolume(level) })
		}))
	}
}

func (t *Track) cancelEndLocked() {
	if t.endEvent != nil {
		t.endEvent.Cancel()
		t.endEvent = nil
	}
}

func (t *Track) cancelEnvelopeLocked() {
	for _, event := range t.volumeEvents {
		event.Cancel()
	}
	t.volumeEvents = nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
