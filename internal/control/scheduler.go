/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package control schedules the timed events that steer a playing track:
// volume envelope steps, fade-out ramps and the end-of-track hand-off.
package control

import "time"

// Handle is a scheduled event that can be cancelled before it fires.
type Handle interface {
	Cancel()
}

// Scheduler fires a callback once after a delay. Only single-shot delayed
// scheduling plus cancellation is needed; the real implementation runs on
// time.AfterFunc, tests substitute a manually fired fake.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
}

// TimerScheduler schedules on the Go runtime timer heap.
type TimerScheduler struct{}

type timerHandle struct {
	timer *time.Timer
}

func (h *timerHandle) Cancel() {
	h.timer.Stop()
}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	return &timerHandle{timer: time.AfterFunc(delay, fn)}
}
