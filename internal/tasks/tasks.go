/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package tasks runs maintenance work in the background: one worker
// goroutine pulls tasks from a queue so they never interrupt the user's
// interaction with the player.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/events"
	"github.com/Ghostkeeper/LynDJ/internal/telemetry"
)

// pollInterval gives reasonably low priority to checking for queued tasks.
const pollInterval = 100 * time.Millisecond

// Task is one unit of background work.
type Task struct {
	Run         func()
	Description string
	// AllowDuringPlayback marks work light enough to run while music plays.
	// Heavier tasks wait until playback stops.
	AllowDuringPlayback bool
}

// Runner executes tasks one at a time on a single background goroutine.
type Runner struct {
	mu          sync.Mutex
	queue       []Task
	numDone     int
	description string

	bus       *events.Bus
	isPlaying func() bool
	logger    zerolog.Logger
}

// NewRunner creates the task runner. isPlaying tells it whether music is
// currently playing, which defers playback-sensitive tasks.
func NewRunner(bus *events.Bus, isPlaying func() bool, logger zerolog.Logger) *Runner {
	return &Runner{
		bus:       bus,
		isPlaying: isPlaying,
		logger:    logger.With().Str("component", "tasks").Logger(),
	}
}

// Add queues a task for background execution.
func (r *Runner) Add(task Task) {
	r.mu.Lock()
	r.queue = append(r.queue, task)
	depth := len(r.queue)
	r.mu.Unlock()
	telemetry.TaskQueueDepth.Set(float64(depth))
	r.publishProgress()
}

// Progress returns how many tasks completed since the queue was last empty,
// and how many remain, plus the description of the current task.
func (r *Runner) Progress() (done, remaining int, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numDone, len(r.queue), r.description
}

// Run executes queued tasks until ctx is cancelled. It polls the queue every
// 100ms; tasks that are not allowed during playback are moved to the tail of
// the queue while music is playing.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().Msg("background task runner started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("background task runner stopped")
			return
		case <-time.After(pollInterval):
		}
		r.runOne()
	}
}

func (r *Runner) runOne() {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.numDone = 0
		r.description = ""
		r.mu.Unlock()
		return
	}
	task := r.queue[0]
	r.queue = r.queue[1:]
	if !task.AllowDuringPlayback && r.isPlaying() {
		r.queue = append(r.queue, task)
		r.mu.Unlock()
		return
	}
	r.description = task.Description
	r.mu.Unlock()
	r.publishProgress()

	task.Run()

	r.mu.Lock()
	r.numDone++
	depth := len(r.queue)
	r.mu.Unlock()
	telemetry.TaskQueueDepth.Set(float64(depth))
	r.publishProgress()
}

func (r *Runner) publishProgress() {
	done, remaining, description := r.Progress()
	r.bus.Publish(events.EventTaskProgress, events.Payload{
		"done":        done,
		"remaining":   remaining,
		"description": description,
	})
}
