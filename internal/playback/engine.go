/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playback implements the continuous output-streaming loop that turns
// a decoded buffer into device-paced audio.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/audio"
	"github.com/Ghostkeeper/LynDJ/internal/prefs"
	"github.com/Ghostkeeper/LynDJ/internal/telemetry"
)

// Format describes the shape of the PCM stream handed to the sink.
type Format struct {
	Rate     int
	Channels int
}

// Sink receives interleaved S16LE chunks. Write blocks with bounded latency,
// paced by device buffering.
type Sink interface {
	Write(format Format, chunk []byte) error
	Close() error
}

const idleSleep = 100 * time.Millisecond

// Engine streams the active buffer to the sink on its own goroutine.
//
// The (buffer, cursor, end) triple is guarded by one mutex and read as a
// snapshot each loop iteration, so the loop never observes a new buffer with
// a stale cursor. The loop is the sole party that advances the cursor; the
// control side only replaces the whole state.
type Engine struct {
	mu         sync.Mutex
	buffer     *audio.Buffer
	cursor     float64
	end        float64
	generation uint64

	volume float64
	mono   bool

	sink   Sink
	prefs  *prefs.Store
	logger zerolog.Logger
}

// NewEngine creates an engine writing to sink. Call Run to start streaming.
func NewEngine(sink Sink, preferences *prefs.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		sink:   sink,
		prefs:  preferences,
		volume: 1.0,
		logger: logger.With().Str("component", "playback").Logger(),
	}
}

// Play replaces the active buffer and resets the cursor to the start. The
// end position is the buffer's duration.
func (e *Engine) Play(buffer *audio.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = buffer
	e.cursor = 0
	e.end = buffer.Duration()
	e.generation++
}

// Swap replaces the active buffer without resetting the cursor, for live
// edits of an already-playing track.
func (e *Engine) Swap(buffer *audio.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = buffer
	e.end = buffer.Duration()
	e.generation++
}

// Stop clears the buffer and resets the cursor. The loop goes idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = nil
	e.cursor = 0
	e.end = 0
	e.generation++
}

// SetEnd moves the end position of the active buffer, in seconds relative to
// the buffer start.
func (e *Engine) SetEnd(end float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.end = end
}

// Position is the current read cursor in seconds relative to the buffer
// start, or 0 when idle.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// IsPlaying reports whether a buffer is currently being streamed.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer != nil && e.cursor < e.end
}

// SetVolume sets the master volume multiplier applied to every chunk.
func (e *Engine) SetVolume(volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
}

// Volume returns the current master volume multiplier.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetMono toggles the mono downmix filter.
func (e *Engine) SetMono(mono bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mono = mono
}

// Run streams until ctx is cancelled. While idle it polls every 100ms for a
// new buffer. Per-chunk errors are logged and the chunk skipped; the loop
// never aborts.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info().Msg("playback loop started")
	for {
		select {
		case <-ctx.Done():
			if err := e.sink.Close(); err != nil {
				e.logger.Warn().Err(err).Msg("closing output sink")
			}
			e.logger.Info().Msg("playback loop stopped")
			return
		default:
		}
		if !e.step() {
			time.Sleep(idleSleep)
		}
	}
}

// step streams one chunk. Returns false when there was nothing to play and
// the caller should idle.
func (e *Engine) step() bool {
	e.mu.Lock()
	buffer, cursor, end, generation := e.buffer, e.cursor, e.end, e.generation
	volume, mono := e.volume, e.mono
	if buffer != nil && cursor >= end {
		// Reached the end position. Go idle; the track scheduler owns the
		// hand-off to the next track.
		e.buffer = nil
		e.cursor = 0
		e.end = 0
		buffer = nil
	}
	e.mu.Unlock()
	if buffer == nil {
		return false
	}

	chunkSeconds := float64(e.prefs.GetInt("player/buffer_size")) / 1000
	chunkEnd := cursor + chunkSeconds
	if chunkEnd > end {
		chunkEnd = end
	}
	chunk := buffer.Slice(cursor, chunkEnd)
	chunk = chunk.Gain(volume)
	if mono {
		chunk = downmixKeepChannels(chunk)
	}

	format := Format{Rate: chunk.FrameRate(), Channels: chunk.NumChannels()}
	if err := e.sink.Write(format, chunk.Interleave()); err != nil {
		e.logger.Warn().Err(err).Float64("position", cursor).Msg("dropping chunk")
		telemetry.ChunksDropped.Inc()
		// Keep real-time pacing even when the device rejects the chunk.
		time.Sleep(time.Duration(chunkSeconds * float64(time.Second)))
	} else {
		telemetry.ChunksWritten.Inc()
	}

	e.mu.Lock()
	if e.generation == generation {
		e.cursor = chunkEnd
	}
	e.mu.Unlock()
	return true
}

// downmixKeepChannels averages all channels but keeps the channel count, so
// toggling mono never changes the output format.
func downmixKeepChannels(b *audio.Buffer) *audio.Buffer {
	if b.NumChannels() <= 1 {
		return b
	}
	mono := b.ToMono().Channel(0)
	channels := make([][]int16, b.NumChannels())
	for i := range channels {
		channels[i] = mono
	}
	return audio.NewBuffer(b.FrameRate(), channels)
}
