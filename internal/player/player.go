/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player orchestrates music playback: starting and stopping tracks,
// advancing through the playlist, volume and mono control, and progress
// reporting.
package player

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostkeeper/LynDJ/internal/audio"
	"github.com/Ghostkeeper/LynDJ/internal/autodj"
	"github.com/Ghostkeeper/LynDJ/internal/control"
	"github.com/Ghostkeeper/LynDJ/internal/events"
	"github.com/Ghostkeeper/LynDJ/internal/history"
	"github.com/Ghostkeeper/LynDJ/internal/meta"
	"github.com/Ghostkeeper/LynDJ/internal/playlist"
	"github.com/Ghostkeeper/LynDJ/internal/prefs"
	"github.com/Ghostkeeper/LynDJ/internal/tasks"
	"github.com/Ghostkeeper/LynDJ/internal/telemetry"
	"github.com/Ghostkeeper/LynDJ/internal/waypoints"
)

// silenceThresholdDB is the loudness below which the edges of a track count
// as silence to be trimmed.
const silenceThresholdDB = -64

// defaultVolume is the master volume every new track starts at.
const defaultVolume = 0.5

// Engine is the playback side the player drives. Implemented by
// playback.Engine.
type Engine interface {
	Play(buffer *audio.Buffer)
	Swap(buffer *audio.Buffer)
	Stop()
	SetEnd(end float64)
	Position() float64
	IsPlaying() bool
	SetVolume(volume float64)
	Volume() float64
	SetMono(mono bool)
}

// Player is the orchestrating state machine. It is either stopped or
// playing a track; all state transitions run under one mutex, including the
// ones initiated by timer callbacks.
type Player struct {
	mu sync.Mutex

	engine    Engine
	scheduler control.Scheduler
	meta      *meta.Store
	queue     *playlist.Store
	prefs     *prefs.Store
	sessions  *history.List
	runner    *tasks.Runner
	bus       *events.Bus
	cacheDir  string
	logger    zerolog.Logger

	current           *control.Track
	fading            *control.Track
	currentPath       string
	failedDecodes     map[string]bool
	cutStart          float64
	trimmedDuration   float64
	untrimmedDuration float64
	startTime         time.Time
	mono              bool

	decode func(path string) (*audio.Buffer, error)
}

// Options bundles the collaborators of the player.
type Options struct {
	Engine      Engine
	Scheduler   control.Scheduler
	Meta        *meta.Store
	Playlist    *playlist.Store
	Preferences *prefs.Store
	Sessions    *history.List
	Runner      *tasks.Runner
	Bus         *events.Bus
	// CacheDir is where spectrogram images are stored.
	CacheDir string
}

// New creates a stopped player.
func New(opts Options, logger zerolog.Logger) *Player {
	p := &Player{
		engine:        opts.Engine,
		scheduler:     opts.Scheduler,
		meta:          opts.Meta,
		queue:         opts.Playlist,
		prefs:         opts.Preferences,
		sessions:      opts.Sessions,
		runner:        opts.Runner,
		bus:           opts.Bus,
		cacheDir:      opts.CacheDir,
		logger:        logger.With().Str("component", "player").Logger(),
		decode:        audio.Decode,
		failedDecodes: make(map[string]bool),
	}
	p.mono = p.prefs.GetBool("player/mono")
	p.engine.SetMono(p.mono)
	return p
}

// IsPlaying reports whether a track is currently playing. A track that is
// fading out no longer counts as playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// SetPlaying starts or stops the music.
func (p *Player) SetPlaying(playing bool) {
	p.mu.Lock()
	switch {
	case playing && p.current == nil:
		p.playNextLocked()
	case !playing && p.current != nil:
		p.logger.Info().Msg("stopping playback")
		if p.elapsedFractionLocked() > 0.5 {
			p.finishLocked(p.currentPath)
		}
		fading := p.current
		p.current = nil
		p.currentPath = ""
		p.fading = fading
		fading.Fadeout(p.prefs.GetFloat("player/fadeout"))
	}
	nowPlaying := p.current != nil
	p.mu.Unlock()
	p.bus.Publish(events.EventPlayingChanged, events.Payload{"playing": nowPlaying})
}

// PlayNext starts the next entry in the playlist, stopping playback when the
// playlist has run out or a pause marker is reached.
func (p *Player) PlayNext() {
	p.mu.Lock()
	p.playNextLocked()
	p.mu.Unlock()
}

func (p *Player) playNextLocked() {
	// A track still fading out must release its ramp and stop events before
	// the next track's events exist.
	if p.fading != nil {
		p.fading.Stop()
		p.fading = nil
	}
	if p.current != nil {
		p.current.Stop()
		p.current = nil
		p.currentPath = ""
	}

	for {
		p.fillFromAutoDJLocked()
		head, ok := p.queue.Head()
		if !ok {
			p.engine.Stop()
			p.bus.Publish(events.EventPlayingChanged, events.Payload{"playing": false})
			return
		}
		if head == playlist.PauseSentinel {
			p.logger.Info().Msg("reached a pause marker, stopping playback")
			p.queue.PopHead()
			p.engine.Stop()
			p.bus.Publish(events.EventPlayingChanged, events.Payload{"playing": false})
			return
		}
		if p.startTrackLocked(head) {
			return
		}
		// Unplayable file. Skip it and try the next.
		p.queue.PopHead()
	}
}

// fillFromAutoDJLocked materialises an automatic suggestion into the head of
// an empty playlist when the auto DJ is enabled.
func (p *Player) fillFromAutoDJLocked() {
	if !p.prefs.GetBool("autodj/enabled") || p.queue.Len() > 0 || p.sessions == nil {
		return
	}
	suggestion := autodj.Suggest(autodj.BuildInput(p.prefs, p.meta, p.queue, p.sessions, time.Now()))
	if suggestion == "" || p.failedDecodes[suggestion] {
		return
	}
	p.logger.Info().Str("path", suggestion).Msg("the playlist is empty, auto-playing suggested track")
	p.queue.Add(suggestion)
}

func (p *Player) startTrackLocked(path string) bool {
	p.logger.Info().Str("path", path).Msg("starting playback of track")
	buffer, err := p.decode(path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("skipping unplayable track")
		// Remember the failure so the auto DJ never re-suggests this file
		// within the session.
		p.failedDecodes[path] = true
		return false
	}

	entry := p.meta.Entry(path)
	cutStart, cutEnd := entry.CutStart, entry.CutEnd
	if cutStart < 0 || cutEnd < 0 {
		cutStart, cutEnd = buffer.DetectSilence(silenceThresholdDB)
		p.meta.Change(path, "cut_start", cutStart)
		p.meta.Change(path, "cut_end", cutEnd)
	}
	trimmed := buffer.Slice(cutStart, cutEnd)

	p.ensureSpectrogramLocked(path, trimmed, entry.Fourier)

	p.engine.SetVolume(defaultVolume)
	timeline := waypoints.Parse(entry.VolumeWaypoints)
	p.current = control.NewTrack(path, trimmed.Duration(), p.prefs.GetFloat("player/silence"), timeline, p.scheduler, control.Hooks{
		SetVolume: p.SetVolume,
		Volume:    p.Volume,
		SongEnds:  func() { p.songEnds(path) },
		Stopped:   p.fadeoutDone,
	}, p.logger)
	p.currentPath = path
	p.cutStart = cutStart
	p.trimmedDuration = trimmed.Duration()
	p.untrimmedDuration = buffer.Duration()
	p.startTime = time.Now()

	p.engine.Play(trimmed)
	p.current.Play()
	p.bus.Publish(events.EventSongChanged, events.Payload{"path": path})
	return true
}

// ensureSpectrogramLocked queues generation of the track's spectrogram image
// when none is cached yet.
func (p *Player) ensureSpectrogramLocked(path string, buffer *audio.Buffer, cached string) {
	if p.runner == nil || p.cacheDir == "" {
		return
	}
	if cached != "" {
		if _, err := os.Stat(cached); err == nil {
			return
		}
	}
	samples := p.prefs.GetInt("player/fourier_samples")
	bands := p.prefs.GetInt("player/fourier_channels")
	gamma := p.prefs.GetFloat("player/fourier_gamma")
	p.runner.Add(tasks.Task{
		Description:         "Generating spectrogram images",
		AllowDuringPlayback: true,
		Run: func() {
			image, err := audio.CacheSpectrogram(buffer, path, p.cacheDir, samples, bands, gamma)
			if err != nil {
				p.logger.Warn().Err(err).Str("path", path).Msg("unable to cache spectrogram")
				return
			}
			p.meta.Change(path, "fourier", image)
		},
	})
}

// songEnds handles the end-of-track event: report the track as finished when
// more than half of it played, pop the playlist head, and continue with the
// next track without an externally visible stop.
func (p *Player) songEnds(path string) {
	p.mu.Lock()
	if p.currentPath != path {
		p.mu.Unlock()
		return
	}
	p.logger.Debug().Str("path", path).Msg("song ends")
	if p.elapsedFractionLocked() > 0.5 {
		p.finishLocked(path)
	}
	p.queue.PopHead()
	p.playNextLocked()
	p.mu.Unlock()
}

// fadeoutDone halts the engine after a fade-out ramp completes. When a new
// track started in the meantime the fading track was already stopped and this
// is a no-op.
func (p *Player) fadeoutDone() {
	p.mu.Lock()
	if p.fading == nil {
		p.mu.Unlock()
		return
	}
	p.fading = nil
	p.mu.Unlock()
	p.engine.Stop()
	p.bus.Publish(events.EventPlayingChanged, events.Payload{"playing": false})
}

// finishLocked records that a track was played to (sufficient) completion.
func (p *Player) finishLocked(path string) {
	p.meta.Change(path, "last_played", float64(time.Now().Unix()))
	telemetry.TracksPlayed.Inc()
	p.bus.Publish(events.EventSongFinished, events.Payload{"path": path})
}

func (p *Player) elapsedFractionLocked() float64 {
	if p.trimmedDuration <= 0 {
		return 0
	}
	return time.Since(p.startTime).Seconds() / p.trimmedDuration
}

// SetVolume changes the master volume, between 0 and 1.
func (p *Player) SetVolume(volume float64) {
	if p.engine.Volume() == volume {
		return
	}
	p.engine.SetVolume(volume)
	p.bus.Publish(events.EventVolumeChanged, events.Payload{"volume": volume})
}

// Volume returns the current master volume.
func (p *Player) Volume() float64 {
	return p.engine.Volume()
}

// SetMono toggles mono playback. The choice is persisted.
func (p *Player) SetMono(mono bool) {
	p.mu.Lock()
	if p.mono == mono {
		p.mu.Unlock()
		return
	}
	p.mono = mono
	p.mu.Unlock()
	p.engine.SetMono(mono)
	p.prefs.Set("player/mono", mono)
	p.bus.Publish(events.EventMonoChanged, events.Payload{"mono": mono})
}

// Mono reports whether mono playback is enabled.
func (p *Player) Mono() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mono
}

// CurrentPath returns the path of the playing track, or an empty string.
func (p *Player) CurrentPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPath
}

// CurrentTitle returns the title of the playing track, or an empty string.
func (p *Player) CurrentTitle() string {
	p.mu.Lock()
	path := p.currentPath
	p.mu.Unlock()
	if path == "" {
		return ""
	}
	return p.meta.Entry(path).Title
}

// CurrentDuration returns the untrimmed duration of the playing track in
// seconds, or 0 when stopped.
func (p *Player) CurrentDuration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.untrimmedDuration
}

// Progress returns how far into the playing track we are, between 0 and 1.
// The denominator is the untrimmed duration, so the indicator stays stable
// while cut points are edited live.
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.untrimmedDuration <= 0 {
		return 0
	}
	return (p.cutStart + p.engine.Position()) / p.untrimmedDuration
}

// SetCutEnd moves the end trim point of the playing track, in seconds of
// untrimmed track time. The end event and the engine's end position move
// with it; when the new end falls before the current playback position the
// player skips to the next track.
func (p *Player) SetCutEnd(cutEnd float64) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	p.meta.Change(p.currentPath, "cut_end", cutEnd)
	newDuration := cutEnd - p.cutStart
	position := p.engine.Position()
	if newDuration <= position {
		p.logger.Info().Float64("cut_end", cutEnd).Msg("cut end moved before the playback position, skipping ahead")
		p.queue.PopHead()
		p.playNextLocked()
		p.mu.Unlock()
		return
	}
	p.trimmedDuration = newDuration
	p.engine.SetEnd(newDuration)
	p.current.SetSongEnds(newDuration - position + p.prefs.GetFloat("player/silence"))
	p.mu.Unlock()
}

// RecalculateEnvelope re-reads the playing track's volume waypoints and
// reschedules the envelope events from the current position. Call after a
// live waypoint edit.
func (p *Player) RecalculateEnvelope() {
	p.mu.Lock()
	current, path := p.current, p.currentPath
	p.mu.Unlock()
	if current == nil {
		return
	}
	current.SetTimeline(waypoints.Parse(p.meta.Entry(path).VolumeWaypoints))
	current.Recalculate(p.engine.Position())
}
