/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Ghostkeeper/LynDJ/internal/config"
	"github.com/Ghostkeeper/LynDJ/internal/control"
	"github.com/Ghostkeeper/LynDJ/internal/events"
	"github.com/Ghostkeeper/LynDJ/internal/history"
	"github.com/Ghostkeeper/LynDJ/internal/logging"
	"github.com/Ghostkeeper/LynDJ/internal/meta"
	"github.com/Ghostkeeper/LynDJ/internal/playback"
	"github.com/Ghostkeeper/LynDJ/internal/player"
	"github.com/Ghostkeeper/LynDJ/internal/playlist"
	"github.com/Ghostkeeper/LynDJ/internal/prefs"
	"github.com/Ghostkeeper/LynDJ/internal/tasks"
	"github.com/Ghostkeeper/LynDJ/internal/telemetry"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lyndj",
	Short: "LynDJ - Music player for social dance DJs",
	Long:  "LynDJ plays music with sample-accurate volume control, trims silence off tracks, and suggests what to play next.",
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start playing the playlist",
	Long:  "Play the queued tracks, advancing automatically until the playlist runs out or a pause marker is reached",
	RunE:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(suggestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the shared collaborators every command builds on.
type app struct {
	bus      *events.Bus
	prefs    *prefs.Store
	meta     *meta.Store
	playlist *playlist.Store
	sessions *history.List
}

func loadApp() (*app, error) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = logging.Setup(cfg.Environment)

	bus := events.NewBus()
	preferences, err := prefs.New(cfg.PreferencesPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	prefs.RegisterDefaults(preferences)
	if cfg.MusicDir != "" && preferences.GetString("directory/browse_path") == "" {
		preferences.Set("directory/browse_path", cfg.MusicDir)
	}

	metadata, err := meta.Open(cfg.DatabasePath(), bus, logger)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}

	return &app{
		bus:      bus,
		prefs:    preferences,
		meta:     metadata,
		playlist: playlist.New(preferences, bus, logger),
		sessions: history.New(metadata, logger),
	}, nil
}

// shutdown flushes state the debounce timers may not have written yet.
func (a *app) shutdown() {
	if err := a.prefs.Save(); err != nil {
		logger.Error().Err(err).Msg("saving preferences at shutdown failed")
	}
	if err := a.meta.Save(); err != nil {
		logger.Error().Err(err).Msg("saving metadata at shutdown failed")
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	logger.Info().Msg("LynDJ starting")

	if directory := a.prefs.GetString("directory/browse_path"); directory != "" {
		a.meta.AddDirectory(directory)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := playback.NewEngine(playback.NewDeviceSink(logger), a.prefs, logger)
	go engine.Run(ctx)

	var p *player.Player
	runner := tasks.NewRunner(a.bus, func() bool { return p != nil && p.IsPlaying() }, logger)
	go runner.Run(ctx)

	p = player.New(player.Options{
		Engine:      engine,
		Scheduler:   control.TimerScheduler{},
		Meta:        a.meta,
		Playlist:    a.playlist,
		Preferences: a.prefs,
		Sessions:    a.sessions,
		Runner:      runner,
		Bus:         a.bus,
		CacheDir:    cfg.FourierCacheDir(),
	}, logger)

	go func() {
		logger.Info().Str("addr", cfg.MetricsBind).Msg("metrics listening")
		if err := http.ListenAndServe(cfg.MetricsBind, telemetry.Handler()); err != nil {
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	p.SetPlaying(true)
	if !p.IsPlaying() {
		logger.Info().Msg("nothing to play, the playlist is empty")
		return nil
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	finished := a.bus.Subscribe(events.EventPlayingChanged)
	defer a.bus.Unsubscribe(events.EventPlayingChanged, finished)
	for {
		select {
		case <-quit:
			logger.Info().Msg("shutting down")
			p.SetPlaying(false)
			return nil
		case payload := <-finished:
			if playing, ok := payload["playing"].(bool); ok && !playing {
				logger.Info().Msg("playback finished")
				return nil
			}
		}
	}
}
