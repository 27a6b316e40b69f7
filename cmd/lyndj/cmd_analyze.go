/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Ghostkeeper/LynDJ/internal/audio"
	"github.com/Ghostkeeper/LynDJ/internal/meta"
	"github.com/Ghostkeeper/LynDJ/internal/tasks"
)

// silenceThresholdDB is the level below which audio counts as silence when
// detecting how much to trim off the ends of a track.
const silenceThresholdDB = -64

var analyzeCmd = &cobra.Command{
	Use:   "analyze [directory]",
	Short: "Pre-compute track analysis",
	Long:  "Decode every music file in a directory and fill in the missing analysis results: silence trim points, tempo estimates and spectrogram images. Doing this ahead of time keeps the player responsive during a session.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	directory := a.prefs.GetString("directory/browse_path")
	if len(args) > 0 {
		directory = args[0]
	}
	if directory == "" {
		return fmt.Errorf("no directory given and no browse path configured")
	}

	a.meta.AddDirectory(directory)
	files, err := os.ReadDir(directory)
	if err != nil {
		return fmt.Errorf("read music directory: %w", err)
	}
	var paths []string
	for _, file := range files {
		path := filepath.Join(directory, file.Name())
		if meta.IsMusicFile(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := tasks.NewRunner(a.bus, func() bool { return false }, logger)
	var pending sync.WaitGroup
	for _, path := range paths {
		track := path
		pending.Add(1)
		runner.Add(tasks.Task{
			Description: "Analysing " + filepath.Base(track),
			Run: func() {
				defer pending.Done()
				if err := analyzeTrack(a, track); err != nil {
					logger.Warn().Err(err).Str("path", track).Msg("analysis failed, skipping")
				}
			},
		})
	}
	go runner.Run(ctx)
	pending.Wait()

	logger.Info().Int("tracks", len(paths)).Msg("analysis complete")
	return nil
}

// analyzeTrack fills in whichever analysis results the track is still
// missing. Results that are already cached are not recomputed.
func analyzeTrack(a *app, path string) error {
	entry := a.meta.Entry(path)
	needCuts := entry.CutStart < 0 || entry.CutEnd < 0
	needSpectrogram := entry.Fourier == ""
	needBPM := entry.BPM < 0
	if !needCuts && !needSpectrogram && !needBPM {
		return nil
	}

	buffer, err := audio.Decode(path)
	if err != nil {
		return err
	}

	if needCuts {
		cutStart, cutEnd := buffer.DetectSilence(silenceThresholdDB)
		a.meta.Change(path, "cut_start", cutStart)
		a.meta.Change(path, "cut_end", cutEnd)
		logger.Debug().Str("path", path).Float64("cut_start", cutStart).Float64("cut_end", cutEnd).Msg("trim points detected")
	}
	if needSpectrogram {
		image, err := audio.CacheSpectrogram(buffer, path, cfg.FourierCacheDir(),
			a.prefs.GetInt("player/fourier_samples"),
			a.prefs.GetInt("player/fourier_channels"),
			a.prefs.GetFloat("player/fourier_gamma"))
		if err != nil {
			return fmt.Errorf("render spectrogram: %w", err)
		}
		a.meta.Change(path, "fourier", image)
	}
	if needBPM {
		if bpm := buffer.TempoEstimate(); bpm > 0 {
			a.meta.Change(path, "bpm", bpm)
			logger.Debug().Str("path", path).Float64("bpm", bpm).Msg("tempo estimated")
		}
	}
	return nil
}
