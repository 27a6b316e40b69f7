/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ghostkeeper/LynDJ/internal/autodj"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest the next track",
	Long:  "Print the track AutoDJ would queue next, based on the current playlist, the session history and the configured tempo cadence.",
	RunE:  runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	if directory := a.prefs.GetString("directory/browse_path"); directory != "" {
		a.meta.AddDirectory(directory)
	}

	suggestion := autodj.Suggest(autodj.BuildInput(a.prefs, a.meta, a.playlist, a.sessions, time.Now()))
	if suggestion == "" {
		fmt.Println("No track to suggest. Is the music directory empty, or is everything already queued?")
		return nil
	}
	fmt.Println(suggestion)
	return nil
}
