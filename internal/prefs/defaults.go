/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package prefs

// RegisterDefaults installs the preference keys consumed by the playback core.
func RegisterDefaults(s *Store) {
	s.Add("player/fadeout", 2.0)          // Fade-out duration in seconds when stopping.
	s.Add("player/silence", 2.0)          // Silence between songs, in seconds.
	s.Add("player/buffer_size", 10)       // Chunk size sent to the audio device, in ms.
	s.Add("player/mono", false)           // Whether to downmix output to mono.
	s.Add("player/fourier_samples", 2048) // Horizontal resolution of spectrogram images.
	s.Add("player/fourier_channels", 256) // Vertical resolution of spectrogram images.
	s.Add("player/fourier_gamma", 1.5)    // Gamma correction factor for spectrogram images.

	s.Add("playlist/playlist", []string{})
	s.Add("playlist/slow_bpm", 100.0)
	s.Add("playlist/medium_bpm", 150.0)
	s.Add("playlist/fast_bpm", 220.0)

	s.Add("directory/browse_path", "")

	s.Add("autodj/enabled", false)
	s.Add("autodj/age_variation", 1.0)
	s.Add("autodj/style_variation", 1.0)
	s.Add("autodj/energy_variation", 1.0)
	s.Add("autodj/bpm_cadence", "120,160,200,160")
	s.Add("autodj/bpm_precision", 0.05)
	s.Add("autodj/energy", 50)
	s.Add("autodj/energy_slider_power", 0.5)
	s.Add("autodj/last_played_influence", 1.0)
}
