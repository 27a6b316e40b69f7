/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config covers process level configuration read from environment variables.
// User-facing tunables live in the preferences store instead.
type Config struct {
	Environment string
	DataDir     string // metadata database and preferences file
	CacheDir    string // generated spectrogram images
	MusicDir    string // default browse directory for the track library
	MetricsBind string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("LYNDJ_ENV", "development"),
		DataDir:     getEnv("LYNDJ_DATA_DIR", defaultDir("lyndj")),
		CacheDir:    getEnv("LYNDJ_CACHE_DIR", defaultDir(filepath.Join("lyndj", "cache"))),
		MusicDir:    getEnv("LYNDJ_MUSIC_DIR", ""),
		MetricsBind: getEnv("LYNDJ_METRICS_BIND", "127.0.0.1:9000"),
	}

	for _, dir := range []string{cfg.DataDir, filepath.Join(cfg.CacheDir, "fourier")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if cfg.MusicDir != "" {
		info, err := os.Stat(cfg.MusicDir)
		if err != nil {
			return nil, fmt.Errorf("music directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("music directory %s is not a directory", cfg.MusicDir)
		}
	}

	return cfg, nil
}

// DatabasePath is the location of the metadata cache database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "metadata.db")
}

// PreferencesPath is the location of the preferences file.
func (c *Config) PreferencesPath() string {
	return filepath.Join(c.DataDir, "preferences.json")
}

// FourierCacheDir is where generated spectrogram images are stored.
func (c *Config) FourierCacheDir() string {
	return filepath.Join(c.CacheDir, "fourier")
}

func defaultDir(suffix string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, suffix)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
