/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package meta caches metadata about the music files on this computer.
//
// The in-memory map is the single source of truth; it is persisted to an
// sqlite database after a short debounce so rapid edits coalesce into one
// write. A subset of fields is also written back into the audio file's own
// tags.
package meta

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ghostkeeper/LynDJ/internal/audio"
	"github.com/Ghostkeeper/LynDJ/internal/events"
)

// storeDelay coalesces rapid metadata changes into a single database write.
const storeDelay = 250 * time.Millisecond

// Entry is all metadata known about one music file. Numeric fields use -1
// for "unknown"; last_played -1 means never played.
type Entry struct {
	Path            string  `gorm:"primaryKey"`
	Title           string
	Author          string
	Comment         string
	Duration        float64
	BPM             float64 `gorm:"column:bpm"`
	LastPlayed      float64 `gorm:"column:last_played"`
	Age             string
	Style           string
	Energy          string
	Fourier         string
	AutodjExclude   bool   `gorm:"column:autodj_exclude"`
	VolumeWaypoints string `gorm:"column:volume_waypoints"`
	BassWaypoints   string `gorm:"column:bass_waypoints"`
	MidsWaypoints   string `gorm:"column:mids_waypoints"`
	TrebleWaypoints string `gorm:"column:treble_waypoints"`
	CacheTime       float64 `gorm:"column:cachetime"`
	CutStart        float64 `gorm:"column:cut_start"`
	CutEnd          float64 `gorm:"column:cut_end"`
}

// TableName keeps the historical table name.
func (Entry) TableName() string { return "metadata" }

// Store holds the metadata of all known music files.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	db         *gorm.DB
	storeTimer *time.Timer
	bus        *events.Bus
	logger     zerolog.Logger
}

// Open loads the metadata database at dbPath, creating it when absent.
func Open(dbPath string, bus *events.Bus, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}

	var stored []Entry
	if err := db.Find(&stored).Error; err != nil {
		return nil, err
	}
	entries := make(map[string]*Entry, len(stored))
	for i := range stored {
		entries[stored[i].Path] = &stored[i]
	}

	s := &Store{
		entries: entries,
		db:      db,
		bus:     bus,
		logger:  logger.With().Str("component", "meta").Logger(),
	}
	s.logger.Debug().Int("entries", len(entries)).Msg("metadata loaded")
	return s, nil
}

// IsMusicFile reports whether the file is an audio file this player reads.
func IsMusicFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac", ".opus", ".ogg", ".wav":
		return true
	}
	return false
}

// Has reports whether any metadata is known about the file.
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[path]
	return ok
}

// Entry returns a copy of the metadata for a file, reading it from the file's
// tags first if it is absent or stale.
func (s *Store) Entry(path string) Entry {
	s.refresh(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.entries[path]
}

// Get returns one metadata field for a file, reading from the file's tags
// first if the entry is absent or stale.
func (s *Store) Get(path, field string) any {
	entry := s.Entry(path)
	switch field {
	case "path":
		return entry.Path
	case "title":
		return entry.Title
	case "author":
		return entry.Author
	case "comment":
		return entry.Comment
	case "duration":
		return entry.Duration
	case "bpm":
		return entry.BPM
	case "last_played":
		return entry.LastPlayed
	case "age":
		return entry.Age
	case "style":
		return entry.Style
	case "energy":
		return entry.Energy
	case "fourier":
		return entry.Fourier
	case "autodj_exclude":
		return entry.AutodjExclude
	case "volume_waypoints":
		return entry.VolumeWaypoints
	case "bass_waypoints":
		return entry.BassWaypoints
	case "mids_waypoints":
		return entry.MidsWaypoints
	case "treble_waypoints":
		return entry.TrebleWaypoints
	case "cachetime":
		return entry.CacheTime
	case "cut_start":
		return entry.CutStart
	case "cut_end":
		return entry.CutEnd
	}
	s.logger.Error().Str("field", field).Msg("unknown metadata field requested")
	return nil
}

// Change updates one metadata field. Title, author, comment and bpm are also
// written into the file's own tags; if that write fails the change is
// discarded so memory never disagrees with the file. A debounced database
// store is scheduled.
func (s *Store) Change(path, field string, value any) {
	s.logger.Info().Str("path", path).Str("field", field).Interface("value", value).Msg("changing metadata")
	switch field {
	case "title", "author", "comment", "bpm":
		if err := writeTag(path, field, value); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("unable to save metadata into the file")
			return
		}
	}

	s.refresh(path)
	s.mu.Lock()
	entry := s.entries[path]
	switch field {
	case "title":
		entry.Title = asString(value)
	case "author":
		entry.Author = asString(value)
	case "comment":
		entry.Comment = asString(value)
	case "duration":
		entry.Duration = asFloat(value)
	case "bpm":
		entry.BPM = asFloat(value)
	case "last_played":
		entry.LastPlayed = asFloat(value)
	case "age":
		entry.Age = asString(value)
	case "style":
		entry.Style = asString(value)
	case "energy":
		entry.Energy = asString(value)
	case "fourier":
		entry.Fourier = asString(value)
	case "autodj_exclude":
		entry.AutodjExclude = value == true
	case "volume_waypoints":
		entry.VolumeWaypoints = asString(value)
	case "bass_waypoints":
		entry.BassWaypoints = asString(value)
	case "mids_waypoints":
		entry.MidsWaypoints = asString(value)
	case "treble_waypoints":
		entry.TrebleWaypoints = asString(value)
	case "cut_start":
		entry.CutStart = asFloat(value)
	case "cut_end":
		entry.CutEnd = asFloat(value)
	default:
		s.mu.Unlock()
		s.logger.Error().Str("field", field).Msg("unknown metadata field changed")
		return
	}
	s.scheduleStoreLocked()
	s.mu.Unlock()

	s.bus.Publish(events.EventMetadataChanged, events.Payload{"path": path, "field": field})
}

// AddDirectory reads the metadata of every music file directly inside the
// directory (not its subdirectories).
func (s *Store) AddDirectory(dir string) {
	listing, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn().Err(err).Str("directory", dir).Msg("unable to list music directory")
		return
	}
	for _, file := range listing {
		path := filepath.Join(dir, file.Name())
		if IsMusicFile(path) {
			s.refresh(path)
		}
	}
}

// Save writes all metadata to the database immediately. Also called from the
// debounce timer; calling it at shutdown catches changes the timer missed.
func (s *Store) Save() error {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, *entry)
	}
	s.mu.RUnlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			if err := tx.Save(&entries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) scheduleStoreLocked() {
	if s.storeTimer == nil {
		s.storeTimer = time.AfterFunc(storeDelay, func() {
			if err := s.Save(); err != nil {
				// Retried on the next change's debounce cycle.
				s.logger.Error().Err(err).Msg("storing metadata failed")
			}
		})
	} else {
		s.storeTimer.Reset(storeDelay)
	}
}

// refresh makes sure the entry for a file exists and is at least as new as
// the file itself. Fields the file's tags cannot hold survive a refresh.
func (s *Store) refresh(path string) {
	info, err := os.Stat(path)
	mtime := 0.0
	if err == nil {
		mtime = float64(info.ModTime().Unix())
	}

	s.mu.RLock()
	existing, ok := s.entries[path]
	if ok && existing.CacheTime >= mtime {
		s.mu.RUnlock()
		return
	}
	var keep Entry
	if ok {
		keep = *existing
	} else {
		keep = Entry{LastPlayed: -1, CutStart: -1, CutEnd: -1}
	}
	s.mu.RUnlock()

	s.logger.Debug().Str("path", path).Msg("updating metadata from file")
	entry := readTags(path, s.logger)
	entry.LastPlayed = keep.LastPlayed
	entry.AutodjExclude = keep.AutodjExclude
	entry.Age = keep.Age
	entry.Style = keep.Style
	entry.Energy = keep.Energy
	entry.VolumeWaypoints = keep.VolumeWaypoints
	entry.BassWaypoints = keep.BassWaypoints
	entry.MidsWaypoints = keep.MidsWaypoints
	entry.TrebleWaypoints = keep.TrebleWaypoints
	entry.CutStart = keep.CutStart
	entry.CutEnd = keep.CutEnd
	entry.CacheTime = mtime

	s.mu.Lock()
	s.entries[path] = &entry
	s.scheduleStoreLocked()
	s.mu.Unlock()
}

// readTags reads title, author, comment, bpm and duration from the file.
// Unreadable tags fall back to a filename-derived title and empty or -1
// values; the track stays usable.
func readTags(path string, logger zerolog.Logger) Entry {
	entry := Entry{
		Path:     path,
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		BPM:      -1,
		Duration: -1,
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("unable to read metadata from file")
		return entry
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("unable to parse tags")
		return entry
	}

	if m.Title() != "" {
		entry.Title = m.Title()
	}
	entry.Author = m.Artist()
	entry.Comment = m.Comment()
	entry.BPM = rawBPM(m)
	entry.Duration = audio.DecodedDuration(path)
	return entry
}

func rawBPM(m tag.Metadata) float64 {
	for _, key := range []string{"TBPM", "BPM", "bpm"} {
		if raw, ok := m.Raw()[key]; ok {
			if bpm, err := strconv.ParseFloat(strings.TrimSpace(asString(raw)), 64); err == nil {
				return bpm
			}
		}
	}
	return -1
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return -1
}
