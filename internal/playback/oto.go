/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// otoSink streams interleaved S16LE chunks to the system audio device.
//
// The oto context can only be created once per process and its format is
// fixed, so the context is opened lazily on the first chunk and later chunks
// in a different format are rejected. Chunks travel through an io.Pipe that
// the oto player drains at device pace, which gives Write its bounded-latency
// blocking behaviour.
type otoSink struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	pipe   *io.PipeWriter
	format Format
	logger zerolog.Logger
}

// NewDeviceSink returns a sink writing to the default audio output device.
func NewDeviceSink(logger zerolog.Logger) Sink {
	return &otoSink{logger: logger.With().Str("component", "device").Logger()}
}

func (s *otoSink) Write(format Format, chunk []byte) error {
	s.mu.Lock()
	if s.ctx == nil {
		if err := s.open(format); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("open audio device: %w", err)
		}
	}
	if format != s.format {
		s.mu.Unlock()
		return fmt.Errorf("device is open at %dHz/%dch, cannot switch to %dHz/%dch",
			s.format.Rate, s.format.Channels, format.Rate, format.Channels)
	}
	pipe := s.pipe
	s.mu.Unlock()

	_, err := pipe.Write(chunk)
	return err
}

func (s *otoSink) open(format Format) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.Rate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	<-ready

	reader, writer := io.Pipe()
	player := ctx.NewPlayer(reader)
	player.Play()

	s.ctx = ctx
	s.player = player
	s.pipe = writer
	s.format = format
	s.logger.Info().Int("rate", format.Rate).Int("channels", format.Channels).Msg("audio device opened")
	return nil
}

func (s *otoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	_ = s.pipe.Close()
	err := s.player.Close()
	s.player = nil
	return err
}
