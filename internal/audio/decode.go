/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/Ghostkeeper/LynDJ/internal/telemetry"
)

// ErrDecodeFailed indicates a file that could not be read as audio.
var ErrDecodeFailed = errors.New("audio file could not be decoded")

const streamBlockFrames = 4096

// Decode reads an audio file into a Buffer. The decoder is selected by file
// extension. Unreadable files return ErrDecodeFailed; the caller skips the
// track, this is never fatal.
func Decode(path string) (*Buffer, error) {
	streamer, format, err := open(path)
	if err != nil {
		telemetry.DecodeFailures.Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	defer streamer.Close()

	numChannels := format.NumChannels
	if numChannels > 2 {
		numChannels = 2
	}
	channels := make([][]int16, numChannels)

	block := make([][2]float64, streamBlockFrames)
	for {
		n, ok := streamer.Stream(block)
		for i := 0; i < n; i++ {
			if numChannels == 1 {
				channels[0] = append(channels[0], clampSample((block[i][0]+block[i][1])/2*32767))
			} else {
				channels[0] = append(channels[0], clampSample(block[i][0]*32767))
				channels[1] = append(channels[1], clampSample(block[i][1]*32767))
			}
		}
		if !ok {
			break
		}
	}

	return NewBuffer(int(format.SampleRate), channels), nil
}

// DecodedDuration reads the duration of an audio file without decoding the
// whole waveform. Returns a negative duration when the file is unreadable.
func DecodedDuration(path string) float64 {
	streamer, format, err := open(path)
	if err != nil {
		return -1
	}
	defer streamer.Close()
	return float64(streamer.Len()) / float64(format.SampleRate)
}

func open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg", ".opus":
		return vorbis.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}
