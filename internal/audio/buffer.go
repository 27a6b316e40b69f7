/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audio holds decoded audio segments and the analysis that runs on
// them: loudness, silence detection, spectrograms and tempo estimation.
package audio

import (
	"math"
)

// silenceSliceDuration is the granularity of the silence scan.
const silenceSliceDuration = 0.01

// Buffer is an immutable decoded audio segment: 16-bit PCM, one sample array
// per channel, all channels the same length. Every transform returns a new
// Buffer; the sample arrays of an existing Buffer are never modified.
type Buffer struct {
	rate     int
	channels [][]int16
}

// NewBuffer constructs a buffer from per-channel sample arrays. Channels are
// truncated to the shortest channel so that all channels share one length.
func NewBuffer(rate int, channels [][]int16) *Buffer {
	if rate <= 0 {
		rate = 44100
	}
	frames := -1
	for _, ch := range channels {
		if frames < 0 || len(ch) < frames {
			frames = len(ch)
		}
	}
	if frames < 0 {
		frames = 0
	}
	trimmed := make([][]int16, len(channels))
	for i, ch := range channels {
		trimmed[i] = ch[:frames]
	}
	return &Buffer{rate: rate, channels: trimmed}
}

// FrameRate is the number of frames per second, in Hz.
func (b *Buffer) FrameRate() int { return b.rate }

// NumChannels is the number of audio channels.
func (b *Buffer) NumChannels() int { return len(b.channels) }

// NumFrames is the number of samples per channel.
func (b *Buffer) NumFrames() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Channel returns the sample array for one channel. The result must not be
// modified.
func (b *Buffer) Channel(i int) []int16 { return b.channels[i] }

// Duration is the length of the segment in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.NumFrames()) / float64(b.rate)
}

// Slice returns the part of the buffer between startSec and endSec. Both
// bounds are clamped to [0, duration]; negative values are relative to the
// end of the buffer. The slice shares sample storage with the original.
func (b *Buffer) Slice(startSec, endSec float64) *Buffer {
	start := b.clampFrame(startSec)
	end := b.clampFrame(endSec)
	if end < start {
		end = start
	}
	channels := make([][]int16, len(b.channels))
	for i, ch := range b.channels {
		channels[i] = ch[start:end]
	}
	return &Buffer{rate: b.rate, channels: channels}
}

func (b *Buffer) clampFrame(sec float64) int {
	if sec < 0 {
		sec += b.Duration()
	}
	frame := int(math.Round(sec * float64(b.rate)))
	if frame < 0 {
		frame = 0
	}
	if frames := b.NumFrames(); frame > frames {
		frame = frames
	}
	return frame
}

// RMS is the root-mean-square loudness over all channels, in sample units.
func (b *Buffer) RMS() float64 {
	total := 0.0
	count := 0
	for _, ch := range b.channels {
		for _, sample := range ch {
			total += float64(sample) * float64(sample)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(total / float64(count))
}

// DetectSilence scans for leading and trailing silence and returns the
// timestamps of the first and last 10ms slice whose loudness exceeds
// thresholdDB (relative to full scale). A buffer that is silent throughout
// returns (0, duration): the whole buffer is treated as non-silent rather
// than producing an inverted range.
func (b *Buffer) DetectSilence(thresholdDB float64) (startTrim, endTrim float64) {
	duration := b.Duration()
	numSlices := int(duration / silenceSliceDuration)

	firstLoud := -1
	for i := 0; i < numSlices; i++ {
		t := float64(i) * silenceSliceDuration
		if db(b.Slice(t, t+silenceSliceDuration).RMS()) > thresholdDB {
			firstLoud = i
			break
		}
	}
	if firstLoud < 0 {
		return 0, duration
	}
	lastLoud := firstLoud
	for i := numSlices - 1; i >= firstLoud; i-- {
		t := float64(i) * silenceSliceDuration
		if db(b.Slice(t, t+silenceSliceDuration).RMS()) > thresholdDB {
			lastLoud = i
			break
		}
	}
	return float64(firstLoud) * silenceSliceDuration, float64(lastLoud+1) * silenceSliceDuration
}

func db(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/32768.0)
}

// ToMono mixes all channels down to one by averaging per frame.
func (b *Buffer) ToMono() *Buffer {
	if len(b.channels) <= 1 {
		return b
	}
	frames := b.NumFrames()
	mono := make([]int16, frames)
	numChannels := len(b.channels)
	for frame := 0; frame < frames; frame++ {
		sum := 0
		for _, ch := range b.channels {
			sum += int(ch[frame])
		}
		mono[frame] = int16(sum / numChannels)
	}
	return &Buffer{rate: b.rate, channels: [][]int16{mono}}
}

// Gain multiplies all samples by factor. Results are clamped to the 16-bit
// sample range so that loud input can never wrap around.
func (b *Buffer) Gain(factor float64) *Buffer {
	channels := make([][]int16, len(b.channels))
	for i, ch := range b.channels {
		scaled := make([]int16, len(ch))
		for j, sample := range ch {
			scaled[j] = clampSample(float64(sample) * factor)
		}
		channels[i] = scaled
	}
	return &Buffer{rate: b.rate, channels: channels}
}

func clampSample(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// Interleave renders the buffer as interleaved signed 16-bit little-endian
// PCM, the wire format of the output device.
func (b *Buffer) Interleave() []byte {
	frames := b.NumFrames()
	numChannels := len(b.channels)
	out := make([]byte, frames*numChannels*2)
	pos := 0
	for frame := 0; frame < frames; frame++ {
		for _, ch := range b.channels {
			u := uint16(ch[frame])
			out[pos] = byte(u)
			out[pos+1] = byte(u >> 8)
			pos += 2
		}
	}
	return out
}
