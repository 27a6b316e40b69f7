/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"math"
	"testing"
)

func sine(rate int, freq float64, amplitude float64, seconds float64) []int16 {
	samples := make([]int16, int(float64(rate)*seconds))
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samples
}

func TestSliceDuration(t *testing.T) {
	b := NewBuffer(44100, [][]int16{sine(44100, 440, 10000, 2.0)})

	tests := []struct {
		name     string
		start    float64
		end      float64
		expected float64
	}{
		{"middle", 0.5, 1.5, 1.0},
		{"clamped end", 1.0, 5.0, 1.0},
		{"clamped start", -10.0, 0.5, 0.5},
		{"negative relative to end", -0.5, 2.0, 0.5},
		{"inverted collapses to empty", 1.5, 0.5, 0.0},
		{"full range", 0, 2.0, 2.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := b.Slice(tc.start, tc.end).Duration()
			if math.Abs(got-tc.expected) > 1.0/44100 {
				t.Fatalf("Slice(%v, %v).Duration() = %v, expected %v", tc.start, tc.end, got, tc.expected)
			}
		})
	}
}

func TestSliceSharesRate(t *testing.T) {
	b := NewBuffer(48000, [][]int16{sine(48000, 440, 10000, 1.0)})
	s := b.Slice(0.25, 0.75)
	if s.FrameRate() != 48000 {
		t.Fatalf("slice frame rate = %d, expected 48000", s.FrameRate())
	}
	if s.NumChannels() != 1 {
		t.Fatalf("slice channels = %d, expected 1", s.NumChannels())
	}
}

func TestGainComposes(t *testing.T) {
	b := NewBuffer(44100, [][]int16{sine(44100, 220, 8000, 0.1)})
	composed := b.Gain(0.5).Gain(0.4)
	direct := b.Gain(0.2)
	for i := 0; i < b.NumFrames(); i++ {
		diff := int(composed.Channel(0)[i]) - int(direct.Channel(0)[i])
		if diff < -2 || diff > 2 {
			t.Fatalf("sample %d: composed %d vs direct %d", i, composed.Channel(0)[i], direct.Channel(0)[i])
		}
	}
}

func TestGainClampsInsteadOfWrapping(t *testing.T) {
	b := NewBuffer(44100, [][]int16{{30000, -30000, 100}})
	loud := b.Gain(10)
	if got := loud.Channel(0)[0]; got != math.MaxInt16 {
		t.Fatalf("positive overflow: got %d, expected %d", got, math.MaxInt16)
	}
	if got := loud.Channel(0)[1]; got != math.MinInt16 {
		t.Fatalf("negative overflow: got %d, expected %d", got, math.MinInt16)
	}
	if got := loud.Channel(0)[2]; got != 1000 {
		t.Fatalf("in-range sample: got %d, expected 1000", got)
	}
}

func TestGainDoesNotMutateOriginal(t *testing.T) {
	b := NewBuffer(44100, [][]int16{{1000, -1000}})
	b.Gain(0.5)
	if b.Channel(0)[0] != 1000 || b.Channel(0)[1] != -1000 {
		t.Fatalf("original buffer was mutated: %v", b.Channel(0))
	}
}

func TestDetectSilenceTrimsEdges(t *testing.T) {
	rate := 44100
	silent := make([]int16, rate/2) // 0.5s of silence
	loud := sine(rate, 440, 20000, 1.0)
	samples := append(append(append([]int16{}, silent...), loud...), silent...)
	b := NewBuffer(rate, [][]int16{samples})

	start, end := b.DetectSilence(-64)
	if start < 0.45 || start > 0.55 {
		t.Fatalf("start trim = %v, expected about 0.5", start)
	}
	if end < 1.45 || end > 1.55 {
		t.Fatalf("end trim = %v, expected about 1.5", end)
	}
}

func TestDetectSilenceAllSilent(t *testing.T) {
	b := NewBuffer(44100, [][]int16{make([]int16, 44100)})
	start, end := b.DetectSilence(-64)
	if start != 0 {
		t.Fatalf("start trim = %v, expected 0", start)
	}
	if math.Abs(end-b.Duration()) > 0.001 {
		t.Fatalf("end trim = %v, expected full duration %v", end, b.Duration())
	}
	if start > end {
		t.Fatalf("inverted range: start %v > end %v", start, end)
	}
}

func TestToMonoAverages(t *testing.T) {
	left := []int16{100, 200, -300}
	right := []int16{300, 0, -100}
	b := NewBuffer(44100, [][]int16{left, right})
	mono := b.ToMono()
	if mono.NumChannels() != 1 {
		t.Fatalf("mono channels = %d, expected 1", mono.NumChannels())
	}
	expected := []int16{200, 100, -200}
	for i, want := range expected {
		if got := mono.Channel(0)[i]; got != want {
			t.Fatalf("frame %d: got %d, expected %d", i, got, want)
		}
	}
}

func TestToMonoPassthroughForSingleChannel(t *testing.T) {
	b := NewBuffer(44100, [][]int16{{1, 2, 3}})
	if b.ToMono() != b {
		t.Fatal("mono buffer should be returned unchanged")
	}
}

func TestInterleave(t *testing.T) {
	b := NewBuffer(44100, [][]int16{{0x0102, -1}, {0x0304, 2}})
	got := b.Interleave()
	expected := []byte{0x02, 0x01, 0x04, 0x03, 0xff, 0xff, 0x02, 0x00}
	if len(got) != len(expected) {
		t.Fatalf("interleaved length = %d, expected %d", len(got), len(expected))
	}
	for i, want := range expected {
		if got[i] != want {
			t.Fatalf("byte %d: got %#x, expected %#x", i, got[i], want)
		}
	}
}

func TestNewBufferTruncatesToShortestChannel(t *testing.T) {
	b := NewBuffer(44100, [][]int16{make([]int16, 10), make([]int16, 7)})
	if b.NumFrames() != 7 {
		t.Fatalf("frames = %d, expected 7", b.NumFrames())
	}
}
