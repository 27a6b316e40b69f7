/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	tempoFrameSize = 1024
	tempoHopSize   = 512
	tempoMinBPM    = 60
	tempoMaxBPM    = 200
)

// TempoEstimate guesses the tempo of the buffer in beats per minute.
//
// It computes a spectral-flux onset curve over short overlapping frames and
// autocorrelates it across lags corresponding to 60 to 200 BPM, picking the
// strongest. The estimate is approximate and may report half or double the
// true tempo; an authoritative stored BPM always takes precedence over this
// guess. Returns -1 when the buffer is too short to analyse.
func (b *Buffer) TempoEstimate() float64 {
	mono := b.ToMono()
	samples := mono.Channel(0)
	numFrames := (len(samples) - tempoFrameSize) / tempoHopSize
	if numFrames < 4 {
		return -1
	}

	flux := onsetCurve(samples, numFrames)

	// Onset frames arrive every hop. Convert the BPM search range to a lag
	// range in onset frames.
	frameRate := float64(mono.FrameRate()) / tempoHopSize
	minLag := int(frameRate * 60 / tempoMaxBPM)
	maxLag := int(frameRate * 60 / tempoMinBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(flux) {
		maxLag = len(flux) - 1
	}
	if maxLag < minLag {
		return -1
	}

	bestLag := minLag
	bestScore := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		score := 0.0
		for i := 0; i+lag < len(flux); i++ {
			score += flux[i] * flux[i+lag]
		}
		score /= float64(len(flux) - lag)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	return frameRate * 60 / float64(bestLag)
}

// onsetCurve measures the positive change in spectral magnitude between
// consecutive frames, which spikes on percussive onsets.
func onsetCurve(samples []int16, numFrames int) []float64 {
	fft := fourier.NewFFT(tempoFrameSize)
	seq := make([]float64, tempoFrameSize)
	prev := make([]float64, tempoFrameSize/2)
	cur := make([]float64, tempoFrameSize/2)

	flux := make([]float64, numFrames)
	for frame := 0; frame < numFrames; frame++ {
		offset := frame * tempoHopSize
		for i := 0; i < tempoFrameSize; i++ {
			// Hann window to soften frame boundaries.
			w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(tempoFrameSize-1)))
			seq[i] = w * float64(samples[offset+i])
		}
		coeffs := fft.Coefficients(nil, seq)
		sum := 0.0
		for i := range cur {
			cur[i] = math.Hypot(real(coeffs[i]), imag(coeffs[i]))
			if diff := cur[i] - prev[i]; diff > 0 {
				sum += diff
			}
		}
		flux[frame] = sum
		prev, cur = cur, prev
	}

	// Remove the mean so the autocorrelation is not dominated by the offset.
	mean := 0.0
	for _, v := range flux {
		mean += v
	}
	mean /= float64(len(flux))
	for i := range flux {
		flux[i] -= mean
	}
	return flux
}
