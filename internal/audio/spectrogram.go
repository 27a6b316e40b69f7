/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audio

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrogram computes a magnitude spectrogram of the mono mix of the buffer.
//
// The waveform is split into timeBuckets equal-length chunks, one per output
// column. Each chunk is Fourier-transformed; the upper (mirrored) half of the
// spectrum is discarded and the remaining magnitudes are summed into
// freqBands logarithmically spaced frequency ranges. The result is normalised
// globally to [0, 255] and gamma-corrected. Row 0 is the highest band, the
// bottom row the lowest, so time runs horizontally and bass sits at the
// bottom. Output is deterministic for identical input and parameters.
func Spectrogram(b *Buffer, timeBuckets, freqBands int, gamma float64) [][]uint8 {
	out := make([][]uint8, freqBands)
	for i := range out {
		out[i] = make([]uint8, timeBuckets)
	}

	mono := b.ToMono()
	if mono.NumFrames() == 0 || timeBuckets <= 0 || freqBands <= 0 {
		return out
	}
	samples := mono.Channel(0)
	chunkLen := len(samples) / timeBuckets
	if chunkLen < 2 {
		return out
	}

	splits := logSplitPoints(chunkLen, freqBands)
	fft := fourier.NewFFT(chunkLen)
	seq := make([]float64, chunkLen)

	power := make([][]float64, timeBuckets)
	maxValue := 0.0
	for bucket := 0; bucket < timeBuckets; bucket++ {
		chunk := samples[bucket*chunkLen : (bucket+1)*chunkLen]
		for i, sample := range chunk {
			seq[i] = float64(sample)
		}
		coeffs := fft.Coefficients(nil, seq)
		magnitudes := make([]float64, len(coeffs)/2)
		for i := range magnitudes {
			magnitudes[i] = math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}

		bands := make([]float64, freqBands)
		for band := 0; band < freqBands; band++ {
			lo, hi := splits[band], splits[band+1]
			if lo > len(magnitudes) {
				lo = len(magnitudes)
			}
			if hi > len(magnitudes) {
				hi = len(magnitudes)
			}
			for i := lo; i < hi; i++ {
				bands[band] += magnitudes[i]
			}
			if bands[band] > maxValue {
				maxValue = bands[band]
			}
		}
		power[bucket] = bands
	}

	if maxValue <= 0 {
		return out
	}
	for bucket := 0; bucket < timeBuckets; bucket++ {
		for band := 0; band < freqBands; band++ {
			normalised := power[bucket][band] / maxValue
			corrected := 255 * math.Pow(normalised, gamma)
			if corrected > 255 {
				corrected = 255
			}
			// Row 0 is the top of the image: the highest frequency band.
			out[freqBands-1-band][bucket] = uint8(corrected)
		}
	}
	return out
}

// logSplitPoints returns freqBands+1 boundaries into the spectrum,
// logarithmically spaced between bin 10 and chunkLen.
func logSplitPoints(chunkLen, freqBands int) []int {
	points := make([]int, freqBands+1)
	points[0] = 0
	logLo := 1.0 // 10^1
	logHi := math.Log10(float64(chunkLen))
	for i := 1; i <= freqBands; i++ {
		exp := logLo + (logHi-logLo)*float64(i-1)/float64(freqBands-1)
		points[i] = int(math.Pow(10, exp))
	}
	return points
}

// EncodePNG writes the spectrogram as an 8-bit grayscale PNG.
func EncodePNG(spectrogram [][]uint8, path string) error {
	height := len(spectrogram)
	if height == 0 {
		return fmt.Errorf("empty spectrogram")
	}
	width := len(spectrogram[0])
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:], spectrogram[y])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// CacheSpectrogram renders the spectrogram of the buffer into cacheDir and
// returns the path of the written image. The filename keeps the source file's
// base name plus a short random suffix to prevent collisions.
func CacheSpectrogram(b *Buffer, srcPath, cacheDir string, timeBuckets, freqBands int, gamma float64) (string, error) {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	name := base + uuid.NewString()[:8] + ".png"
	target := filepath.Join(cacheDir, name)

	spec := Spectrogram(b, timeBuckets, freqBands, gamma)
	if err := EncodePNG(spec, target); err != nil {
		return "", fmt.Errorf("write spectrogram image: %w", err)
	}
	return target, nil
}
