// Package spectral implements the per-scan FFT and peak-picking that
// turns four time-domain ComplexBuffers into a ranked ScanResult.
//
// Purpose: compute an in-place forward FFT on each mic's buffer, take the
// magnitude spectrum of one reference mic, and pick up to N_MAX bright
// narrow-band peaks in the configured band of interest. Grounded on
// gonum.org/v1/gonum/dsp/fourier's NewCmplxFFT/Coefficients call shape
// (see DESIGN.md).
package spectral

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/config"
)

// ReferenceMic is the mic whose magnitude spectrum drives peak-picking.
// Conventionally "left" per spec.md §4.2.
const ReferenceMic = acoustic.MicLeft

// Core computes FFTs and extracts ScanResults. It owns no state between
// scans other than the gonum FFT plan, which is safe to reuse across
// calls because it is sized once from config.FFTSize.
type Core struct {
	cfg config.Config
	fft *fourier.CmplxFFT
}

// New builds a Core for the given configuration.
func New(cfg config.Config) *Core {
	return &Core{cfg: cfg, fft: fourier.NewCmplxFFT(cfg.FFTSize)}
}

// Scan computes the forward FFT of every mic buffer in place, then
// peak-picks the reference mic's magnitude spectrum within
// [cfg.BinLow, cfg.BinHigh). buffers is indexed by acoustic.Mic and is
// mutated: each entry starts as a time-domain buffer and ends as the
// corresponding frequency-domain spectrum.
func (c *Core) Scan(buffers []acoustic.ComplexBuffer) acoustic.ScanResult {
	for i := range buffers {
		c.fft.Coefficients(buffers[i], buffers[i])
	}

	mag := acoustic.Magnitude(buffers[ReferenceMic])
	return pickPeaks(mag, c.cfg.BinLow, c.cfg.BinHigh, float32(c.cfg.AmplitudeThreshold), c.cfg.FreqThresholdBins, c.cfg.MaxSources)
}

// pickPeaks runs the deterministic single-pass peak-picking sweep of
// spec.md §4.2. sourceInit is kept sorted by ascending amplitude
// throughout the sweep (n <= nMax entries); the caller only sees the
// final ascending-FreqBin ordering.
func pickPeaks(mag acoustic.MagnitudeBuffer, binLow, binHigh int, amplitudeThreshold float32, freqThresholdBins, nMax int) acoustic.ScanResult {
	sourceInit := make([]acoustic.Source, 0, nMax)

	for b := binLow; b < binHigh && b < len(mag); b++ {
		a := float32(mag[b])
		if a <= amplitudeThreshold {
			continue
		}

		i, found := findNearDuplicate(sourceInit, uint16(b), freqThresholdBins)
		if found {
			// Near-duplicate case: replace only if strictly louder, then
			// bubble to restore ascending-amplitude order.
			if a > sourceInit[i].Amplitude {
				sourceInit[i] = acoustic.Source{FreqBin: uint16(b), Amplitude: a}
				bubbleUp(sourceInit, i)
			}
			continue
		}

		// Distinct case: find insertion rank k by amplitude.
		k := 0
		for k < len(sourceInit) && sourceInit[k].Amplitude < a {
			k++
		}

		switch {
		case len(sourceInit) < nMax:
			sourceInit = append(sourceInit, acoustic.Source{})
			copy(sourceInit[k+1:], sourceInit[k:len(sourceInit)-1])
			sourceInit[k] = acoustic.Source{FreqBin: uint16(b), Amplitude: a}
		case k == 0:
			// Would-be insertion point is below every existing entry's
			// amplitude and the table is full: the new peak is not
			// louder than anything kept, drop it.
		default:
			// Evict entry 0 (smallest amplitude), shift 1..k down one,
			// place the new source at k-1. This is the
			// PEAK_MODE_EXCHANGE-into-PEAK_MODE_SMALLER fallthrough
			// spec.md §9 calls out as intentional.
			copy(sourceInit[0:k-1], sourceInit[1:k])
			sourceInit[k-1] = acoustic.Source{FreqBin: uint16(b), Amplitude: a}
		}
	}

	sortByFreqBin(sourceInit)

	result := make(acoustic.ScanResult, len(sourceInit))
	copy(result, sourceInit)
	return result
}

// findNearDuplicate returns the lowest index i such that
// b - sourceInit[i].FreqBin <= freqThresholdBins (spec.md §4.2 step 1).
// The difference is signed, not absolute: since the sweep runs in
// ascending bin order, b is always >= every existing entry's FreqBin at
// the moment it is considered, so the plain subtraction equals the
// absolute distance and mirrors the spec's phrasing exactly.
func findNearDuplicate(sourceInit []acoustic.Source, b uint16, freqThresholdBins int) (int, bool) {
	for i := range sourceInit {
		if int(b)-int(sourceInit[i].FreqBin) <= freqThresholdBins {
			return i, true
		}
	}
	return 0, false
}

// bubbleUp restores ascending-amplitude order after entry i's amplitude
// increased in place.
func bubbleUp(sourceInit []acoustic.Source, i int) {
	for i+1 < len(sourceInit) && sourceInit[i].Amplitude > sourceInit[i+1].Amplitude {
		sourceInit[i], sourceInit[i+1] = sourceInit[i+1], sourceInit[i]
		i++
	}
}

// sortByFreqBin is a stable bubble sort, adequate given N_MAX is small
// (spec.md §4.2: "a bubble sort is adequate given N_MAX is small,
// typically <= 5").
func sortByFreqBin(s []acoustic.Source) {
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(s)-1-i; j++ {
			if s[j].FreqBin > s[j+1].FreqBin {
				s[j], s[j+1] = s[j+1], s[j]
			}
		}
	}
}
