// Package acoustic holds the data model shared by the audio front end,
// the spectral core, and the bearing estimator: PCM frames, per-mic
// complex buffers, magnitude spectra, and the ranked source list a scan
// produces.
package acoustic

import "math"

// Mic indexes the four microphones in PCM interleave order: R, L, B, F.
type Mic int

const (
	MicRight Mic = iota
	MicLeft
	MicBack
	MicFront
	MicCount
)

// PcmFrame is one audio callback's worth of interleaved 16-bit samples,
// four channels wide. It is ephemeral: consumed fully by AudioFront.OnPCM
// before the callback returns.
type PcmFrame struct {
	Samples []int16 // len is a multiple of MicCount, interleaved R,L,B,F.
}

// ComplexBuffer is one mic's FFT-sized sample buffer. Before a forward
// FFT it holds time-domain samples (imaginary part zero); after, it holds
// the frequency-domain spectrum. It is replaced in place by each new
// scan, never appended to.
type ComplexBuffer []complex128

// NewComplexBuffer allocates a zeroed buffer of the given FFT size.
func NewComplexBuffer(fftSize int) ComplexBuffer {
	return make(ComplexBuffer, fftSize)
}

// MagnitudeBuffer holds FFTSize non-negative magnitudes derived from one
// mic's frequency-domain ComplexBuffer.
type MagnitudeBuffer []float64

// Magnitude computes |c| for every bin of a frequency-domain buffer.
func Magnitude(c ComplexBuffer) MagnitudeBuffer {
	m := make(MagnitudeBuffer, len(c))
	for i, v := range c {
		m[i] = math.Hypot(real(v), imag(v))
	}
	return m
}

// Source is one detected monofrequency emitter: an FFT bin index (not
// Hz — see BinToHz) and its magnitude at that bin.
type Source struct {
	FreqBin   uint16
	Amplitude float32
}

// ScanResult is the ranked, frequency-sorted list a single scan produces.
// Invariants (spec.md §3, enforced by SpectralCore, never violated by
// construction elsewhere):
//
//   - len(ScanResult) <= N_MAX
//   - sorted by ascending FreqBin
//   - no two entries within FreqThresholdBins of each other
//   - every Amplitude >= AmplitudeThreshold
type ScanResult []Source

// BinToHz converts an FFT bin index to Hz given the sample rate and FFT
// size. This is the single calibration spec.md §9 asks the implementer
// to fix: bins are plain absolute FFT bin indices (the scanned band is a
// sub-range of the lower half of the spectrum; there is no additional
// additive offset beyond the one affine map below), so the map is just
// the bin width times the bin index.
func BinToHz(bin uint16, sampleRateHz, fftSize int) float64 {
	binWidth := float64(sampleRateHz) / float64(fftSize)
	return float64(bin) * binWidth
}

// HzToBin is BinToHz's inverse, rounded to the nearest bin. Round-trips
// with BinToHz within ±1 bin worth of Hz for any h inside the scanned
// band, per spec.md §8.
func HzToBin(hz float64, sampleRateHz, fftSize int) uint16 {
	binWidth := float64(sampleRateHz) / float64(fftSize)
	return uint16(math.Round(hz / binWidth))
}
