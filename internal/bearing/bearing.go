// Package bearing turns the phase relationship between mic pairs at a
// single FFT bin into a smoothed bearing angle, degrees in [-180, +180],
// 0 = forward, positive = clockwise/right.
//
// The phase-difference-to-angle shape (clamp a per-pair angle, then
// resolve two pair angles into a full-plane bearing) follows the general
// monopulse idiom in other_examples/rjboer-GoSDR's internal/dsp/monopulse.go
// (phase correlation clamped and deadbanded into an angle); the specific
// four-quadrant resolution formulas are spec.md §4.3's own geometry for a
// cross-shaped 4-mic array and have no monopulse precedent to borrow.
package bearing

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/config"
)

// ErrPhaseOutOfRange is returned when a phase reading is not physically
// plausible for the configured mic geometry at the highest admissible
// frequency. Transient: the caller should simply retry on the next scan
// (spec.md §7).
var ErrPhaseOutOfRange = errors.New("bearing: phase out of range")

// Estimator smooths bearing angles per source rank across scans with an
// EMA. It is exclusively owned by the analysis goroutine (spec.md §5) —
// no synchronization is needed.
type Estimator struct {
	cfg config.Config

	initialized []bool
	ema         []float64
}

// New builds an Estimator sized for up to cfg.MaxSources simultaneously
// tracked source ranks.
func New(cfg config.Config) *Estimator {
	return &Estimator{
		cfg:         cfg,
		initialized: make([]bool, cfg.MaxSources),
		ema:         make([]float64, cfg.MaxSources),
	}
}

// Estimate computes the smoothed bearing for the source at rank
// sourceIndex (its position within the current ScanResult) whose
// frequency bin is freqBin, given the four frequency-domain buffers
// indexed by acoustic.Mic.
func (e *Estimator) Estimate(buffers []acoustic.ComplexBuffer, freqBin uint16, sourceIndex int) (int16, error) {
	phiR, err := phaseAt(buffers[acoustic.MicRight], freqBin)
	if err != nil {
		return 0, err
	}
	phiL, err := phaseAt(buffers[acoustic.MicLeft], freqBin)
	if err != nil {
		return 0, err
	}
	phiB, err := phaseAt(buffers[acoustic.MicBack], freqBin)
	if err != nil {
		return 0, err
	}
	phiF, err := phaseAt(buffers[acoustic.MicFront], freqBin)
	if err != nil {
		return 0, err
	}

	dPhiLR := wrapDeg((phiL - phiR) * 180 / math.Pi)
	dPhiBF := wrapDeg((phiB - phiF) * 180 / math.Pi)

	if math.Abs(dPhiLR) > e.cfg.PhaseDiffLimitDeg || math.Abs(dPhiBF) > e.cfg.PhaseDiffLimitDeg {
		return 0, ErrPhaseOutOfRange
	}

	fHz := acoustic.BinToHz(freqBin, e.cfg.SampleRateHz, e.cfg.FFTSize)

	alphaLR := phaseToAngle(dPhiLR, fHz, e.cfg.MicSpacingM, e.cfg.SpeedOfSoundMps)
	alphaBF := phaseToAngle(dPhiBF, fHz, e.cfg.MicSpacingM, e.cfg.SpeedOfSoundMps)

	angle := resolveQuadrant(alphaLR, alphaBF)

	smoothed := e.smooth(sourceIndex, angle)

	return int16(math.Round(smoothed)), nil
}

// phaseAt returns atan2(imag, real) at bin, which is always in
// [-pi, +pi] by construction of math.Atan2 — the spec.md §4.3 range
// check on individual phases is therefore automatically satisfied and is
// not a distinct runtime condition to test for.
func phaseAt(buf acoustic.ComplexBuffer, bin uint16) (float64, error) {
	if int(bin) < 0 || int(bin) >= len(buf) {
		return 0, ErrPhaseOutOfRange
	}
	return cmplx.Phase(complex128(buf[bin])), nil
}

// wrapDeg maps a raw degree difference into [-180, +180].
func wrapDeg(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// phaseToAngle converts a pair phase difference (degrees) into a clamped
// per-pair angle (degrees), spec.md §4.3 step 3.
func phaseToAngle(dPhiDeg, fHz, spacingM, speedOfSoundMps float64) float64 {
	alpha := dPhiDeg * speedOfSoundMps * 90 / (fHz * spacingM * 360)
	return clamp(alpha, -90, 90)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveQuadrant combines the LR and BF pair angles into a full-plane
// bearing per spec.md §4.3 step 4.
func resolveQuadrant(alphaLR, alphaBF float64) float64 {
	switch {
	case alphaLR >= 0 && alphaBF >= 0:
		return (alphaLR - alphaBF + 90) / 2
	case alphaLR >= 0 && alphaBF < 0:
		return (-alphaLR - alphaBF + 270) / 2
	case alphaLR < 0 && alphaBF >= 0:
		return (alphaLR + alphaBF - 90) / 2
	default:
		return (-alphaLR + alphaBF - 270) / 2
	}
}

// smooth applies the EMA of spec.md §4.3 step 5, including the ±180 wrap
// straddle reset. This intentionally does NOT compute a circular mean —
// see spec.md §9 — and so incurs a documented one-sample lag at the
// discontinuity.
func (e *Estimator) smooth(sourceIndex int, angle float64) float64 {
	if sourceIndex >= len(e.ema) {
		// Rank beyond the tracked table (should not happen since
		// sourceIndex always comes from a ScanResult bounded by
		// cfg.MaxSources); treat as a fresh sample defensively.
		return angle
	}

	if !e.initialized[sourceIndex] {
		e.ema[sourceIndex] = angle
		e.initialized[sourceIndex] = true
		return angle
	}

	prev := e.ema[sourceIndex]
	straddles := (prev < -90 && angle > 90) || (prev > 90 && angle < -90)
	if straddles {
		e.ema[sourceIndex] = angle
		return angle
	}

	next := e.cfg.EMAWeight*angle + (1-e.cfg.EMAWeight)*prev
	e.ema[sourceIndex] = next
	return next
}
