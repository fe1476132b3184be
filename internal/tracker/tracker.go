// Package tracker re-identifies a previously-selected source across
// successive scans by frequency-bin proximity, since a source's rank
// within ScanResult can change as other sources appear or disappear.
package tracker

import (
	"errors"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/config"
)

// ErrNotFound is returned when no entry of the current ScanResult lies
// within FreqThresholdBins of the previous target. Transient: the caller
// (MissionFSM) re-enters Scanning (spec.md §7).
var ErrNotFound = errors.New("tracker: source not found")

// Match finds the entry of result whose FreqBin is within
// cfg.FreqThresholdBins of prevFreqBin and returns its index within
// result and its (possibly drifted) frequency bin.
func Match(result acoustic.ScanResult, prevFreqBin uint16, cfg config.Config) (index int, newFreqBin uint16, err error) {
	best := -1
	bestDist := 0
	for i, s := range result {
		dist := int(s.FreqBin) - int(prevFreqBin)
		if dist < 0 {
			dist = -dist
		}
		if dist > cfg.FreqThresholdBins {
			continue
		}
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	if best == -1 {
		return 0, 0, ErrNotFound
	}

	return best, result[best].FreqBin, nil
}
