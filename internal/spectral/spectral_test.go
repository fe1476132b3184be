package spectral

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
)

func mkMag(vals map[int]float32, n int) acoustic.MagnitudeBuffer {
	mag := make(acoustic.MagnitudeBuffer, n)
	for b, v := range vals {
		mag[b] = float64(v)
	}
	return mag
}

func TestPickPeaksEmptyWhenAllBelowThreshold(t *testing.T) {
	mag := mkMag(map[int]float32{5: 1, 10: 2}, 32)
	result := pickPeaks(mag, 0, 32, 5, 2, 5)
	assert.Empty(t, result)
}

func TestPickPeaksSortedByFreqBin(t *testing.T) {
	mag := mkMag(map[int]float32{20: 10, 5: 30, 12: 20}, 32)
	result := pickPeaks(mag, 0, 32, 1, 1, 5)
	assert.Len(t, result, 3)
	for i := 1; i < len(result); i++ {
		assert.Less(t, result[i-1].FreqBin, result[i].FreqBin)
	}
}

func TestPickPeaksNearDuplicateKeepsLouder(t *testing.T) {
	// Bins 10 and 11 are within freqThresholdBins=2 of each other; 11 is
	// louder and should win, with 10 dropped entirely.
	mag := mkMag(map[int]float32{10: 5, 11: 9}, 32)
	result := pickPeaks(mag, 0, 32, 1, 2, 5)
	assert.Len(t, result, 1)
	assert.Equal(t, uint16(11), result[0].FreqBin)
	assert.Equal(t, float32(9), result[0].Amplitude)
}

func TestPickPeaksNearDuplicateIgnoresQuieterLater(t *testing.T) {
	// 10 is louder and arrives first; 11 is a near-duplicate but quieter,
	// so it must not replace 10.
	mag := mkMag(map[int]float32{10: 9, 11: 5}, 32)
	result := pickPeaks(mag, 0, 32, 1, 2, 5)
	assert.Len(t, result, 1)
	assert.Equal(t, uint16(10), result[0].FreqBin)
	assert.Equal(t, float32(9), result[0].Amplitude)
}

func TestPickPeaksEvictsQuietestWhenFull(t *testing.T) {
	// nMax=2; three distinct (far apart) peaks arrive ascending in bin,
	// with amplitudes 5, 20, 10. The quietest (5) should be evicted when
	// the third, louder-than-it peak arrives.
	mag := mkMag(map[int]float32{0: 5, 10: 20, 20: 10}, 32)
	result := pickPeaks(mag, 0, 32, 1, 1, 2)
	assert.Len(t, result, 2)

	bins := make([]int, len(result))
	for i, s := range result {
		bins[i] = int(s.FreqBin)
	}
	sort.Ints(bins)
	assert.Equal(t, []int{10, 20}, bins)
}

func TestPickPeaksDropsQuieterThanFullTable(t *testing.T) {
	// nMax=2, table fills with loud peaks at bins 0 and 10 (amplitude 20
	// each, 10 bins apart so neither is a near-duplicate); a later, quieter
	// peak at bin 20 must be dropped outright, not evict anything.
	mag := mkMag(map[int]float32{0: 20, 10: 20, 20: 3}, 32)
	result := pickPeaks(mag, 0, 32, 1, 1, 2)
	assert.Len(t, result, 2)
	for _, s := range result {
		assert.NotEqual(t, uint16(20), s.FreqBin)
	}
}

func TestPickPeaksRespectsMaxSources(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(8, 64).Draw(t, "n")
		nMax := rapid.IntRange(1, 6).Draw(t, "nMax")
		vals := make(map[int]float32)
		count := rapid.IntRange(0, n-1).Draw(t, "count")
		for i := 0; i < count; i++ {
			b := rapid.IntRange(0, n-1).Draw(t, "bin")
			a := rapid.Float32Range(0.1, 1000).Draw(t, "amp")
			vals[b] = a
		}
		mag := mkMag(vals, n)
		result := pickPeaks(mag, 0, n, 0, 1, nMax)
		assert.LessOrEqual(t, len(result), nMax)

		for i := 1; i < len(result); i++ {
			assert.Less(t, result[i-1].FreqBin, result[i].FreqBin)
		}
	})
}
