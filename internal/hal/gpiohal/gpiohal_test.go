package gpiohal

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CoVoCre/penguin-mother/internal/hal"
)

// fakeLine is an in-memory gpioLine for exercising the threshold and
// timing logic above the real gpiocdev calls, mirroring the teacher's
// mockGPIODLine test double for PTT lines.
type fakeLine struct {
	mu       sync.Mutex
	value    int
	valueErr error
	closed   bool
}

func (f *fakeLine) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
	return nil
}

func (f *fakeLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.valueErr != nil {
		return 0, f.valueErr
	}
	return f.value, nil
}

func (f *fakeLine) Close() error {
	f.closed = true
	return nil
}

func (f *fakeLine) set(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

func TestIRChannelAssertedReadsHigh(t *testing.T) {
	line := &fakeLine{value: 1}
	a := &IRArray{}
	a.lines[hal.IRFrontLeft] = line

	assert.Equal(t, int16(1000), a.IRChannel(hal.IRFrontLeft))
}

func TestIRChannelClearReadsZero(t *testing.T) {
	line := &fakeLine{value: 0}
	a := &IRArray{}
	a.lines[hal.IRFrontRight] = line

	assert.Equal(t, int16(0), a.IRChannel(hal.IRFrontRight))
}

func TestIRChannelErrorReadsZero(t *testing.T) {
	line := &fakeLine{valueErr: errors.New("line closed")}
	a := &IRArray{}
	a.lines[hal.IRLeft] = line

	assert.Equal(t, int16(0), a.IRChannel(hal.IRLeft))
}

func TestIRArrayCloseClosesEveryLine(t *testing.T) {
	a := &IRArray{}
	var lines [hal.IRChannelCount]*fakeLine
	for i := range lines {
		lines[i] = &fakeLine{}
		a.lines[i] = lines[i]
	}
	a.Close()
	for _, l := range lines {
		assert.True(t, l.closed)
	}
}

func TestLEDSetDrivesLineHighAndLow(t *testing.T) {
	line := &fakeLine{}
	l := &LED{line: line}

	l.Set(true)
	assert.Equal(t, 1, line.value)

	l.Set(false)
	assert.Equal(t, 0, line.value)
}

func TestLEDClose(t *testing.T) {
	line := &fakeLine{}
	l := &LED{line: line}
	l.Close()
	assert.True(t, line.closed)
}

// fakeEcho simulates an HC-SR04 echo line that goes high highAfter after
// construction and stays high for width before returning low, so
// Ranger.RangeMM's pulse-timing loop measures a known interval.
type fakeEcho struct {
	start     time.Time
	highAfter time.Duration
	width     time.Duration
}

func newFakeEcho(highAfter, width time.Duration) *fakeEcho {
	return &fakeEcho{start: time.Now(), highAfter: highAfter, width: width}
}

func (f *fakeEcho) SetValue(int) error { return nil }

func (f *fakeEcho) Value() (int, error) {
	elapsed := time.Since(f.start)
	if elapsed < f.highAfter {
		return 0, nil
	}
	if elapsed < f.highAfter+f.width {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeEcho) Close() error { return nil }

func TestRangerReturnsZeroOnNoEcho(t *testing.T) {
	r := &Ranger{trigger: &fakeLine{}, echo: &fakeLine{value: 0}}
	r.log = nil
	assert.NotPanics(t, func() {
		got := r.RangeMM()
		assert.Equal(t, uint16(0), got)
	})
}

func TestRangerComputesDistanceFromPulseWidth(t *testing.T) {
	// A 5ms high pulse corresponds to roughly 857mm one-way distance
	// (half the 1715mm round trip at 0.343 mm/us); allow generous slack
	// for scheduling jitter.
	echo := newFakeEcho(1*time.Millisecond, 5*time.Millisecond)
	r := &Ranger{trigger: &fakeLine{}, echo: echo}

	got := r.RangeMM()
	assert.InDelta(t, 857, int(got), 300)
}
