package mission

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/bearing"
	"github.com/CoVoCre/penguin-mother/internal/config"
	"github.com/CoVoCre/penguin-mother/internal/hal/halfake"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
	"github.com/CoVoCre/penguin-mother/internal/spectral"
)

// fakeFront is a minimal stand-in for audiofront.Front: it serves a fixed
// sequence of pre-synthesized scans, one per Take, mirroring Front's
// capacity-1 non-blocking Ready channel.
type fakeFront struct {
	mu     sync.Mutex
	frames [][]acoustic.ComplexBuffer
	idx    int
	ready  chan struct{}
}

func newFakeFront(frames ...[]acoustic.ComplexBuffer) *fakeFront {
	f := &fakeFront{frames: frames, ready: make(chan struct{}, 1)}
	if len(frames) > 0 {
		f.ready <- struct{}{}
	}
	return f
}

func (f *fakeFront) Ready() <-chan struct{} { return f.ready }

func (f *fakeFront) Take(dst []acoustic.ComplexBuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := f.frames[f.idx]
	for m := range dst {
		copy(dst[m], frame[m])
	}
	f.idx++
	if f.idx < len(f.frames) {
		select {
		case f.ready <- struct{}{}:
		default:
		}
	}
}

type fakeMotion struct {
	mu        sync.Mutex
	angle     int16
	moving    bool
	backCalls int
	stopCalls int
	obstacle  chan struct{}
}

func newFakeMotion() *fakeMotion { return &fakeMotion{obstacle: make(chan struct{}, 1)} }

func (m *fakeMotion) GoToAngle(a int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.angle, m.moving = a, true
}

func (m *fakeMotion) StopMoving() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moving = false
	m.stopCalls++
}

func (m *fakeMotion) MoveBackwards() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backCalls++
}

func (m *fakeMotion) ObstacleReached() <-chan struct{} { return m.obstacle }

// silentFrame returns an all-zero four-mic time-domain snapshot.
func silentFrame(cfg config.Config) []acoustic.ComplexBuffer {
	buf := make([]acoustic.ComplexBuffer, acoustic.MicCount)
	for m := range buf {
		buf[m] = acoustic.NewComplexBuffer(cfg.FFTSize)
	}
	return buf
}

// toneFrame returns a four-mic time-domain snapshot containing a single
// pure tone at bin, loud enough to clear AmplitudeThreshold, with each
// mic's copy phase-shifted by phaseOffsetDeg[m] so bearing estimation
// resolves to a known angle. A discrete complex exponential exactly on a
// bin boundary transforms to a single noiseless FFT bin, so the result is
// deterministic without needing to run an actual acoustic simulation.
func toneFrame(cfg config.Config, bin int, amplitude float64, phaseOffsetDeg [acoustic.MicCount]float64) []acoustic.ComplexBuffer {
	buf := make([]acoustic.ComplexBuffer, acoustic.MicCount)
	n := cfg.FFTSize
	for m := range buf {
		b := acoustic.NewComplexBuffer(n)
		phase := phaseOffsetDeg[m] * math.Pi / 180
		for t := 0; t < n; t++ {
			theta := 2*math.Pi*float64(bin)*float64(t)/float64(n) + phase
			b[t] = complex(amplitude*math.Cos(theta), amplitude*math.Sin(theta))
		}
		buf[m] = b
	}
	return buf
}

func newTestFSM(cfg config.Config, front buffers, console *halfake.Console, led *halfake.LED, motion Motion) *FSM {
	return New(cfg, spectral.New(cfg), bearing.New(cfg), front, console, led, motion, rlog.New("mission-test"), nil)
}

func TestRunScanningSilentRoomPrintsNoSources(t *testing.T) {
	cfg := config.Default()
	front := newFakeFront(silentFrame(cfg))
	console := halfake.NewConsole()
	f := newTestFSM(cfg, front, console, &halfake.LED{}, newFakeMotion())

	stop := make(chan struct{})
	f.runScanning(stop)

	assert.Equal(t, UserPrompt, f.state)
	assert.Contains(t, console.Output(), "no sources")
}

func TestRunScanningSingleToneThenSelectPursues(t *testing.T) {
	cfg := config.Default()
	const bin = 40 // inside [BinLow, BinHigh), outside the predator band
	frame := toneFrame(cfg, bin, 50, [acoustic.MicCount]float64{})
	front := newFakeFront(frame)
	console := halfake.NewConsole("0")
	motion := newFakeMotion()
	f := newTestFSM(cfg, front, console, &halfake.LED{}, motion)

	stop := make(chan struct{})
	f.runScanning(stop)
	assert.Equal(t, UserPrompt, f.state)
	assert.Contains(t, console.Output(), "Source 0: frequency =")

	f.runUserPrompt()
	assert.Equal(t, Pursuing, f.state)
	assert.NotNil(t, f.dest)
	assert.Equal(t, uint16(bin), f.dest.FreqBin)
	assert.True(t, motion.moving)
}

func TestRunUserPromptRescanOnR(t *testing.T) {
	cfg := config.Default()
	console := halfake.NewConsole("r")
	f := newTestFSM(cfg, newFakeFront(), console, &halfake.LED{}, newFakeMotion())
	f.lastResult = acoustic.ScanResult{{FreqBin: 10, Amplitude: 1}}
	f.lastBuf = silentFrame(cfg)

	f.runUserPrompt()
	assert.Equal(t, Scanning, f.state)
}

func TestRunUserPromptUnrecognizedInputReprompts(t *testing.T) {
	cfg := config.Default()
	console := halfake.NewConsole("not-a-number")
	f := newTestFSM(cfg, newFakeFront(), console, &halfake.LED{}, newFakeMotion())
	f.lastResult = acoustic.ScanResult{{FreqBin: 10, Amplitude: 1}}
	f.lastBuf = silentFrame(cfg)
	f.state = UserPrompt

	f.runUserPrompt()
	assert.Equal(t, UserPrompt, f.state)
	assert.Contains(t, console.Output(), "unrecognized input")
}

func TestRunUserPromptOutOfRangeSelectionReprompts(t *testing.T) {
	cfg := config.Default()
	console := halfake.NewConsole("5")
	f := newTestFSM(cfg, newFakeFront(), console, &halfake.LED{}, newFakeMotion())
	f.lastResult = acoustic.ScanResult{{FreqBin: 10, Amplitude: 1}}
	f.lastBuf = silentFrame(cfg)
	f.state = UserPrompt

	f.runUserPrompt()
	assert.Equal(t, UserPrompt, f.state)
	assert.Contains(t, console.Output(), "unrecognized input")
}

func TestRunScanningPredatorTriggersEvasion(t *testing.T) {
	cfg := config.Default()
	bin := cfg.PredatorBinLow + 1
	frame := toneFrame(cfg, bin, 50, [acoustic.MicCount]float64{})
	front := newFakeFront(frame)
	motion := newFakeMotion()
	f := newTestFSM(cfg, front, halfake.NewConsole(), &halfake.LED{}, motion)

	stop := make(chan struct{})
	f.runScanning(stop)

	assert.Equal(t, Evading, f.state)
	assert.Equal(t, Scanning, f.evadeReturn)
	assert.NotNil(t, f.dest)
	assert.True(t, motion.moving)
}

func TestRunEvadingClearsOnQuietScan(t *testing.T) {
	cfg := config.Default()
	front := newFakeFront(silentFrame(cfg))
	motion := newFakeMotion()
	f := newTestFSM(cfg, front, halfake.NewConsole(), &halfake.LED{}, motion)
	f.state = Evading
	f.evadeReturn = Scanning

	stop := make(chan struct{})
	f.runEvading(stop)

	assert.Equal(t, Scanning, f.state)
	assert.Equal(t, 1, motion.stopCalls)
}

func TestRunPursuingLostWhenSourceDisappears(t *testing.T) {
	cfg := config.Default()
	front := newFakeFront(silentFrame(cfg))
	motion := newFakeMotion()
	console := halfake.NewConsole()
	f := newTestFSM(cfg, front, console, &halfake.LED{}, motion)
	f.state = Pursuing
	f.dest = &Destination{FreqBin: 40, AngleDeg: 0}

	stop := make(chan struct{})
	f.runPursuing(stop)

	assert.Equal(t, Lost, f.state)
	assert.Contains(t, console.Output(), "source not available anymore")
	assert.Equal(t, 1, motion.stopCalls)
}

func TestRunPursuingObstacleReachedTransitions(t *testing.T) {
	cfg := config.Default()
	const bin = 40
	frame := toneFrame(cfg, bin, 50, [acoustic.MicCount]float64{})
	front := newFakeFront(frame)
	motion := newFakeMotion()
	motion.obstacle <- struct{}{}
	f := newTestFSM(cfg, front, halfake.NewConsole(), &halfake.LED{}, motion)
	f.state = Pursuing
	f.dest = &Destination{FreqBin: bin, AngleDeg: 0}

	stop := make(chan struct{})
	f.runPursuing(stop)

	assert.Equal(t, PenguinReached, f.state)
}

func TestRunPenguinReachedSequence(t *testing.T) {
	orig := sleep
	defer func() { sleep = orig }()
	sleep = func(time.Duration) {}

	cfg := config.Default()
	led := &halfake.LED{}
	motion := newFakeMotion()
	f := newTestFSM(cfg, newFakeFront(), halfake.NewConsole(), led, motion)
	f.dest = &Destination{FreqBin: 1, AngleDeg: 2}

	f.runPenguinReached()

	assert.Equal(t, Scanning, f.state)
	assert.Nil(t, f.dest)
	assert.False(t, led.On())
	assert.Equal(t, 1, motion.backCalls)
	assert.Equal(t, 1, motion.stopCalls)
}

func TestRunLostStopsAndClearsDestination(t *testing.T) {
	cfg := config.Default()
	motion := newFakeMotion()
	f := newTestFSM(cfg, newFakeFront(), halfake.NewConsole(), &halfake.LED{}, motion)
	f.dest = &Destination{FreqBin: 1, AngleDeg: 2}

	f.runLost()

	assert.Equal(t, Scanning, f.state)
	assert.Nil(t, f.dest)
	assert.Equal(t, 1, motion.stopCalls)
}

func TestEvadeAngleWraps(t *testing.T) {
	assert.Equal(t, int16(-180), evadeAngle(0))
	assert.Equal(t, int16(0), evadeAngle(180))
	assert.Equal(t, int16(-90), evadeAngle(90))
	assert.Equal(t, int16(90), evadeAngle(-90))
}

func TestStateStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", State(99).String())
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "PenguinReached", PenguinReached.String())
}
