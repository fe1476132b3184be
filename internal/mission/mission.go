// Package mission implements the top-level state machine coupling the
// acoustic direction-finding pipeline to the motion controller: scan,
// prompt the operator, pursue, and stop on reached/lost/predator-evade
// (spec.md §4.6). The console read-dispatch loop is grounded on the
// teacher's aprs_tt.go/tt_user.go touch-tone command dispatch and
// kissutil.go's blocking command loop: read a line, match a small fixed
// vocabulary, re-prompt on anything else.
package mission

import (
	"strconv"
	"time"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/bearing"
	"github.com/CoVoCre/penguin-mother/internal/config"
	"github.com/CoVoCre/penguin-mother/internal/hal"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
	"github.com/CoVoCre/penguin-mother/internal/scanlog"
	"github.com/CoVoCre/penguin-mother/internal/spectral"
	"github.com/CoVoCre/penguin-mother/internal/tracker"
)

// State names the FSM's current state (spec.md §4.6).
type State int

const (
	Idle State = iota
	Scanning
	UserPrompt
	Pursuing
	Evading
	PenguinReached
	Lost
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scanning:
		return "Scanning"
	case UserPrompt:
		return "UserPrompt"
	case Pursuing:
		return "Pursuing"
	case Evading:
		return "Evading"
	case PenguinReached:
		return "PenguinReached"
	case Lost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// Destination is the currently-pursued source: created at user
// selection, mutated each scan during pursuit, destroyed on stop
// (spec.md §3). Owned exclusively by FSM.
type Destination struct {
	FreqBin  uint16
	AngleDeg int16
}

// Motion is the subset of motion.Controller the FSM drives.
type Motion interface {
	GoToAngle(a int16)
	StopMoving()
	MoveBackwards()
	ObstacleReached() <-chan struct{}
}

// FSM runs the scan/prompt/pursue/reached/lost/predator-evade loop on a
// single goroutine (the "mission/analysis task" of spec.md §5).
type FSM struct {
	cfg      config.Config
	spectral *spectral.Core
	bearingE *bearing.Estimator
	front    buffers
	console  hal.Console
	led      hal.StatusLED
	motion   Motion
	log      *rlog.Logger
	scanLog  *scanlog.Log

	state       State
	dest        *Destination
	evadeReturn State // state to resume after Evading clears
	now         func() time.Time

	// lastResult/lastBuf cache the scan UserPrompt was entered with, so
	// a numeric selection resolves against what the operator was shown
	// rather than re-scanning (spec.md §4.6: UserPrompt reacts only to
	// console input, it doesn't re-sample).
	lastResult acoustic.ScanResult
	lastBuf    []acoustic.ComplexBuffer
}

// buffers is the minimal surface FSM needs from audiofront.Front: block
// until a scan's worth of samples is ready, then hand over a private
// copy of the four time-domain per-mic buffers for this scan (the
// spectral core turns them into frequency-domain spectra in place).
type buffers interface {
	Ready() <-chan struct{}
	Take(dst []acoustic.ComplexBuffer)
}

// New builds an FSM in the Idle state.
func New(cfg config.Config, spectralCore *spectral.Core, bearingE *bearing.Estimator, front buffers, console hal.Console, led hal.StatusLED, motion Motion, log *rlog.Logger, scanLog *scanlog.Log) *FSM {
	return &FSM{
		cfg:      cfg,
		spectral: spectralCore,
		bearingE: bearingE,
		front:    front,
		console:  console,
		led:      led,
		motion:   motion,
		log:      log,
		scanLog:  scanLog,
		state:    Idle,
		now:      time.Now,
	}
}

// Run drives the FSM until stop is closed. It owns the "mission/analysis
// task" execution context (spec.md §5): it blocks on the buffer-ready
// signal, on console reads, and on sleeps, and is the only caller of
// Motion.GoToAngle/StopMoving (the motion controller itself clears
// moving when it detects an obstacle).
func (f *FSM) Run(stop <-chan struct{}) {
	f.state = Scanning // "Idle -> Scanning automatically after init"

	for {
		select {
		case <-stop:
			return
		default:
		}

		switch f.state {
		case Scanning:
			f.runScanning(stop)
		case UserPrompt:
			f.runUserPrompt()
		case Pursuing:
			f.runPursuing(stop)
		case Evading:
			f.runEvading(stop)
		case PenguinReached:
			f.runPenguinReached()
		case Lost:
			f.runLost()
		default:
			f.state = Scanning
		}
	}
}

// waitForScan blocks for the next buffer-ready edge (or stop), copies the
// buffers out, and runs the spectral + bearing pipeline. Returns ok=false
// if stop fired first.
func (f *FSM) waitForScan(stop <-chan struct{}) (acoustic.ScanResult, []acoustic.ComplexBuffer, bool) {
	select {
	case <-stop:
		return nil, nil, false
	case <-f.front.Ready():
	}

	buf := make([]acoustic.ComplexBuffer, acoustic.MicCount)
	for m := range buf {
		buf[m] = acoustic.NewComplexBuffer(f.cfg.FFTSize)
	}
	f.front.Take(buf)

	result := f.spectral.Scan(buf)
	if f.scanLog != nil {
		if err := f.scanLog.Write(f.now(), result); err != nil {
			f.log.Warn("scan log write failed", "err", err)
		}
	}
	return result, buf, true
}

// predatorSource reports whether any source in result falls in the
// predator band (spec.md §4.6) and, if so, that source's index within
// result.
func (f *FSM) predatorSource(result acoustic.ScanResult, buf []acoustic.ComplexBuffer) (idx int, found bool) {
	for i, s := range result {
		if int(s.FreqBin) >= f.cfg.PredatorBinLow && int(s.FreqBin) <= f.cfg.PredatorBinHigh {
			return i, true
		}
	}
	return 0, false
}

func (f *FSM) runScanning(stop <-chan struct{}) {
	result, buf, ok := f.waitForScan(stop)
	if !ok {
		return
	}

	if idx, found := f.predatorSource(result, buf); found {
		angle, err := f.bearingE.Estimate(buf, result[idx].FreqBin, idx)
		if err != nil {
			// Transient phase failure: stay in Scanning and retry next
			// scan rather than evading on bad data.
			return
		}
		f.dest = &Destination{FreqBin: result[idx].FreqBin, AngleDeg: evadeAngle(angle)}
		f.evadeReturn = Scanning
		f.motion.GoToAngle(f.dest.AngleDeg)
		f.state = Evading
		return
	}

	f.printScanResult(result, buf)
	f.lastResult, f.lastBuf = result, buf
	f.state = UserPrompt
}

// printScanResult implements spec.md §6's exact CLI banner text.
func (f *FSM) printScanResult(result acoustic.ScanResult, buf []acoustic.ComplexBuffer) {
	if len(result) == 0 {
		f.console.Printf("no sources\n")
		return
	}
	for i, s := range result {
		hz := acoustic.BinToHz(s.FreqBin, f.cfg.SampleRateHz, f.cfg.FFTSize)
		angle, err := f.bearingE.Estimate(buf, s.FreqBin, i)
		if err != nil {
			angle = 0
		}
		f.console.Printf("Source %d: frequency =%.0f angle =%d\n", i, hz, angle)
	}
}

func (f *FSM) runUserPrompt() {
	f.console.Printf("Please enter the number of the penguin you want to go to or enter 'r' to rescan penguins.\n")

	line, err := f.console.ReadLine()
	if err != nil {
		// Console read failures are a collaborator problem outside this
		// module's scope (spec.md §1); treat as a request to rescan
		// rather than wedging the FSM.
		f.state = Scanning
		return
	}

	if line == "r" {
		f.state = Scanning
		return
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 0 {
		f.console.Printf("unrecognized input, please enter a source number or 'r'\n")
		return
	}

	result, buf, ok := f.lastScanForSelection()
	if !ok || n >= len(result) {
		f.console.Printf("unrecognized input, please enter a source number or 'r'\n")
		return
	}

	angle, err := f.bearingE.Estimate(buf, result[n].FreqBin, n)
	if err != nil {
		angle = 0
	}
	f.dest = &Destination{FreqBin: result[n].FreqBin, AngleDeg: angle}
	f.motion.GoToAngle(angle)
	f.state = Pursuing
}

// lastScanForSelection returns the scan result and buffers cached when
// UserPrompt was entered, so the operator's numeric selection resolves
// against the source list they were shown. It does not re-scan; ok is
// false if no scan has been cached yet.
func (f *FSM) lastScanForSelection() (acoustic.ScanResult, []acoustic.ComplexBuffer, bool) {
	if f.lastResult == nil {
		return nil, nil, false
	}
	return f.lastResult, f.lastBuf, true
}

func (f *FSM) runPursuing(stop <-chan struct{}) {
	result, buf, ok := f.waitForScan(stop)
	if !ok {
		return
	}

	if idx, found := f.predatorSource(result, buf); found {
		angle, err := f.bearingE.Estimate(buf, result[idx].FreqBin, idx)
		if err == nil {
			f.evadeReturn = Pursuing
			f.motion.GoToAngle(evadeAngle(angle))
			f.state = Evading
			return
		}
	}

	select {
	case <-f.motion.ObstacleReached():
		f.state = PenguinReached
		return
	default:
	}

	idx, newBin, err := tracker.Match(result, f.dest.FreqBin, f.cfg)
	if err != nil {
		f.console.Printf("source not available anymore, please select a new one\n")
		f.motion.StopMoving()
		f.state = Lost
		return
	}

	angle, err := f.bearingE.Estimate(buf, newBin, idx)
	if err != nil {
		// Transient: keep pursuing with the last known-good angle.
		return
	}

	f.dest.FreqBin = newBin
	f.dest.AngleDeg = angle
	f.motion.GoToAngle(angle)
}

func (f *FSM) runEvading(stop <-chan struct{}) {
	result, buf, ok := f.waitForScan(stop)
	if !ok {
		return
	}

	if idx, found := f.predatorSource(result, buf); found {
		angle, err := f.bearingE.Estimate(buf, result[idx].FreqBin, idx)
		if err == nil {
			f.motion.GoToAngle(evadeAngle(angle))
		}
		return
	}

	f.motion.StopMoving()
	f.state = f.evadeReturn
}

func (f *FSM) runPenguinReached() {
	f.led.Set(true)
	sleep(f.cfg.ReachedLEDDelay)
	f.motion.MoveBackwards()
	sleep(f.cfg.ReachedBackup)
	f.motion.StopMoving()
	f.led.Set(false)
	f.dest = nil
	f.state = Scanning
}

func (f *FSM) runLost() {
	f.log.Info("target lost")
	f.motion.StopMoving()
	f.dest = nil
	f.state = Scanning
}

// evadeAngle is the opposite bearing to a predator sighted at angle,
// wrapped into [-180, 180] (spec.md §4.6).
func evadeAngle(angle int16) int16 {
	a := int(angle) - 180
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return int16(a)
}

var sleep = time.Sleep
