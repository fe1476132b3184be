// Package robot wires the three execution contexts spec.md §5 calls for
// — audio producer, analysis/mission, and motion control — into one
// running system, and owns their shared startup/shutdown sequencing.
// Grounded on the teacher's main.go: open the hardware collaborators,
// spin up one goroutine per concurrent task, and tear all of them down
// together on a single stop signal.
package robot

import (
	"fmt"
	"sync"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/audiofront"
	"github.com/CoVoCre/penguin-mother/internal/bearing"
	"github.com/CoVoCre/penguin-mother/internal/config"
	"github.com/CoVoCre/penguin-mother/internal/hal"
	"github.com/CoVoCre/penguin-mother/internal/mission"
	"github.com/CoVoCre/penguin-mother/internal/motion"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
	"github.com/CoVoCre/penguin-mother/internal/scanlog"
	"github.com/CoVoCre/penguin-mother/internal/spectral"
)

// Hardware bundles the collaborators this firmware core consumes but
// does not implement (spec.md §1/§6): a mic source, a ranger, four IR
// channels, the wheel driver, the status LED, and the operator console.
type Hardware struct {
	Mic     hal.MicSource
	Range   hal.RangeSensor
	IR      hal.IRSensor
	Wheels  hal.WheelDriver
	LED     hal.StatusLED
	Console hal.Console
}

// Robot owns the audio front-end, motion controller, and mission FSM,
// and the goroutines that run them.
type Robot struct {
	cfg config.Config
	hw  Hardware
	log *rlog.Logger

	front   *audiofront.Front
	motionC *motion.Controller
	fsm     *mission.FSM
	scanLog *scanlog.Log

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Robot from cfg and hw. The scan log, if cfg.ScanLogDir is
// non-empty, is opened here so a bad path fails fast at construction
// rather than mid-run.
func New(cfg config.Config, hw Hardware) (*Robot, error) {
	scanLog, err := scanlog.Open(cfg.ScanLogDir, cfg.ScanLogNameLayout, cfg.SampleRateHz, cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("robot: %w", err)
	}

	front := audiofront.New(cfg.FFTSize)
	motionLog := rlog.New("motion")
	motionC := motion.New(cfg, hw.Wheels, hw.Range, hw.IR, motionLog)

	missionLog := rlog.New("mission")
	fsm := mission.New(cfg, spectral.New(cfg), bearing.New(cfg), front, hw.Console, hw.LED, motionC, missionLog, scanLog)

	return &Robot{
		cfg:     cfg,
		hw:      hw,
		log:     rlog.New("robot"),
		front:   front,
		motionC: motionC,
		fsm:     fsm,
		scanLog: scanLog,
		stop:    make(chan struct{}),
	}, nil
}

// Run starts the mic source and the motion and mission goroutines, and
// blocks until Stop is called.
func (r *Robot) Run() error {
	if err := r.hw.Mic.Start(r.front.OnPCM); err != nil {
		return fmt.Errorf("robot: start mic: %w", err)
	}

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.motionC.Run(r.stop)
	}()
	go func() {
		defer r.wg.Done()
		r.fsm.Run(r.stop)
	}()

	r.log.Info("robot running",
		"fft_size", r.cfg.FFTSize,
		"scan_band", []int{r.cfg.BinLow, r.cfg.BinHigh},
		"mics", int(acoustic.MicCount),
	)

	r.wg.Wait()
	return nil
}

// Stop signals both goroutines to exit and stops the mic source. Safe to
// call once; Run returns once both goroutines have exited.
func (r *Robot) Stop() {
	close(r.stop)
	if err := r.hw.Mic.Stop(); err != nil {
		r.log.Warn("mic stop failed", "err", err)
	}
	r.wg.Wait()
	if r.scanLog != nil {
		r.scanLog.Close()
	}
}
