// Package motion implements the periodic control loop that converts a
// target bearing into wheel speeds and stops on obstacle contact
// (spec.md §4.5). It runs as a single periodic goroutine, reading
// target_angle/moving written by MissionFSM through atomics and owning
// its own EMA state exclusively (spec.md §5).
package motion

import (
	"sync/atomic"
	"time"

	"github.com/CoVoCre/penguin-mother/internal/config"
	"github.com/CoVoCre/penguin-mother/internal/hal"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
)

// Controller owns MotionState and drives hal.WheelDriver from
// hal.RangeSensor / hal.IRSensor readings on a config.TCtrl period.
type Controller struct {
	cfg    config.Config
	wheels hal.WheelDriver
	rng    hal.RangeSensor
	ir     hal.IRSensor
	log    *rlog.Logger

	// Shared with the goroutine that calls GoToAngle/StopMoving: single
	// machine words, atomic load/store, no lock needed (spec.md §5).
	targetAngle atomic.Int32 // degrees, written as int16 range
	moving      atomic.Bool

	// Exclusively owned by the periodic loop goroutine.
	emaRangeMM   float64
	emaLeftSPS   float64
	emaRightSPS  float64
	discardCount int

	// obstacleReached fires at most once per moving=true episode
	// (spec.md §5). Buffered so the periodic loop never blocks on it.
	obstacleReached chan struct{}
}

// New builds a Controller. obstacleReached is signaled (non-blocking,
// capacity 1) exactly once per pursuit episode when an obstacle is
// detected; MissionFSM consumes it to transition to PenguinReached.
func New(cfg config.Config, wheels hal.WheelDriver, rng hal.RangeSensor, ir hal.IRSensor, log *rlog.Logger) *Controller {
	return &Controller{
		cfg:             cfg,
		wheels:          wheels,
		rng:             rng,
		ir:              ir,
		log:             log,
		emaRangeMM:      cfg.InitRangeMM,
		obstacleReached: make(chan struct{}, 1),
	}
}

// ObstacleReached is the cross-task notification MissionFSM waits on
// (spec.md §9's "callback into MissionFSM from motion layer").
func (c *Controller) ObstacleReached() <-chan struct{} { return c.obstacleReached }

// GoToAngle sets the target bearing and starts moving. Does not block.
// Calling it twice with no intervening scan produces identical
// controller output (spec.md §8): both calls only ever write the two
// atomics below.
func (c *Controller) GoToAngle(a int16) {
	c.targetAngle.Store(int32(a))
	c.moving.Store(true)
}

// StopMoving clears the moving flag and commands (0, 0) immediately.
// After StopMoving returns, no further non-zero command is emitted until
// the next GoToAngle (spec.md §8).
func (c *Controller) StopMoving() {
	c.moving.Store(false)
	c.emaLeftSPS, c.emaRightSPS = 0, 0
	c.wheels.SetWheelStepsPerSecond(0, 0)
}

// MoveBackwards bypasses the controller and commands a brief fixed
// reverse, used by MissionFSM after PenguinReached (spec.md §4.5).
func (c *Controller) MoveBackwards() {
	back := int16(-c.cfg.MaxSPS)
	c.wheels.SetWheelStepsPerSecond(back, back)
}

// Run executes the periodic control loop until stop is closed.
func (c *Controller) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.TCtrl)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) tick() {
	if !c.moving.Load() {
		return
	}

	if c.checkObstacle() {
		return
	}

	target := int16(c.targetAngle.Load())
	theta := clampF(float64(target), -c.cfg.MaxCorrDeg, c.cfg.MaxCorrDeg)
	diffSPS := c.cfg.MaxDiffSPS * theta / c.cfg.MaxCorrDeg

	fwd := c.forwardSpeed(float64(target))

	rightRaw := fwd - diffSPS
	leftRaw := fwd + diffSPS

	c.emaLeftSPS = 0.9*c.emaLeftSPS + 0.1*leftRaw
	c.emaRightSPS = 0.9*c.emaRightSPS + 0.1*rightRaw

	leftCmd := deadZone(c.emaLeftSPS, c.cfg.MinSPS)
	rightCmd := deadZone(c.emaRightSPS, c.cfg.MinSPS)

	c.wheels.SetWheelStepsPerSecond(leftCmd, rightCmd)
}

// checkObstacle updates the ToF EMA, reads the four IR channels, and
// stops the robot on contact (spec.md §4.5 step 1). Returns true if an
// obstacle was detected this tick.
func (c *Controller) checkObstacle() bool {
	if c.discardCount < c.cfg.DiscardSamples {
		c.discardCount++
		c.emaRangeMM = c.cfg.InitRangeMM
		_ = c.rng.RangeMM() // drain the warm-up reading per driver contract
	} else {
		c.emaRangeMM = 0.8*c.emaRangeMM + 0.2*float64(c.rng.RangeMM())
	}

	obstacle := c.emaRangeMM <= c.cfg.StopMM
	for ch := hal.IRChannel(0); ch < hal.IRChannelCount; ch++ {
		if float64(c.ir.IRChannel(ch)) > c.cfg.IRStop {
			obstacle = true
		}
	}

	if !obstacle {
		return false
	}

	c.moving.Store(false)
	c.emaLeftSPS, c.emaRightSPS = 0, 0
	c.wheels.SetWheelStepsPerSecond(0, 0)

	c.log.Info("obstacle reached", "range_mm", c.emaRangeMM)

	select {
	case c.obstacleReached <- struct{}{}:
	default:
	}

	return true
}

// forwardSpeed implements spec.md §4.5 step 3: only nonzero when the
// robot isn't rotating in place.
func (c *Controller) forwardSpeed(targetAngle float64) float64 {
	if absF(targetAngle) >= c.cfg.MaxCorrDeg {
		return 0
	}

	switch {
	case c.emaRangeMM <= c.cfg.StopMM:
		return 0
	case c.emaRangeMM <= c.cfg.MaxMM:
		return c.cfg.MaxSPS * (c.emaRangeMM - c.cfg.StopMM) / (c.cfg.MaxMM - c.cfg.StopMM)
	default:
		return c.cfg.MaxSPS
	}
}

// deadZone applies the stepper minimum-speed offset (spec.md §4.5 step 6).
func deadZone(ema, minSPS float64) int16 {
	switch {
	case ema > 0:
		return int16(ema + minSPS)
	case ema < 0:
		return int16(ema - minSPS)
	default:
		return 0
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
