// Package gpiohal implements the GPIO-backed collaborators — wheel
// steppers, IR proximity sensors, and the status LED — over
// github.com/warthog618/go-gpiocdev, the Linux gpio-cdev character
// device interface. Grounded on the teacher's export_gpio/ptt_set
// pattern in ptt.go: one line requested per signal, held open for the
// program's life, written or read on demand; rewritten here against
// gpiocdev's typed Line API instead of the teacher's /sys/class/gpio
// sysfs-file bit-banging, which gpiocdev itself deprecates.
package gpiohal

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/CoVoCre/penguin-mother/internal/hal"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
)

// gpioLine is the subset of *gpiocdev.Line every collaborator in this
// package needs. Fields are typed against this interface rather than the
// concrete gpiocdev type so package tests can substitute an in-memory
// line and exercise the timing/threshold logic without real hardware or
// the gpio-sim kernel module.
type gpioLine interface {
	SetValue(int) error
	Value() (int, error)
	Close() error
}

// StepperWheels drives two step/direction stepper controllers over four
// output lines (left step, left dir, right step, right dir). Speed is
// realized as a pulse train generated by an internal timer per wheel —
// software PWM. Each half-period is floored at 1 ms, so commanded rates
// above 500 steps/sec are delivered at 500 steps/sec.
type StepperWheels struct {
	leftStep, leftDir   gpioLine
	rightStep, rightDir gpioLine
	log                 *rlog.Logger

	mu    sync.Mutex
	left  int16
	right int16
	stop  chan struct{}
}

// NewStepperWheels requests the four named GPIO lines on chip (e.g.
// "gpiochip0") and starts the step-pulse goroutines.
func NewStepperWheels(chip string, leftStepLine, leftDirLine, rightStepLine, rightDirLine int) (*StepperWheels, error) {
	req := func(offset int, name string) (gpioLine, error) {
		l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("penguin-mother-"+name))
		if err != nil {
			return nil, fmt.Errorf("gpiohal: request %s (offset %d): %w", name, offset, err)
		}
		return l, nil
	}

	leftStep, err := req(leftStepLine, "left-step")
	if err != nil {
		return nil, err
	}
	leftDir, err := req(leftDirLine, "left-dir")
	if err != nil {
		return nil, err
	}
	rightStep, err := req(rightStepLine, "right-step")
	if err != nil {
		return nil, err
	}
	rightDir, err := req(rightDirLine, "right-dir")
	if err != nil {
		return nil, err
	}

	w := &StepperWheels{
		leftStep:  leftStep,
		leftDir:   leftDir,
		rightStep: rightStep,
		rightDir:  rightDir,
		log:       rlog.New("gpiohal.wheels"),
		stop:      make(chan struct{}),
	}

	go w.pulse(leftStep, leftDir, &w.left)
	go w.pulse(rightStep, rightDir, &w.right)

	return w, nil
}

// SetWheelStepsPerSecond updates the target rate and direction for each
// wheel; the pulse goroutines pick up the new values on their next tick.
func (w *StepperWheels) SetWheelStepsPerSecond(left, right int16) {
	w.mu.Lock()
	w.left, w.right = left, right
	w.mu.Unlock()
}

func (w *StepperWheels) pulse(step, dir gpioLine, target *int16) {
	const minPeriod = time.Millisecond
	level := 0
	for {
		w.mu.Lock()
		sps := *target
		w.mu.Unlock()

		if sps == 0 {
			select {
			case <-w.stop:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		if sps > 0 {
			dir.SetValue(1)
		} else {
			dir.SetValue(0)
			sps = -sps
		}

		period := time.Second / time.Duration(sps) / 2
		if period < minPeriod {
			period = minPeriod
		}

		level = 1 - level
		if err := step.SetValue(level); err != nil {
			w.log.Warn("step pulse failed", "err", err)
		}

		select {
		case <-w.stop:
			return
		case <-time.After(period):
		}
	}
}

// Close stops the pulse goroutines and releases all four lines.
func (w *StepperWheels) Close() {
	close(w.stop)
	w.leftStep.Close()
	w.leftDir.Close()
	w.rightStep.Close()
	w.rightDir.Close()
}

// IRArray reads four IR proximity lines as analog-like values via
// gpiocdev's digital Value — threshold-only hardware reports 0/1, which
// is all config.IRStop needs to compare against.
type IRArray struct {
	lines [hal.IRChannelCount]gpioLine
}

// NewIRArray requests one input line per IR channel, in hal.IRChannel
// order (front-left, front-right, left, right).
func NewIRArray(chip string, offsets [hal.IRChannelCount]int) (*IRArray, error) {
	var a IRArray
	for ch, offset := range offsets {
		l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput, gpiocdev.WithConsumer(fmt.Sprintf("penguin-mother-ir%d", ch)))
		if err != nil {
			return nil, fmt.Errorf("gpiohal: request ir channel %d (offset %d): %w", ch, offset, err)
		}
		a.lines[ch] = l
	}
	return &a, nil
}

// IRChannel reads channel ch: 1000 if the line is asserted (obstacle
// within the sensor's fixed detection range), 0 otherwise.
func (a *IRArray) IRChannel(ch hal.IRChannel) int16 {
	v, err := a.lines[ch].Value()
	if err != nil {
		return 0
	}
	if v != 0 {
		return 1000
	}
	return 0
}

// Close releases all four IR lines.
func (a *IRArray) Close() {
	for _, l := range a.lines {
		if l != nil {
			l.Close()
		}
	}
}

// LED drives a single GPIO output as the status LED.
type LED struct {
	line gpioLine
}

// NewLED requests offset on chip as an output, initially off.
func NewLED(chip string, offset int) (*LED, error) {
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("penguin-mother-led"))
	if err != nil {
		return nil, fmt.Errorf("gpiohal: request led (offset %d): %w", offset, err)
	}
	return &LED{line: l}, nil
}

// Set turns the LED on or off.
func (l *LED) Set(on bool) {
	v := 0
	if on {
		v = 1
	}
	l.line.SetValue(v)
}

// Close releases the LED line.
func (l *LED) Close() {
	l.line.Close()
}

// Ranger is an HC-SR04-style ultrasonic time-of-flight sensor: a trigger
// output line and an echo input line, distance computed from the
// echo's high-pulse width and the speed of sound.
type Ranger struct {
	trigger, echo gpioLine
	log           *rlog.Logger
}

// NewRanger requests the trigger and echo lines on chip.
func NewRanger(chip string, triggerOffset, echoOffset int) (*Ranger, error) {
	trigger, err := gpiocdev.RequestLine(chip, triggerOffset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("penguin-mother-tof-trig"))
	if err != nil {
		return nil, fmt.Errorf("gpiohal: request tof trigger (offset %d): %w", triggerOffset, err)
	}
	echo, err := gpiocdev.RequestLine(chip, echoOffset, gpiocdev.AsInput, gpiocdev.WithConsumer("penguin-mother-tof-echo"))
	if err != nil {
		trigger.Close()
		return nil, fmt.Errorf("gpiohal: request tof echo (offset %d): %w", echoOffset, err)
	}
	return &Ranger{trigger: trigger, echo: echo, log: rlog.New("gpiohal.ranger")}, nil
}

// RangeMM fires a trigger pulse and times the echo's high period.
// Returns 0 if no echo is seen within the sensor's timeout, matching
// hal.RangeSensor's "0 during warm-up/out-of-range" contract.
func (r *Ranger) RangeMM() uint16 {
	const speedOfSoundMMPerUS = 0.343
	const timeout = 30 * time.Millisecond

	r.trigger.SetValue(1)
	time.Sleep(10 * time.Microsecond)
	r.trigger.SetValue(0)

	deadline := time.Now().Add(timeout)
	for {
		v, err := r.echo.Value()
		if err != nil {
			r.log.Warn("tof echo read failed", "err", err)
			return 0
		}
		if v != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0
		}
	}

	start := time.Now()
	for {
		v, err := r.echo.Value()
		if err != nil {
			r.log.Warn("tof echo read failed", "err", err)
			return 0
		}
		if v == 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0
		}
	}

	pulseUS := float64(time.Since(start).Microseconds())
	distanceMM := pulseUS * speedOfSoundMMPerUS / 2
	if distanceMM > 65535 {
		return 0
	}
	return uint16(distanceMM)
}

// Close releases the trigger and echo lines.
func (r *Ranger) Close() {
	r.trigger.Close()
	r.echo.Close()
}
