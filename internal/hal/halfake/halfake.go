// Package halfake provides in-memory stand-ins for every internal/hal
// interface, used by package tests and the bench (-sim) entry point.
// Grounded on the teacher's audio_stats.go/gen_tone.go "generate audio
// samples in software, no real sound card" testing style.
package halfake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/CoVoCre/penguin-mother/internal/hal"
)

var errNoMoreInput = errors.New("halfake: no more scripted input")

// Mic is a software MicSource: Feed pushes a block of interleaved
// samples to whatever callback Start most recently registered.
type Mic struct {
	mu      sync.Mutex
	onPCM   func([]int16)
	started bool
}

func (m *Mic) Start(onPCM func(samples []int16)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPCM = onPCM
	m.started = true
	return nil
}

func (m *Mic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

// Feed delivers samples synchronously as if from the driver's audio
// thread. No-op if Start has not been called yet.
func (m *Mic) Feed(samples []int16) {
	m.mu.Lock()
	cb := m.onPCM
	started := m.started
	m.mu.Unlock()
	if started && cb != nil {
		cb(samples)
	}
}

// Range is a software RangeSensor returning a fixed, settable distance.
type Range struct {
	mu sync.Mutex
	mm uint16
}

func NewRange(mm uint16) *Range { return &Range{mm: mm} }

func (r *Range) RangeMM() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mm
}

func (r *Range) Set(mm uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mm = mm
}

// IR is a software IRSensor with four independently settable channels.
type IR struct {
	mu   sync.Mutex
	vals [hal.IRChannelCount]int16
}

func (i *IR) IRChannel(ch hal.IRChannel) int16 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.vals[ch]
}

func (i *IR) Set(ch hal.IRChannel, v int16) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.vals[ch] = v
}

// Wheels is a software WheelDriver recording the last commanded speeds.
type Wheels struct {
	mu          sync.Mutex
	Left, Right int16
	calls       int
}

func (w *Wheels) SetWheelStepsPerSecond(left, right int16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Left, w.Right = left, right
	w.calls++
}

func (w *Wheels) Last() (left, right int16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Left, w.Right
}

func (w *Wheels) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// LED is a software StatusLED recording its current state.
type LED struct {
	mu sync.Mutex
	on bool
}

func (l *LED) Set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = on
}

func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Console is a software Console backed by scripted input lines and a
// captured output buffer.
type Console struct {
	mu     sync.Mutex
	lines  []string
	output []byte
}

// NewConsole returns a Console that yields lines, in order, from
// ReadLine, and accumulates every Printf call's output.
func NewConsole(lines ...string) *Console {
	return &Console{lines: append([]string(nil), lines...)}
}

func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = append(c.output, []byte(fmt.Sprintf(format, args...))...)
}

func (c *Console) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return "", errNoMoreInput
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

// Output returns everything written via Printf so far.
func (c *Console) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.output)
}

// Push appends additional scripted input lines, for tests that need to
// react to a prompt with input decided only after inspecting output.
func (c *Console) Push(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}
