// Package audiofront assembles four interleaved PCM streams into
// FFT-sized complex buffers and hands them off to the analysis goroutine
// when a scan's worth of samples has accumulated.
//
// OnPCM runs on the audio producer context (spec.md §5) and must never
// block or allocate. The "buffer ready" signal is a capacity-1 channel:
// a non-blocking send that silently drops if the previous ready edge has
// not yet been consumed. This is the channel-based equivalent of the
// teacher's tq.go wake_up_cond/wake_up_mutex/xmit_thread_is_waiting
// triple — "don't block the producer if the consumer hasn't caught up
// yet" — expressed as Go idiomatically does a single-slot mailbox.
package audiofront

import (
	"sync"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
)

// Front accumulates PCM samples into double-buffered per-mic complex
// buffers.
type Front struct {
	fftSize int

	mu      sync.Mutex
	fill    []acoustic.ComplexBuffer // buffer AudioFront is currently writing into
	fillIdx int                      // monotone-mod-fftSize write position

	ready []acoustic.ComplexBuffer // last buffer handed to the analysis side
	sig   chan struct{}
}

// New builds a Front for the given FFT size. Every buffer is allocated up
// front; OnPCM never allocates afterward (spec.md §4.1, §9).
func New(fftSize int) *Front {
	f := &Front{
		fftSize: fftSize,
		fill:    make([]acoustic.ComplexBuffer, acoustic.MicCount),
		ready:   make([]acoustic.ComplexBuffer, acoustic.MicCount),
		sig:     make(chan struct{}, 1),
	}
	for m := range f.fill {
		f.fill[m] = acoustic.NewComplexBuffer(fftSize)
		f.ready[m] = acoustic.NewComplexBuffer(fftSize)
	}
	return f
}

// Ready is the buffer-ready signal. The analysis goroutine blocks on it;
// consecutive ready signals are idempotent edges (spec.md §4.1) — a
// signal that arrives while the analysis goroutine is still processing
// the previous one is simply dropped.
func (f *Front) Ready() <-chan struct{} { return f.sig }

// OnPCM is the mic driver callback contract: 4-channel interleaved 16-bit
// PCM, R,L,B,F order. num samples is always a multiple of acoustic.MicCount
// by driver contract (spec.md §4.1); the loop below walks by MicCount
// regardless; it is infallible.
func (f *Front) OnPCM(samples []int16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := 0; i+int(acoustic.MicCount) <= len(samples); i += int(acoustic.MicCount) {
		for m := acoustic.Mic(0); m < acoustic.MicCount; m++ {
			f.fill[m][f.fillIdx] = complex(float64(samples[i+int(m)]), 0)
		}
		f.fillIdx++

		if f.fillIdx == f.fftSize {
			f.fill, f.ready = f.ready, f.fill
			f.fillIdx = 0

			select {
			case f.sig <- struct{}{}:
			default:
				// Previous ready edge not yet consumed: old
				// frequency-domain view is simply overwritten next
				// time around, per spec.md §4.1 — no queueing.
			}
		}
	}
}

// Take copies the buffers currently held ready for analysis into dst,
// one per mic, under the front's lock. Copying out (rather than handing
// back a reference to the internal buffers) is the double-buffering
// spec.md §5's design notes call for explicitly: it frees AudioFront to
// keep filling — and eventually swap — its internal buffers while the
// analysis goroutine takes as long as it needs with its own copy,
// without ever touching the same backing array AudioFront owns.
func (f *Front) Take(dst []acoustic.ComplexBuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for m := range f.ready {
		copy(dst[m], f.ready[m])
	}
}
