// Package audiohal implements hal.MicSource over the system's default
// audio input device using github.com/gordonklaus/portaudio, following
// the stream-open/callback/close shape the pack's PortAudio capture code
// (client-audio.go's AudioEngine) uses: resolve the device, open a
// callback stream at a fixed frames-per-buffer, start it, and let the
// library's own audio thread deliver PCM until Stop.
package audiohal

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
)

// Mic drives a 4-channel interleaved int16 capture stream.
type Mic struct {
	sampleRateHz    int
	framesPerBuffer int

	stream *portaudio.Stream
}

// New prepares (without opening) a capture device at sampleRateHz
// delivering acoustic.MicCount interleaved channels, framesPerBuffer
// frames at a time.
func New(sampleRateHz, framesPerBuffer int) *Mic {
	return &Mic{sampleRateHz: sampleRateHz, framesPerBuffer: framesPerBuffer}
}

// Start initializes PortAudio, opens the default input device with
// acoustic.MicCount channels, and begins delivering frames to onPCM.
// onPCM is invoked directly on PortAudio's realtime audio thread and
// must never block (hal.MicSource's contract).
func (m *Mic) Start(onPCM func(samples []int16)) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audiohal: initialize: %w", err)
	}

	buf := make([]int16, m.framesPerBuffer*int(acoustic.MicCount))
	params := portaudio.LowLatencyParameters(nil, nil)
	params.Input.Channels = int(acoustic.MicCount)
	params.SampleRate = float64(m.sampleRateHz)
	params.FramesPerBuffer = m.framesPerBuffer

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		copy(buf, in)
		onPCM(buf)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audiohal: open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audiohal: start stream: %w", err)
	}

	m.stream = stream
	return nil
}

// Stop halts capture and releases PortAudio resources.
func (m *Mic) Stop() error {
	if m.stream == nil {
		return nil
	}
	if err := m.stream.Stop(); err != nil {
		return fmt.Errorf("audiohal: stop stream: %w", err)
	}
	if err := m.stream.Close(); err != nil {
		return fmt.Errorf("audiohal: close stream: %w", err)
	}
	m.stream = nil
	return portaudio.Terminate()
}
