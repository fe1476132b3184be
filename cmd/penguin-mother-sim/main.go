// Command penguin-mother-sim is the bench entry point: it feeds
// synthetic multi-mic tones and fake range/IR readings through the same
// robot package the real firmware uses, driving the operator console
// over a pseudo-terminal instead of a physical serial port. Grounded on
// the teacher's cmd/gen_tone tone-synthesis test tool and kissutil.go's
// pty-backed interactive session.
package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/spf13/pflag"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
	"github.com/CoVoCre/penguin-mother/internal/config"
	"github.com/CoVoCre/penguin-mother/internal/hal/halfake"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
	"github.com/CoVoCre/penguin-mother/internal/robot"
)

// ptyConsole adapts a pty's tty end to hal.Console.
type ptyConsole struct {
	f *os.File
	r *bufio.Reader
}

func (c *ptyConsole) Printf(format string, args ...any) { fmt.Fprintf(c.f, format, args...) }

func (c *ptyConsole) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func main() {
	configFile := pflag.StringP("config-file", "c", "", "Optional configuration file; defaults used if empty.")
	toneHz := pflag.Float64P("tone-hz", "f", 900, "Synthetic target tone frequency in Hz.")
	toneAngleDeg := pflag.Float64P("tone-angle-deg", "a", 30, "Bearing of the synthetic tone, degrees (-90 left .. 90 right).")
	amplitude := pflag.Float64P("amplitude", "A", 20000, "Synthetic tone amplitude.")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - bench simulator for the acoustic direction-finding robot core.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "penguin-mother-sim: %v\n", err)
		os.Exit(1)
	}
	rlog.SetLevel(cfg.LogLevel)
	log := rlog.New("sim")

	ptmx, tty, err := pty.Open()
	if err != nil {
		log.Error("pty open failed", "err", err)
		os.Exit(1)
	}
	defer ptmx.Close()
	defer tty.Close()
	fmt.Printf("penguin-mother-sim: operator console attached at %s\n", tty.Name())

	console := &ptyConsole{f: tty, r: bufio.NewReader(tty)}

	mic := &halfake.Mic{}
	rng := halfake.NewRange(uint16(cfg.MaxMM))
	ir := &halfake.IR{}
	wheels := &halfake.Wheels{}
	led := &halfake.LED{}

	r, err := robot.New(cfg, robot.Hardware{
		Mic:     mic,
		Range:   rng,
		IR:      ir,
		Wheels:  wheels,
		LED:     led,
		Console: console,
	})
	if err != nil {
		log.Error("robot init failed", "err", err)
		os.Exit(1)
	}

	stopTone := make(chan struct{})
	go feedTone(mic, cfg, *toneHz, *toneAngleDeg, *amplitude, stopTone)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		close(stopTone)
		r.Stop()
	}()

	log.Info("penguin-mother-sim running", "tone_hz", *toneHz, "tone_angle_deg", *toneAngleDeg, "console", tty.Name())
	if err := r.Run(); err != nil {
		log.Error("robot run failed", "err", err)
		os.Exit(1)
	}
}

// feedTone synthesizes a 4-channel interleaved tone at toneHz with the
// inter-mic delays an acoustic source at angleDeg would produce, and
// pushes frames to mic at a realtime-ish cadence until stop closes.
// Grounded on cmd/gen_tone's bit-at-a-time software tone generator,
// generalized here to four phase-shifted channels.
func feedTone(mic *halfake.Mic, cfg config.Config, hz, angleDeg, amplitude float64, stop <-chan struct{}) {
	const framesPerBlock = 256
	buf := make([]int16, framesPerBlock*int(acoustic.MicCount))

	angleRad := angleDeg * math.Pi / 180
	delayLR := cfg.MicSpacingM * math.Sin(angleRad) / cfg.SpeedOfSoundMps
	delayBF := cfg.MicSpacingM * math.Cos(angleRad) / cfg.SpeedOfSoundMps

	delay := [acoustic.MicCount]float64{
		acoustic.MicRight: 0,
		acoustic.MicLeft:  delayLR,
		acoustic.MicBack:  0,
		acoustic.MicFront: delayBF,
	}

	omega := 2 * math.Pi * hz
	var sampleIdx int64

	ticker := time.NewTicker(time.Duration(float64(framesPerBlock) / float64(cfg.SampleRateHz) * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		for n := 0; n < framesPerBlock; n++ {
			t := float64(sampleIdx+int64(n)) / float64(cfg.SampleRateHz)
			for m := acoustic.Mic(0); m < acoustic.MicCount; m++ {
				v := amplitude * math.Sin(omega*(t-delay[m]))
				buf[n*int(acoustic.MicCount)+int(m)] = clampInt16(v)
			}
		}
		sampleIdx += int64(framesPerBlock)

		mic.Feed(buf)
	}
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
