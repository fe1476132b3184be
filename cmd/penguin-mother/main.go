// Command penguin-mother is the real-hardware entry point: wires a
// PortAudio microphone, gpio-cdev wheels/IR/LED, and a serial console
// into the robot, then runs until interrupted. Grounded on the
// teacher's cmd/direwolf/main.go: pflag-based flags, a config file
// loaded first and selectively overridden by flags, then a single
// blocking run call guarded by a signal handler.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/CoVoCre/penguin-mother/internal/config"
	"github.com/CoVoCre/penguin-mother/internal/hal"
	"github.com/CoVoCre/penguin-mother/internal/hal/audiohal"
	"github.com/CoVoCre/penguin-mother/internal/hal/gpiohal"
	"github.com/CoVoCre/penguin-mother/internal/hal/serialhal"
	"github.com/CoVoCre/penguin-mother/internal/rlog"
	"github.com/CoVoCre/penguin-mother/internal/robot"
)

func main() {
	configFile := pflag.StringP("config-file", "c", "penguin-mother.yaml", "Configuration file name.")
	logLevel := pflag.StringP("log-level", "d", "", "Override the configured log level (debug, info, warn, error).")
	gpioChip := pflag.StringP("gpio-chip", "g", "gpiochip0", "gpio-cdev chip device for wheels/IR/LED.")
	consoleDevice := pflag.StringP("console-device", "s", "/dev/ttyUSB0", "Serial device for the operator console.")
	consoleBaud := pflag.IntP("console-baud", "B", 115200, "Serial console baud rate.")
	autoSerial := pflag.Bool("auto-serial", false, "Auto-detect the operator console's USB-serial device; -console-device is used only if detection fails.")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - acoustic direction-finding robot core.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "penguin-mother: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	rlog.SetLevel(cfg.LogLevel)
	log := rlog.New("main")

	consoleDev := *consoleDevice
	if *autoSerial {
		detected, err := serialhal.AutoDetectConsole()
		if err != nil {
			log.Error("auto-serial detection failed, falling back to -console-device", "err", err)
		} else {
			consoleDev = detected
		}
	}

	console, err := serialhal.Open(consoleDev, *consoleBaud)
	if err != nil {
		log.Error("console open failed", "err", err)
		os.Exit(1)
	}
	defer console.Close()

	wheels, err := gpiohal.NewStepperWheels(*gpioChip, 0, 1, 2, 3)
	if err != nil {
		log.Error("wheel driver init failed", "err", err)
		os.Exit(1)
	}
	defer wheels.Close()

	ranger, err := gpiohal.NewRanger(*gpioChip, 4, 5)
	if err != nil {
		log.Error("range sensor init failed", "err", err)
		os.Exit(1)
	}
	defer ranger.Close()

	ir, err := gpiohal.NewIRArray(*gpioChip, [hal.IRChannelCount]int{6, 7, 8, 9})
	if err != nil {
		log.Error("ir array init failed", "err", err)
		os.Exit(1)
	}
	defer ir.Close()

	led, err := gpiohal.NewLED(*gpioChip, 10)
	if err != nil {
		log.Error("led init failed", "err", err)
		os.Exit(1)
	}
	defer led.Close()

	mic := audiohal.New(cfg.SampleRateHz, cfg.FFTSize)

	r, err := robot.New(cfg, robot.Hardware{
		Mic:     mic,
		Range:   ranger,
		IR:      ir,
		Wheels:  wheels,
		LED:     led,
		Console: console,
	})
	if err != nil {
		log.Error("robot init failed", "err", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		r.Stop()
	}()

	log.Info("penguin-mother starting", "fft_size", cfg.FFTSize, "sample_rate_hz", cfg.SampleRateHz)
	if err := r.Run(); err != nil {
		log.Error("robot run failed", "err", err)
		os.Exit(1)
	}
}
