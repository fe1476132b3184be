// Package config holds every tuning constant listed in the firmware's
// external config surface. Defaults match the "Typical" column; an
// operator may override them with a YAML file and, for the handful that
// matter at the command line, a pflag override in cmd/penguin-mother.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete set of tuning constants bound into the firmware.
type Config struct {
	// Acoustic front-end / spectral core.
	FFTSize int `yaml:"fft_size"`
	BinLow  int `yaml:"bin_low"`
	BinHigh int `yaml:"bin_high"`

	AmplitudeThreshold float64 `yaml:"amplitude_threshold"`
	FreqThresholdBins  int     `yaml:"freq_threshold_bins"`
	MaxSources         int     `yaml:"max_sources"`

	SampleRateHz int `yaml:"sample_rate_hz"`

	// Bearing estimation.
	PhaseDiffLimitDeg float64 `yaml:"phase_diff_limit_deg"`
	EMAWeight         float64 `yaml:"ema_weight"`
	MicSpacingM       float64 `yaml:"mic_spacing_m"`
	SpeedOfSoundMps   float64 `yaml:"speed_of_sound_mps"`

	// Motion controller.
	StopMM         float64       `yaml:"stop_mm"`
	MaxMM          float64       `yaml:"max_mm"`
	IRStop         float64       `yaml:"ir_stop"`
	MaxSPS         float64       `yaml:"max_sps"`
	MaxDiffSPS     float64       `yaml:"max_diff_sps"`
	MinSPS         float64       `yaml:"min_sps"`
	MaxCorrDeg     float64       `yaml:"max_corr_deg"`
	TCtrl          time.Duration `yaml:"t_ctrl"`
	DiscardSamples int           `yaml:"discard_samples"`
	InitRangeMM    float64       `yaml:"init_range_mm"`
	MotorLimit     float64       `yaml:"motor_limit"`

	// Mission FSM.
	PredatorBinLow  int           `yaml:"predator_bin_low"`
	PredatorBinHigh int           `yaml:"predator_bin_high"`
	ReachedLEDDelay time.Duration `yaml:"reached_led_delay"`
	ReachedBackup   time.Duration `yaml:"reached_backup_duration"`

	// Ambient.
	ScanLogDir        string `yaml:"scan_log_dir"`
	ScanLogNameLayout string `yaml:"scan_log_name_layout"`
	LogLevel          string `yaml:"log_level"`
}

// Default returns the firmware's built-in defaults, matching spec.md §6's
// "Typical" column.
func Default() Config {
	return Config{
		FFTSize: 1024,
		// BinLow/BinHigh are driver-specific per spec.md §4.2; these
		// defaults scan bins 32..191, i.e. 500 Hz up to just under
		// 3 kHz at the default 16 kHz sample rate (bin width 15.625 Hz),
		// so both a 900 Hz target tone and the ~1000 Hz predator band
		// fall inside it.
		BinLow:  32,
		BinHigh: 192,

		AmplitudeThreshold: 15000,
		FreqThresholdBins:  3,
		MaxSources:         5,

		SampleRateHz: 16000,

		PhaseDiffLimitDeg: 75.6,
		EMAWeight:         0.2,
		MicSpacingM:       0.06,
		SpeedOfSoundMps:   343,

		StopMM:         35,
		MaxMM:          350,
		IRStop:         300,
		MaxSPS:         500,
		MaxDiffSPS:     222,
		MinSPS:         150,
		MaxCorrDeg:     40,
		TCtrl:          10 * time.Millisecond,
		DiscardSamples: 50,
		InitRangeMM:    175, // neutral seed, strictly between StopMM and MaxMM
		MotorLimit:     1100,

		// hz_to_bin(950..1050) at the defaults above.
		PredatorBinLow:  61,
		PredatorBinHigh: 67,
		ReachedLEDDelay: 1500 * time.Millisecond,
		ReachedBackup:   3 * time.Second,

		ScanLogDir:        "",
		ScanLogNameLayout: "%Y-%m-%d.csv",
		LogLevel:          "info",
	}
}

// Load reads a YAML config file and overlays it onto Default(). A missing
// path is not an error — the caller gets pure defaults, matching the
// teacher's config.go treating a missing direwolf.conf as "use built-ins."
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the invariants the rest of the system assumes hold.
func (c Config) Validate() error {
	if c.FFTSize <= 0 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("config: fft_size must be a positive power of two, got %d", c.FFTSize)
	}
	if c.BinLow < 0 || c.BinHigh <= c.BinLow || c.BinHigh >= c.FFTSize {
		return fmt.Errorf("config: invalid scan band [%d, %d) for fft_size %d", c.BinLow, c.BinHigh, c.FFTSize)
	}
	if c.MaxSources <= 0 {
		return fmt.Errorf("config: max_sources must be positive, got %d", c.MaxSources)
	}
	if c.FreqThresholdBins <= 0 {
		return fmt.Errorf("config: freq_threshold_bins must be positive, got %d", c.FreqThresholdBins)
	}
	if c.MaxSPS+c.MaxDiffSPS+c.MinSPS > c.MotorLimit {
		return fmt.Errorf("config: max_sps+max_diff_sps+min_sps (%g) exceeds motor_limit (%g)",
			c.MaxSPS+c.MaxDiffSPS+c.MinSPS, c.MotorLimit)
	}
	if c.StopMM <= 0 || c.MaxMM <= c.StopMM {
		return fmt.Errorf("config: invalid ToF envelope [stop_mm=%g, max_mm=%g]", c.StopMM, c.MaxMM)
	}
	return nil
}

// BandSize returns the number of bins in the scanned band.
func (c Config) BandSize() int { return c.BinHigh - c.BinLow }
