// Package scanlog saves every scan's detected sources to a daily-named
// CSV file, the way the teacher's src/log.go saves received APRS packets:
// same daily-rotation strategy, same "write a header only if the file
// didn't already exist" check, same encoding/csv writer — repointed from
// packet fields to acoustic source fields. This is a supplemented
// feature (SPEC_FULL.md §3/§4): the original C drafts logged every
// detected frequency/angle over the UART for later analysis; the
// distilled spec.md folded that into prose, and this restores it as an
// optional diagnostic sink.
package scanlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/CoVoCre/penguin-mother/internal/acoustic"
)

// Log appends one CSV row per detected source on every call to Write. A
// new file is opened whenever the formatted name changes (UTC day
// boundary, by default). An empty dir disables the feature entirely,
// matching log.go's "empty string disables feature."
type Log struct {
	dir        string
	nameLayout string
	openName   string
	file       *os.File
	sampleRate int
	fftSize    int
}

// Open prepares a scan log writing into dir, using the strftime-style
// nameLayout (e.g. "%Y-%m-%d.csv") to pick a new file name at each
// rotation boundary. Open does not create the file until the first Write
// — a scan-less run never creates an empty log, matching log.go's
// open-on-first-write behavior.
func Open(dir, nameLayout string, sampleRateHz, fftSize int) (*Log, error) {
	if dir == "" {
		return &Log{}, nil
	}

	if stat, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("scanlog: stat %s: %w", dir, err)
		}
		if err := os.Mkdir(dir, 0o755); err != nil {
			return nil, fmt.Errorf("scanlog: create %s: %w", dir, err)
		}
	} else if !stat.IsDir() {
		return nil, fmt.Errorf("scanlog: %s is not a directory", dir)
	}

	// Validate the layout eagerly so a typo surfaces at startup rather
	// than on the first scan.
	if _, err := strftime.Format(nameLayout, time.Now()); err != nil {
		return nil, fmt.Errorf("scanlog: bad name layout %q: %w", nameLayout, err)
	}

	return &Log{dir: dir, nameLayout: nameLayout, sampleRate: sampleRateHz, fftSize: fftSize}, nil
}

// Write appends one row per source in result. No-op if the log is
// disabled (empty dir).
func (l *Log) Write(now time.Time, result acoustic.ScanResult) error {
	if l.dir == "" {
		return nil
	}

	name, err := strftime.Format(l.nameLayout, now.UTC())
	if err != nil {
		return fmt.Errorf("scanlog: format name: %w", err)
	}

	if l.file != nil && name != l.openName {
		l.Close()
	}

	if l.file == nil {
		full := filepath.Join(l.dir, name)
		_, statErr := os.Stat(full)
		alreadyThere := statErr == nil

		f, err := os.OpenFile(full, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return fmt.Errorf("scanlog: open %s: %w", full, err)
		}
		l.file = f
		l.openName = name

		if !alreadyThere {
			fmt.Fprintf(l.file, "utime,isotime,freq_bin,freq_hz,amplitude\n")
		}
	}

	w := csv.NewWriter(l.file)
	for _, s := range result {
		hz := acoustic.BinToHz(s.FreqBin, l.sampleRate, l.fftSize)
		w.Write([]string{
			fmt.Sprintf("%d", now.Unix()),
			now.UTC().Format("2006-01-02T15:04:05Z"),
			fmt.Sprintf("%d", s.FreqBin),
			fmt.Sprintf("%.1f", hz),
			fmt.Sprintf("%.1f", s.Amplitude),
		})
	}
	w.Flush()
	return w.Error()
}

// Close closes any open file.
func (l *Log) Close() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.openName = ""
	}
}
