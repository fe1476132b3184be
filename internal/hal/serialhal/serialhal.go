// Package serialhal implements hal.Console over a serial TTY using
// github.com/pkg/term, the way the teacher's serial_port.go opens and
// line-disciplines a device: term.Open + RawMode, then byte-at-a-time
// reads assembled into lines here since the Console contract is
// line-oriented (spec.md §6) where the teacher's was byte-oriented KISS
// framing.
package serialhal

import (
	"bufio"
	"fmt"

	"github.com/pkg/term"

	"github.com/CoVoCre/penguin-mother/internal/rlog"
)

// Serial is a line-oriented operator console over a raw serial TTY.
type Serial struct {
	t   *term.Term
	r   *bufio.Reader
	log *rlog.Logger
}

// Open opens device at baud (0 leaves the current speed alone, matching
// serial_port_open's convention) in raw mode.
func Open(device string, baud int) (*Serial, error) {
	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialhal: open %s: %w", device, err)
	}

	switch baud {
	case 0:
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := t.SetSpeed(baud); err != nil {
			t.Close()
			return nil, fmt.Errorf("serialhal: set speed %d on %s: %w", baud, device, err)
		}
	default:
		return nil, fmt.Errorf("serialhal: unsupported speed %d", baud)
	}

	return &Serial{t: t, r: bufio.NewReader(t), log: rlog.New("serialhal")}, nil
}

// Printf writes formatted output to the console.
func (s *Serial) Printf(format string, args ...any) {
	if _, err := fmt.Fprintf(s.t, format, args...); err != nil {
		s.log.Warn("console write failed", "err", err)
	}
}

// ReadLine blocks for one newline-terminated line, per hal.Console:
// uncancellable, matching the teacher's serial_port_get1 loop shape.
func (s *Serial) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("serialhal: read: %w", err)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// Close releases the underlying TTY.
func (s *Serial) Close() error {
	return s.t.Close()
}
