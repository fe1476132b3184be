package serialhal

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

// AutoDetectConsole finds the first tty device node whose device chain
// includes a usb-serial or USB-ACM parent, for the "-auto-serial"
// convenience flag (cmd/penguin-mother): no device path to keep track
// of when re-plugging the operator's USB console cable.
func AutoDetectConsole() (string, error) {
	u := udev.Udev{}
	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return "", fmt.Errorf("serialhal: match tty subsystem: %w", err)
	}

	devices, err := enum.Devices()
	if err != nil {
		return "", fmt.Errorf("serialhal: enumerate tty devices: %w", err)
	}

	for _, d := range devices {
		node := d.Devnode()
		if node == "" {
			continue
		}
		if parent := d.ParentWithSubsystemDevtype("usb", "usb_device"); parent != nil {
			return node, nil
		}
	}

	return "", fmt.Errorf("serialhal: no USB-attached tty device found")
}
