//+build windows

package hal

import (
	"time"
)

// The GPIO backed backends need /dev/gpiomem respectively the gpio
// character device, only the simulator is available on windows.

func openGpioMem(lines [Channels]int, bounce time.Duration) (Raw, error) {
	return nil, ErrNotSupported
}

func openGpioDev(lines [Channels]int, bounce time.Duration) (Raw, error) {
	return nil, ErrNotSupported
}
