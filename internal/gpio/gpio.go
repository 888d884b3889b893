// Package gpio reads the hardware start/stop button.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the button line.
type Reader interface {
	// Read returns true while the button is held down.
	// The line is active-low: a pressed button pulls it to ground.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}
