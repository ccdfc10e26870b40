// Package gpio drives the half-duplex RS-485 direction pin over
// Raspberry Pi GPIO, grounded on the same rpio.Open/Pin.Output/Pin.High
// idiom used for general-purpose digital output elsewhere in the pack.
package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// Direction is a two-state output line: Tx drives the transceiver to
// transmit, Rx releases it back to listen.
type Direction struct {
	mu      sync.Mutex
	pin     rpio.Pin
	opened  bool
}

// Open initializes the rpio memory mapping and configures pin as an
// output, defaulting to receive.
func Open(pin int) (*Direction, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: failed to open chip: %w", err)
	}
	d := &Direction{pin: rpio.Pin(pin), opened: true}
	d.pin.Output()
	d.pin.Low()
	return d, nil
}

// SetTx drives the pin high, switching the transceiver to transmit.
func (d *Direction) SetTx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pin.High()
	return nil
}

// SetRx drives the pin low, switching the transceiver back to receive.
func (d *Direction) SetRx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pin.Low()
	return nil
}

// Close releases the rpio memory mapping.
func (d *Direction) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil
	}
	d.opened = false
	return rpio.Close()
}
