package modbus

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/tarm/serial"
)

// SerialTransport is a Transport over a Modbus-RTU serial port, grounded
// on the teacher's serial client: write, sleep briefly so the device has
// time to start responding, then read in a loop bounded by an overall
// timeout. Half-duplex direction control wraps the write.
type SerialTransport struct {
	name string
	baud int

	openFunc func(name string, baud int) (io.ReadWriteCloser, error)

	port      io.ReadWriteCloser
	isFlusher bool
	direction LineDirection
	hooks     Hooks
}

// NewSerialTransport builds a SerialTransport for the named device at
// the given baud rate (0 defaults to 9600 in Target.Baud already).
func NewSerialTransport(name string, baud int) *SerialTransport {
	return &SerialTransport{
		name:      name,
		baud:      baud,
		openFunc:  openTarmSerialPort,
		direction: noopDirection{},
	}
}

// WithSerialHooks attaches byte-level logging hooks.
func (t *SerialTransport) WithSerialHooks(h Hooks) *SerialTransport {
	t.hooks = h
	return t
}

func openTarmSerialPort(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 50 * time.Millisecond,
	})
}

// Open opens the serial device. Failure to acquire it is the spec's
// error 115 ("cannot open serial port within timeout") - the caller,
// which retries against the device lock, maps it.
func (t *SerialTransport) Open(ctx context.Context) error {
	port, err := t.openFunc(t.name, t.baud)
	if err != nil {
		return &ClientError{Err: err}
	}
	t.port = port
	_, t.isFlusher = port.(Flusher)
	return nil
}

// Flusher is the interface for flushing unread/unwritten serial buffers.
type Flusher interface {
	Flush() error
}

// SetDirection installs the half-duplex direction port this transport
// toggles around each write. A nil dir resets it to a no-op.
func (t *SerialTransport) SetDirection(dir LineDirection) {
	if dir == nil {
		dir = noopDirection{}
	}
	t.direction = dir
}

// Write drives the half-duplex line to transmit, writes data, then
// releases it back to receive (spec.md §4.6, Sending state).
func (t *SerialTransport) Write(data []byte) error {
	if t.port == nil {
		return ErrClientNotConnected
	}
	if err := t.direction.SetTx(); err != nil {
		return &ClientError{Err: err}
	}
	if t.hooks != nil {
		t.hooks.BeforeWrite(data)
	}
	_, err := t.port.Write(data)
	if dirErr := t.direction.SetRx(); dirErr != nil && err == nil {
		err = dirErr
	}
	if err != nil {
		_ = t.flush()
		return &ClientError{Err: err}
	}
	return nil
}

// ReadUpTo reads until expectedLen bytes arrive or timeout elapses. A
// short sleep after write gives the device time to start responding,
// matching the teacher's serial client.
func (t *SerialTransport) ReadUpTo(expectedLen int, timeout time.Duration) ([]byte, error) {
	if t.port == nil {
		return nil, ErrClientNotConnected
	}

	time.Sleep(30 * time.Millisecond)

	const maxBytes = rtuPacketMaxLen + 10
	received := make([]byte, maxBytes)
	total := 0
	deadline := time.Now().Add(timeout)

	for {
		if time.Now().After(deadline) {
			break
		}
		n, err := t.port.Read(received[total:])
		if t.hooks != nil {
			t.hooks.AfterEachRead(received[total:total+n], n, err)
		}
		total += n
		if total > rtuPacketMaxLen {
			_ = t.flush()
			return nil, ErrPacketTooLong
		}
		if total >= expectedLen {
			_ = t.flush()
			break
		}
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			_ = t.flush()
			return received[:total], &ClientError{Err: err}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return received[:total], nil
}

func (t *SerialTransport) flush() error {
	if !t.isFlusher {
		return nil
	}
	return t.port.(Flusher).Flush()
}

// Close closes the serial port.
func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	return t.port.Close()
}
