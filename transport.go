package modbus

import (
	"context"
	"errors"
	"time"
)

const (
	// tcpPacketMaxLen is the maximum length in bytes a valid Modbus TCP
	// packet can be.
	//
	// Quote from MODBUS Application Protocol Specification V1.1b3:
	//   The size of the MODBUS PDU is limited by the size constraint inherited from the first
	//   MODBUS implementation on Serial Line network (max. RS485 ADU = 256 bytes).
	//   Therefore: MODBUS PDU for serial line communication = 256 - Server address (1 byte) - CRC (2 bytes) = 253 bytes.
	//   Consequently: RS232/RS485 ADU = 253 bytes + Server address (1 byte) + CRC (2 bytes) = 256 bytes.
	//   TCP MODBUS ADU = 253 bytes + MBAP (7 bytes) = 260 bytes.
	tcpPacketMaxLen = 7 + 253
	rtuPacketMaxLen = 256

	defaultConnectTimeout = 1 * time.Second
)

// ErrPacketTooLong indicates the server sent more bytes than any valid
// Modbus packet can hold.
var ErrPacketTooLong = &ClientError{Err: errors.New("received more bytes than a valid Modbus packet can hold")}

// ErrClientNotConnected indicates the transport has not been opened yet.
var ErrClientNotConnected = &ClientError{Err: errors.New("transport is not connected")}

// ClientError wraps a transport-level failure that is possibly retryable.
type ClientError struct {
	Err error
}

// Error returns the contained error message.
func (e *ClientError) Error() string { return e.Err.Error() }

// Unwrap allows unwrapping with errors.Is and errors.As.
func (e *ClientError) Unwrap() error { return e.Err }

// LineDirection is the two-state digital-output port that drives a
// half-duplex RS-485 transceiver's transmit/receive direction pin
// (spec.md §9). The engine sets it before writing a request and after,
// regardless of whether a real line is attached.
type LineDirection interface {
	SetTx() error
	SetRx() error
}

// noopDirection is the LineDirection used when no pin is configured.
type noopDirection struct{}

func (noopDirection) SetTx() error { return nil }
func (noopDirection) SetRx() error { return nil }

// Transport is the narrow byte-level interface the poll engine drives:
// open, write, a bounded read, close, and an optional half-duplex
// direction port (spec.md §2 component 7, §5).
type Transport interface {
	Open(ctx context.Context) error
	Write(data []byte) error
	ReadUpTo(expectedLen int, timeout time.Duration) ([]byte, error)
	Close() error
	SetDirection(dir LineDirection)
}

// Hooks allows logging bytes written/read by a Transport. Do not modify
// the given slice - it is not a copy.
type Hooks interface {
	BeforeWrite(toWrite []byte)
	AfterEachRead(received []byte, n int, err error)
}
