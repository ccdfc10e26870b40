package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// TCPTransport is a Transport over a Modbus-TCP network connection,
// grounded on the polling short-deadline read loop of the teacher's TCP
// client: write once, then read in small deadline-bounded chunks until
// either the expected byte count arrives or the overall timeout elapses.
type TCPTransport struct {
	timeNow func() time.Time

	dialContextFunc func(ctx context.Context, address string) (net.Conn, error)

	address string
	conn    net.Conn
	hooks   Hooks
}

// NewTCPTransport builds a TCPTransport targeting host:port.
func NewTCPTransport(host string, port uint16) *TCPTransport {
	return &TCPTransport{
		timeNow:         time.Now,
		dialContextFunc: dialTCP,
		address:         fmt.Sprintf("%s:%d", host, port),
	}
}

// WithTCPHooks attaches byte-level logging hooks.
func (t *TCPTransport) WithTCPHooks(h Hooks) *TCPTransport {
	t.hooks = h
	return t
}

func dialTCP(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   defaultConnectTimeout,
		KeepAlive: 15 * time.Second,
	}
	return dialer.DialContext(ctx, "tcp", address)
}

// Open dials the TCP connection. Failure here is the spec's error 19
// ("cannot establish TCP connection") - the caller maps it.
func (t *TCPTransport) Open(ctx context.Context) error {
	conn, err := t.dialContextFunc(ctx, t.address)
	if err != nil {
		return &ClientError{Err: err}
	}
	t.conn = conn
	return nil
}

// Write sends data, bounded by a fixed write deadline.
func (t *TCPTransport) Write(data []byte) error {
	if t.conn == nil {
		return ErrClientNotConnected
	}
	if err := t.conn.SetWriteDeadline(t.timeNow().Add(1 * time.Second)); err != nil {
		return &ClientError{Err: err}
	}
	if t.hooks != nil {
		t.hooks.BeforeWrite(data)
	}
	if _, err := t.conn.Write(data); err != nil {
		return &ClientError{Err: err}
	}
	return nil
}

// ReadUpTo reads until expectedLen bytes have arrived or timeout
// elapses, using a single-descriptor-readiness-like loop of short
// per-iteration read deadlines (spec.md §4.6, Awaiting state).
func (t *TCPTransport) ReadUpTo(expectedLen int, timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, ErrClientNotConnected
	}

	const maxBytes = tcpPacketMaxLen + 10
	received := make([]byte, maxBytes)
	total := 0
	deadline := t.timeNow().Add(timeout)

	for {
		if t.timeNow().After(deadline) {
			break
		}
		_ = t.conn.SetReadDeadline(t.timeNow().Add(500 * time.Microsecond))
		n, err := t.conn.Read(received[total:])
		if t.hooks != nil {
			t.hooks.AfterEachRead(received[total:total+n], n, err)
		}
		total += n
		if total > tcpPacketMaxLen {
			return nil, ErrPacketTooLong
		}
		if total >= expectedLen {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				return received[:total], &ClientError{Err: err}
			}
		}
	}
	return received[:total], nil
}

// Close closes the network connection.
func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// SetDirection is a no-op for TCP: there is no half-duplex line to drive.
func (t *TCPTransport) SetDirection(dir LineDirection) {}
