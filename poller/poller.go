// Package poller implements the poll engine state machine
// (Opening -> Ready -> Sending -> Awaiting -> Decoding -> Sleeping)
// described in spec.md §4.6: one transport connection, a bounded or
// unbounded loop of request/response cycles at a fixed cadence.
package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	modbus "github.com/brineworks/modbus-poller"
	"github.com/brineworks/modbus-poller/gpio"
)

// NewTransportFunc builds the Transport to drive for a given target.
type NewTransportFunc func(target modbus.Target) (modbus.Transport, error)

// NewDirectionFunc builds the half-duplex direction port for a GPIO pin.
type NewDirectionFunc func(pin int) (modbus.LineDirection, error)

// Config configures a Poller.
type Config struct {
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// TimeNow defaults to time.Now; overridable so tests can control pacing.
	TimeNow func() time.Time
	// NewTransport defaults to DefaultTransport.
	NewTransport NewTransportFunc
	// NewDirection defaults to DefaultDirection.
	NewDirection NewDirectionFunc
}

// ErrAlreadyRunning is returned by Run when the same Poller instance is
// already executing a request. It is a plain sentinel, not part of the
// closed ErrorRecord taxonomy (spec.md §6): it describes a concurrency
// misuse of this Go API, not a Modbus-level condition a caller would see
// from the wire. Matches the teacher's own `errors.New("poller is
// already running")` guard in its Poll method.
var ErrAlreadyRunning = errors.New("poller is already running")

// Poller drives one PollRequest at a time through the engine's state
// machine. A Poller instance is safe to reuse sequentially but a single
// instance does not run two polls concurrently.
type Poller struct {
	logger       *slog.Logger
	timeNow      func() time.Time
	newTransport NewTransportFunc
	newDirection NewDirectionFunc

	isRunning atomic.Bool
}

// New builds a Poller, filling unset Config fields with defaults.
func New(conf Config) *Poller {
	p := &Poller{
		logger:       conf.Logger,
		timeNow:      conf.TimeNow,
		newTransport: conf.NewTransport,
		newDirection: conf.NewDirection,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.timeNow == nil {
		p.timeNow = time.Now
	}
	if p.newTransport == nil {
		p.newTransport = DefaultTransport
	}
	if p.newDirection == nil {
		p.newDirection = DefaultDirection
	}
	return p
}

// DefaultTransport picks TCPTransport or SerialTransport by the
// Target's tag.
func DefaultTransport(target modbus.Target) (modbus.Transport, error) {
	if target.IsTCP() {
		return modbus.NewTCPTransport(target.Host(), target.Port()), nil
	}
	return modbus.NewSerialTransport(target.SerialName(), target.Baud()), nil
}

// DefaultDirection opens a Raspberry Pi GPIO direction line, or returns
// nil for a negative (absent) pin.
func DefaultDirection(pin int) (modbus.LineDirection, error) {
	if pin < 0 {
		return nil, nil
	}
	return gpio.Open(pin)
}

// Run executes req to completion and returns either the last observed
// DecodedValues or a fatal ErrorRecord (spec.md §4.6). observer may be
// nil. Run returns ErrAlreadyRunning, not a Result, if this Poller
// instance is already executing another request.
func (p *Poller) Run(ctx context.Context, req modbus.PollRequest, observer modbus.RowObserver) (modbus.Result, error) {
	if wasRunning := p.isRunning.Swap(true); wasRunning {
		return modbus.Result{}, ErrAlreadyRunning
	}
	defer p.isRunning.Store(false)

	if req.Target.IsSerial() {
		release, errRec := modbus.AcquireDevice(req.Target.SerialName(), req.Timeout())
		if errRec != nil {
			return modbus.Result{Err: errRec}, nil
		}
		defer release()
	}

	transport, err := p.newTransport(req.Target)
	if err != nil {
		return modbus.Result{Err: modbus.NewError(openErrorCode(req.Target))}, nil
	}

	if req.DirectionPin >= 0 {
		direction, derr := p.newDirection(req.DirectionPin)
		if derr != nil {
			return modbus.Result{Err: modbus.NewError(modbus.ErrInvalidGPIOPin)}, nil
		}
		if direction != nil {
			transport.SetDirection(direction)
			if closer, ok := direction.(io.Closer); ok {
				defer closer.Close()
			}
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, req.Timeout())
	defer cancel()
	if err := transport.Open(openCtx); err != nil {
		p.logger.Error("failed to open transport", "target", req.Target.String(), "err", err)
		return modbus.Result{Err: modbus.NewError(openErrorCode(req.Target))}, nil
	}
	defer transport.Close()

	return p.run(ctx, transport, req, observer), nil
}

// openErrorCode maps a failed Opening state to the spec's 19 (TCP) or
// 115 (serial) error code.
func openErrorCode(target modbus.Target) int {
	if target.IsTCP() {
		return modbus.ErrTCPConnectFailed
	}
	return modbus.ErrSerialOpenTimeout
}

func (p *Poller) run(ctx context.Context, transport modbus.Transport, req modbus.PollRequest, observer modbus.RowObserver) modbus.Result {
	pollCount := req.PollCount
	unbounded := pollCount == 0
	if unbounded {
		pollCount = 1
	}

	var last modbus.Result
	for i := 0; i < pollCount; i++ {
		select {
		case <-ctx.Done():
			return p.cancelResult(unbounded, last, observer)
		default:
		}

		pollStart := p.timeNow()
		result := p.pollOnce(transport, req)
		last = result

		if result.Err != nil {
			if observer != nil {
				observer.OnError(result.Err)
			}
			p.logger.Error("poll failed", "code", result.Err.Code, "message", result.Err.Message)
			if result.Err.IsFatal() {
				break
			}
		} else {
			if observer != nil {
				observer.OnRow(result.Values)
			}
		}

		if unbounded {
			pollCount++
		}
		if i+1 >= pollCount {
			break
		}

		if waited := p.sleepUntilNextPoll(ctx, pollStart, req.Delay()); !waited {
			return p.cancelResult(unbounded, last, observer)
		}
	}
	return last
}

// sleepUntilNextPoll waits until pollStart+delay, returning false if
// cancellation was observed first (spec.md §4.6, Sleeping state).
func (p *Poller) sleepUntilNextPoll(ctx context.Context, pollStart time.Time, delay time.Duration) bool {
	wait := time.Until(pollStart.Add(delay))
	if wait <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// cancelResult implements spec.md §4.6's cancellation semantics: bounded
// polling returns error 107, unbounded polling returns the last
// successful result (or the latest error if none succeeded).
func (p *Poller) cancelResult(unbounded bool, last modbus.Result, observer modbus.RowObserver) modbus.Result {
	if unbounded {
		return last
	}
	errRec := modbus.NewError(modbus.ErrInterrupted)
	if observer != nil {
		observer.OnError(errRec)
	}
	return modbus.Result{Err: errRec}
}

// pollOnce runs Sending, Awaiting and Decoding for a single request/
// response cycle.
func (p *Poller) pollOnce(transport modbus.Transport, req modbus.PollRequest) modbus.Result {
	reqPacket, errRec := modbus.BuildRequest(req.Target, req.DeviceID, req.FunctionCode, req.StartAddr, req.WriteValue, req.NumRegs())
	if errRec != nil {
		return modbus.Result{Err: errRec}
	}

	if err := transport.Write(reqPacket.Frame); err != nil {
		return modbus.Result{Err: classifyTransportErr(err)}
	}

	expectedLen := modbus.ExpectedResponseLength(req.FunctionCode, req.NumRegs())
	data, err := transport.ReadUpTo(expectedLen, req.Timeout())
	if err != nil {
		return modbus.Result{Err: classifyTransportErr(err)}
	}
	if len(data) == 0 {
		return modbus.Result{Err: modbus.NewError(modbus.ErrCommTimeout)}
	}

	pdu, errRec := modbus.ExtractPDU(req.Target, data)
	if errRec != nil {
		return modbus.Result{Err: errRec}
	}

	payload, errRec := modbus.ValidateResponse(req.DeviceID, req.FunctionCode, pdu, reqPacket.ExpectedEcho)
	if errRec != nil {
		return modbus.Result{Err: errRec}
	}

	values, errRec := modbus.DecodeRegisters(payload, req.FunctionCode, req.DataType, req.ByteSwap, req.WordSwap, req.RawBytes, req.Count)
	if errRec != nil {
		return modbus.Result{Err: errRec}
	}
	return modbus.Result{Values: values}
}

// classifyTransportErr maps a Transport error to the spec's 106
// (socket closed / garbage, fatal) or 87 (comm timeout, per-poll).
func classifyTransportErr(err error) *modbus.ErrorRecord {
	if errors.Is(err, modbus.ErrClientNotConnected) {
		return modbus.NewError(modbus.ErrUnexpectedReturnData)
	}
	return modbus.NewError(modbus.ErrCommTimeout)
}
