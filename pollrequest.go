package modbus

import (
	"time"

	"github.com/brineworks/modbus-poller/packet"
)

// PollRequest is an immutable, validated description of one poll run
// (spec.md §3). Build it with ValidatePollRequest, which checks every
// field. The poll engine entry point (poller.Poller.Run) takes a
// PollRequest as given and does not validate it again, so a PollRequest
// assembled directly from its exported fields skips every check.
type PollRequest struct {
	Target       Target
	DeviceID     int
	FunctionCode uint8

	// StartAddr is the effective, zero-based wire address (already
	// adjusted for the user-facing zero-based flag).
	StartAddr int
	// Count is the logical value count for reads; ignored for writes.
	Count int
	// WriteValue is the value to write for function 5/6; ignored for reads.
	WriteValue uint16

	DataType DataType
	ByteSwap bool
	WordSwap bool
	RawBytes bool

	TimeoutMS int
	PollCount int // 0 means "poll forever"
	DelayMS   int

	CSVPath      string
	DirectionPin int // -1 means absent

	// DisplayStart is the user-facing starting address before the
	// function-dependent display offset (spec.md §4.5 point 7).
	DisplayStart int
}

// Timeout returns the per-poll wait bound as a time.Duration.
func (r PollRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Delay returns the inter-poll pacing delay as a time.Duration.
func (r PollRequest) Delay() time.Duration {
	return time.Duration(r.DelayMS) * time.Millisecond
}

// NumRegs is the register/coil count actually placed on the wire,
// derived from Count by the per-type multiplier in Table 1.
func (r PollRequest) NumRegs() int {
	if packet.IsBitFunction(r.FunctionCode) {
		return r.Count
	}
	if packet.IsWriteFunction(r.FunctionCode) {
		return 1
	}
	return r.DataType.registersForValues(r.Count)
}

// RawPollRequest is the unvalidated, user-supplied form of a poll
// request - strings and plain ints exactly as they'd arrive from a
// config file or CLI flags.
type RawPollRequest struct {
	TargetToken      string
	KnownSerialPorts []string // used only to resolve "COMn" on Windows
	TCPPort          int      // defaults to 502
	Baud             int      // defaults to 9600

	DeviceID      int
	FunctionCode  int
	StartRegister int
	CountOrValue  int
	DataType      string

	ByteSwap  bool
	WordSwap  bool
	ZeroBased bool
	RawBytes  bool

	TimeoutMS int
	PollCount int
	DelayMS   int

	CSVPath      string
	DirectionPin int // -1 means absent
}

// ValidatePollRequest runs every field through its validator (spec.md
// §4.2) and assembles a normalized PollRequest, or returns the first
// ErrorRecord encountered.
func ValidatePollRequest(raw RawPollRequest) (PollRequest, *ErrorRecord) {
	ts, err := validateTargetSpec(raw.TargetToken, raw.KnownSerialPorts)
	if err != nil {
		return PollRequest{}, err
	}
	var target Target
	if ts.IP != "" {
		port := raw.TCPPort
		if port == 0 {
			port = 502
		}
		target = TCPTarget(ts.IP, uint16(port))
	} else {
		target = SerialTarget(ts.SerialPort, raw.Baud)
	}

	deviceID, err := validateDeviceID(raw.DeviceID)
	if err != nil {
		return PollRequest{}, err
	}

	fc, err := validateFunctionCode(raw.FunctionCode)
	if err != nil {
		return PollRequest{}, err
	}

	displayStart, err := validateStartRegister(raw.StartRegister)
	if err != nil {
		return PollRequest{}, err
	}
	startAddr, err := effectiveStart(displayStart, raw.ZeroBased)
	if err != nil {
		return PollRequest{}, err
	}

	dt, err := validateDataType(raw.DataType)
	if err != nil {
		return PollRequest{}, err
	}

	timeoutMS, err := validateTimeoutMS(raw.TimeoutMS)
	if err != nil {
		return PollRequest{}, err
	}

	pin, err := validateGPIOPin(raw.DirectionPin)
	if err != nil {
		return PollRequest{}, err
	}

	var count int
	var writeValue uint16
	if packet.IsWriteFunction(fc) {
		wv, err := validateWriteValue(raw.CountOrValue)
		if err != nil {
			return PollRequest{}, err
		}
		writeValue = wv
	} else {
		c, err := validateCount(raw.CountOrValue)
		if err != nil {
			return PollRequest{}, err
		}
		count = c
	}

	if raw.CSVPath != "" {
		if err := validateCSVFileName(raw.CSVPath); err != nil {
			return PollRequest{}, err
		}
	}

	pollCount := raw.PollCount
	if pollCount < 0 {
		return PollRequest{}, NewError(ErrIllegalDataValue)
	}
	if packet.IsWriteFunction(fc) && pollCount != 1 {
		return PollRequest{}, NewError(ErrMultiplePollsForWrite)
	}

	delayMS := raw.DelayMS
	if packet.IsWriteFunction(fc) {
		delayMS = 0
	}

	return PollRequest{
		Target:       target,
		DeviceID:     deviceID,
		FunctionCode: fc,
		StartAddr:    startAddr,
		Count:        count,
		WriteValue:   writeValue,
		DataType:     dt,
		ByteSwap:     raw.ByteSwap,
		WordSwap:     raw.WordSwap,
		RawBytes:     raw.RawBytes,
		TimeoutMS:    timeoutMS,
		PollCount:    pollCount,
		DelayMS:      delayMS,
		CSVPath:      raw.CSVPath,
		DirectionPin: pin,
		DisplayStart: displayStart,
	}, nil
}
