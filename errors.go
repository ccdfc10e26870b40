package modbus

import (
	"fmt"

	"github.com/brineworks/modbus-poller/packet"
)

// ErrorRecord is the closed ("Err", code, description) result shape used
// throughout the engine: every failure a poll can end in - a device
// exception, a transport failure, a validation rejection, or a framing
// mismatch - collapses to one of these (spec.md §6).
type ErrorRecord struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ErrorRecord) Error() string {
	return fmt.Sprintf("Err %d: %s", e.Code, e.Message)
}

// Modbus exception codes, mirrored from packet for callers that only
// import the root package.
const (
	ErrIllegalFunction            = 1
	ErrIllegalDataAddress         = 2
	ErrIllegalDataValue           = 3
	ErrServerFailure              = 4
	ErrAcknowledge                = 5
	ErrServerBusy                 = 6
	ErrNegativeAcknowledge        = 7
	ErrMemoryParityError          = 8
	ErrGatewayPathUnavailable     = 10
	ErrGatewayTargetDeviceNoReply = 11

	ErrTCPConnectFailed = 19
	ErrCommTimeout       = 87

	ErrInvalidTarget             = 101
	ErrInvalidDataType           = 102
	ErrInvalidRegisterLookup     = 103
	ErrInvalidFileName           = 104
	ErrCSVAccessFailed           = 105
	ErrUnexpectedReturnData      = 106
	ErrInterrupted               = 107
	ErrUnexpectedTCPMessageLen   = 108
	ErrUnexpectedModbusMessageLen = 109
	ErrUnexpectedFunctionCode    = 110
	ErrUnexpectedSlaveMessage    = 111
	ErrMultiplePollsForWrite     = 112
	ErrCRCMismatch               = 113
	ErrUnknownRemoteError        = 114
	ErrSerialOpenTimeout         = 115
	ErrInvalidGPIOPin            = 116

	ErrGatewayOverloadLow  = 224
	ErrGatewayOverloadMid  = 225
	ErrGatewayOverloadHigh = 226
	ErrGatewayOffline      = 227
	ErrGatewayUnknown      = 228
)

// errorMessages holds the fixed English text for every code this engine
// can produce, combining the Modbus exception table with the validator,
// transport, framing and gateway codes.
var errorMessages = map[int]string{
	ErrIllegalFunction:            "illegal function",
	ErrIllegalDataAddress:         "illegal data address",
	ErrIllegalDataValue:           "illegal data value",
	ErrServerFailure:              "slave device failure",
	ErrAcknowledge:                "acknowledge",
	ErrServerBusy:                 "slave device busy",
	ErrNegativeAcknowledge:        "negative acknowledge",
	ErrMemoryParityError:          "memory parity error",
	ErrGatewayPathUnavailable:     "gateway path unavailable",
	ErrGatewayTargetDeviceNoReply: "gateway target device failed to respond",

	ErrTCPConnectFailed: "unable to make tcp connection",
	ErrCommTimeout:       "comm error",

	ErrInvalidTarget:              "invalid ip address or com port",
	ErrInvalidDataType:            "invalid data type",
	ErrInvalidRegisterLookup:      "invalid register lookup",
	ErrInvalidFileName:            "invalid file name",
	ErrCSVAccessFailed:            "unable to access csv file",
	ErrUnexpectedReturnData:       "unexpected return data, socket likely closed by other",
	ErrInterrupted:                "keyboard interrupt",
	ErrUnexpectedTCPMessageLen:    "unexpected tcp message length",
	ErrUnexpectedModbusMessageLen: "unexpected modbus message length",
	ErrUnexpectedFunctionCode:     "unexpected modbus function returned",
	ErrUnexpectedSlaveMessage:     "unexpected modbus slave device message",
	ErrMultiplePollsForWrite:      "multiple polls for write command",
	ErrCRCMismatch:                "crc incorrect, data transmission failure",
	ErrUnknownRemoteError:         "unknown error",
	ErrSerialOpenTimeout:          "unable to open serial port within timeout",
	ErrInvalidGPIOPin:             "invalid gpio pin",

	ErrGatewayOverloadLow:  "gateway overloaded",
	ErrGatewayOverloadMid:  "gateway overloaded",
	ErrGatewayOverloadHigh: "gateway overloaded",
	ErrGatewayOffline:      "gateway offline",
	ErrGatewayUnknown:      "unknown gateway error",
}

// NewError builds an ErrorRecord from a closed code, falling back to
// "unknown error" for anything not in the table (the original's
// behavior for an exception code it doesn't recognize).
func NewError(code int) *ErrorRecord {
	msg, ok := errorMessages[code]
	if !ok {
		msg = "unknown error"
	}
	return &ErrorRecord{Code: code, Message: msg}
}

// exceptionError turns a Modbus exception byte off the wire into an
// ErrorRecord, using packet.ExceptionText where the code is known, passing
// gateway codes 224-228 through, and falling back to the closed "unknown
// remote error" code otherwise.
func exceptionError(code uint8) *ErrorRecord {
	if text := packet.ExceptionText(code); text != "" {
		return &ErrorRecord{Code: int(code), Message: text}
	}
	if int(code) >= ErrGatewayOverloadLow && int(code) <= ErrGatewayUnknown {
		return NewError(int(code))
	}
	return NewError(ErrUnknownRemoteError)
}

// IsFatal reports whether an error of this code should stop the poll
// loop outright (bad target, bad config, interrupted) rather than be
// reported for this poll and retried on the next tick (spec.md §5).
func (e *ErrorRecord) IsFatal() bool {
	switch e.Code {
	case ErrInvalidTarget, ErrInvalidDataType, ErrInvalidRegisterLookup,
		ErrInvalidFileName, ErrCSVAccessFailed, ErrInterrupted, ErrInvalidGPIOPin,
		ErrMultiplePollsForWrite, ErrUnexpectedReturnData, ErrUnexpectedTCPMessageLen,
		ErrTCPConnectFailed, ErrSerialOpenTimeout:
		return true
	default:
		return false
	}
}
