package packet

import "errors"

// Modbus exception codes returned by a remote server (spec.md §6, codes 1-11).
const (
	ExcIllegalFunction            = uint8(1)
	ExcIllegalDataAddress         = uint8(2)
	ExcIllegalDataValue           = uint8(3)
	ExcServerFailure              = uint8(4)
	ExcAcknowledge                = uint8(5)
	ExcServerBusy                 = uint8(6)
	ExcNegativeAcknowledge        = uint8(7)
	ExcMemoryParityError          = uint8(8)
	ExcGatewayPathUnavailable     = uint8(10)
	ExcGatewayTargetDeviceNoReply = uint8(11)
)

// ExceptionText returns the fixed English description for a Modbus
// exception code, or "" if code is not one of the known exception codes.
func ExceptionText(code uint8) string {
	switch code {
	case ExcIllegalFunction:
		return "illegal function"
	case ExcIllegalDataAddress:
		return "illegal data address"
	case ExcIllegalDataValue:
		return "illegal data value"
	case ExcServerFailure:
		return "slave device failure"
	case ExcAcknowledge:
		return "acknowledge"
	case ExcServerBusy:
		return "slave device busy"
	case ExcNegativeAcknowledge:
		return "negative acknowledge"
	case ExcMemoryParityError:
		return "memory parity error"
	case ExcGatewayPathUnavailable:
		return "gateway path unavailable"
	case ExcGatewayTargetDeviceNoReply:
		return "gateway target device failed to respond"
	default:
		return ""
	}
}

// Sentinel framing errors, wrapped by the higher level ErrorRecord
// taxonomy in the root package.
var (
	ErrTCPDataTooShort   = errors.New("data is too short to be a Modbus TCP packet")
	ErrIsNotTCPPacket    = errors.New("data does not look like a Modbus TCP packet")
	ErrTCPLengthMismatch = errors.New("MBAP length field does not match amount of data received")
	ErrRTUDataTooShort   = errors.New("data is too short to be a Modbus RTU packet")
	ErrCRCMismatch       = errors.New("CRC does not match Modbus RTU packet bytes")
)
