package modbus

import (
	"bytes"

	"github.com/brineworks/modbus-poller/packet"
)

// ExtractPDU strips transport framing off a received frame and returns
// the raw Modbus PDU (device id, function, body) common to RTU and TCP
// (spec.md §4.4 step a).
func ExtractPDU(target Target, frame []byte) ([]byte, *ErrorRecord) {
	if target.IsSerial() {
		if len(frame) < 3 {
			return nil, NewError(ErrUnexpectedModbusMessageLen)
		}
		if !packet.CheckCRC(frame) {
			return nil, NewError(ErrCRCMismatch)
		}
		return frame[:len(frame)-2], nil
	}

	if _, err := packet.ParseMBAPHeader(frame); err != nil {
		switch err {
		case packet.ErrTCPLengthMismatch:
			return nil, NewError(ErrUnexpectedTCPMessageLen)
		default:
			return nil, NewError(ErrUnexpectedReturnData)
		}
	}
	return frame[packet.MBAPHeaderLen:], nil
}

// ValidateResponse runs spec.md §4.4 steps (b) and (c): matches device
// id and function code, surfaces a Modbus exception when the server set
// the error bit, and for writes requires a byte-identical echo of the
// expected PDU. On success it returns the payload bytes: for reads, the
// data after the byte-count field; for writes, the bytes after the echoed
// register/coil address.
func ValidateResponse(deviceID int, fc uint8, pdu []byte, expectedEcho []byte) ([]byte, *ErrorRecord) {
	if len(pdu) < 2 {
		return nil, NewError(ErrUnexpectedModbusMessageLen)
	}

	if pdu[0] != uint8(deviceID) && pdu[0] != 0 {
		return nil, NewError(ErrUnexpectedSlaveMessage)
	}

	switch {
	case pdu[1] == fc:
		// matched, fall through to body validation
	case pdu[1] == fc+packet.FunctionCodeErrorBitmask, pdu[1] == packet.FunctionCodeErrorBitmask:
		if len(pdu) < 3 {
			return nil, NewError(ErrUnexpectedModbusMessageLen)
		}
		return nil, exceptionError(pdu[2])
	default:
		return nil, NewError(ErrUnexpectedFunctionCode)
	}

	if packet.IsWriteFunction(fc) {
		if expectedEcho != nil && !bytes.Equal(pdu, expectedEcho) {
			return nil, NewError(ErrUnexpectedSlaveMessage)
		}
		if len(pdu) < 4 {
			return nil, NewError(ErrUnexpectedModbusMessageLen)
		}
		return pdu[4:], nil
	}

	if len(pdu) < 3 || int(pdu[2]) != len(pdu)-3 {
		return nil, NewError(ErrUnexpectedModbusMessageLen)
	}
	return pdu[3:], nil
}
