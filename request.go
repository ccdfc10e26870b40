package modbus

import (
	"encoding/binary"

	"github.com/brineworks/modbus-poller/packet"
)

// fc16Payload is the hard-coded four-register body function code 16
// writes, targeting a specific vendor's setup procedure. value_to_write
// is ignored - this is the literal behavior the original implementation
// ships (spec.md §9, Open Question 1); BuildWriteMultipleRegisters below
// is the escape hatch for callers that want to write arbitrary registers.
var fc16Payload = [4]uint16{59492, 3, 8, 47368}

// RequestPacket is a built request frame together with, for write
// commands, the PDU subrange the server's echo must byte-match.
type RequestPacket struct {
	Frame        []byte
	ExpectedEcho []byte // nil for reads
}

// BuildRequest constructs the wire frame for one poll, per spec.md §4.3.
// start is the zero-based wire register/coil address. value is the
// write value for functions 5/6 and is ignored otherwise. count is the
// register/coil count for read functions.
func BuildRequest(target Target, deviceID int, fc uint8, start int, value uint16, count int) (RequestPacket, *ErrorRecord) {
	body, echo, err := buildPDUBody(fc, start, value, count)
	if err != nil {
		return RequestPacket{}, err
	}

	pdu := append([]byte{uint8(deviceID), fc}, body...)

	if target.IsSerial() {
		frame := packet.AppendCRC(pdu)
		var echoFrame []byte
		if echo != nil {
			echoFrame = append([]byte{uint8(deviceID), fc}, echo...)
		}
		return RequestPacket{Frame: frame, ExpectedEcho: echoFrame}, nil
	}

	header := make([]byte, packet.MBAPHeaderLen)
	packet.PutMBAPHeader(header, packet.MBAPHeader{
		TransactionID: 0,
		Length:        uint16(len(pdu) + 1),
		UnitID:        uint8(deviceID),
	})
	frame := append(header, pdu...)

	var echoFrame []byte
	if echo != nil {
		echoFrame = append([]byte{uint8(deviceID), fc}, echo...)
	}
	return RequestPacket{Frame: frame, ExpectedEcho: echoFrame}, nil
}

// buildPDUBody returns the function-specific PDU body that follows
// [device][function], plus the echo body expected back for writes.
func buildPDUBody(fc uint8, start int, value uint16, count int) (body, echo []byte, errRec *ErrorRecord) {
	addrHi, addrLo := uint8(start>>8), uint8(start)

	switch fc {
	case packet.FunctionWriteSingleCoil:
		var argHi uint8
		switch value {
		case 1:
			argHi = 0xFF
		case 0:
			argHi = 0x00
		default:
			return nil, nil, NewError(ErrIllegalDataValue)
		}
		b := []byte{addrHi, addrLo, argHi, 0x00}
		return b, append([]byte(nil), b...), nil

	case packet.FunctionWriteSingleRegister:
		b := []byte{addrHi, addrLo, uint8(value >> 8), uint8(value)}
		return b, append([]byte(nil), b...), nil

	case packet.FunctionWriteMultipleRegisters:
		b := make([]byte, 5+2*len(fc16Payload))
		b[0], b[1] = addrHi, addrLo
		b[2] = 0x00
		b[3] = uint8(len(fc16Payload))
		b[4] = 0x08
		for i, v := range fc16Payload {
			binary.BigEndian.PutUint16(b[5+2*i:], v)
		}
		return b, nil, nil

	default: // reads: 1,2,3,4
		argHi, argLo := uint8(count>>8), uint8(count)
		return []byte{addrHi, addrLo, argHi, argLo}, nil, nil
	}
}

// BuildWriteMultipleRegisters is the escape hatch for function 16 that
// writes caller-supplied register values instead of the vendor's
// hard-coded four-register payload (spec.md §9, Open Question 1).
func BuildWriteMultipleRegisters(target Target, deviceID int, start int, values []uint16) (RequestPacket, *ErrorRecord) {
	if len(values) == 0 || len(values) > 99990 {
		return RequestPacket{}, NewError(ErrIllegalDataAddress)
	}
	addrHi, addrLo := uint8(start>>8), uint8(start)
	body := make([]byte, 4+2*len(values))
	body[0], body[1] = addrHi, addrLo
	body[2] = uint8(len(values) >> 8)
	body[3] = uint8(len(values))
	// byte count goes where the fixed-payload variant hardcodes 0x08.
	bodyWithCount := make([]byte, 5+2*len(values))
	copy(bodyWithCount, body[:4])
	bodyWithCount[4] = uint8(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(bodyWithCount[5+2*i:], v)
	}

	pdu := append([]byte{uint8(deviceID), packet.FunctionWriteMultipleRegisters}, bodyWithCount...)

	if target.IsSerial() {
		frame := packet.AppendCRC(pdu)
		return RequestPacket{Frame: frame}, nil
	}

	header := make([]byte, packet.MBAPHeaderLen)
	packet.PutMBAPHeader(header, packet.MBAPHeader{Length: uint16(len(pdu) + 1), UnitID: uint8(deviceID)})
	return RequestPacket{Frame: append(header, pdu...)}, nil
}
