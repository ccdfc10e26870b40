// Package packet implements Modbus RTU/TCP wire framing: the CRC-16
// check used by RTU, and the MBAP header length rule used by TCP.
package packet

import "encoding/binary"

const (
	// MBAPHeaderLen is the length in bytes of the Modbus TCP header that
	// precedes every PDU (transaction id, protocol id, length, unit id).
	MBAPHeaderLen = 7

	// FunctionCodeErrorBitmask is ORed into a function code by a server
	// to signal that the response carries a Modbus exception.
	FunctionCodeErrorBitmask = uint8(0x80)
)

// Supported function codes (spec.md §6).
const (
	FunctionReadCoils              = uint8(1)
	FunctionReadDiscreteInputs     = uint8(2)
	FunctionReadHoldingRegisters   = uint8(3)
	FunctionReadInputRegisters     = uint8(4)
	FunctionWriteSingleCoil        = uint8(5)
	FunctionWriteSingleRegister    = uint8(6)
	FunctionWriteMultipleRegisters = uint8(16)
)

// IsReadFunction reports whether fc is one of the four read function codes.
func IsReadFunction(fc uint8) bool {
	switch fc {
	case FunctionReadCoils, FunctionReadDiscreteInputs, FunctionReadHoldingRegisters, FunctionReadInputRegisters:
		return true
	}
	return false
}

// IsBitFunction reports whether fc addresses coils/discrete inputs (bit
// entities) rather than registers.
func IsBitFunction(fc uint8) bool {
	return fc == FunctionReadCoils || fc == FunctionReadDiscreteInputs
}

// IsWriteFunction reports whether fc is a write: single coil, single
// register, or multiple registers.
func IsWriteFunction(fc uint8) bool {
	return fc == FunctionWriteSingleCoil || fc == FunctionWriteSingleRegister || fc == FunctionWriteMultipleRegisters
}

// MBAPHeader is the 7-byte Modbus TCP header (transaction id, protocol
// id, length, unit id) that precedes the PDU on the wire.
type MBAPHeader struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16 // number of bytes that follow (unit id + PDU)
	UnitID        uint8
}

// PutMBAPHeader writes h into dst[0:7]; the protocol id is always written
// as zero, whatever h.ProtocolID holds. dst must have length >= 7.
func PutMBAPHeader(dst []byte, h MBAPHeader) {
	binary.BigEndian.PutUint16(dst[0:2], h.TransactionID)
	binary.BigEndian.PutUint16(dst[2:4], 0x0000)
	binary.BigEndian.PutUint16(dst[4:6], h.Length)
	dst[6] = h.UnitID
}

// ParseMBAPHeader parses the first 7 bytes of data into an MBAPHeader and
// verifies that the length field matches the amount of data that follows
// it, per spec.md §3's invariant `len(frame)-6 == mbap.length`.
func ParseMBAPHeader(data []byte) (MBAPHeader, error) {
	if len(data) < MBAPHeaderLen {
		return MBAPHeader{}, ErrTCPDataTooShort
	}
	if data[2] != 0x00 || data[3] != 0x00 {
		return MBAPHeader{}, ErrIsNotTCPPacket
	}
	length := binary.BigEndian.Uint16(data[4:6])
	if int(length) != len(data)-6 {
		return MBAPHeader{}, ErrTCPLengthMismatch
	}
	return MBAPHeader{
		TransactionID: binary.BigEndian.Uint16(data[0:2]),
		ProtocolID:    0,
		Length:        length,
		UnitID:        data[6],
	}, nil
}

// CRC16 calculates the Modbus RTU 16 bit cyclic redundancy check over
// data, using the reverse polynomial 0xA001 and an initial value of
// 0xFFFF (spec.md §4.1).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendCRC appends the little-endian (low byte first) CRC-16 of frame
// to frame and returns the extended slice, matching RTU wire order.
func AppendCRC(frame []byte) []byte {
	crc := CRC16(frame)
	return append(frame, uint8(crc), uint8(crc>>8))
}

// CheckCRC reports whether the last two bytes of frame are the correct
// little-endian CRC-16 of the bytes preceding them. frame must be at
// least 3 bytes long.
func CheckCRC(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	body := frame[:len(frame)-2]
	want := CRC16(body)
	got := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	return want == got
}
