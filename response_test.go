package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brineworks/modbus-poller/packet"
)

func TestExtractPDU_rtuOk(t *testing.T) {
	frame := packet.AppendCRC([]byte{0x11, 0x03, 0x02, 0x00, 0x2A})
	pdu, err := ExtractPDU(SerialTarget("/dev/ttyUSB0", 9600), frame)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x11, 0x03, 0x02, 0x00, 0x2A}, pdu)
}

func TestExtractPDU_rtuCrcMismatch(t *testing.T) {
	frame := []byte{0x11, 0x03, 0x02, 0x00, 0x2A, 0x00, 0x00}
	_, err := ExtractPDU(SerialTarget("/dev/ttyUSB0", 9600), frame)
	require.NotNil(t, err)
	assert.Equal(t, ErrCRCMismatch, err.Code)
}

func TestExtractPDU_tcpOk(t *testing.T) {
	pdu := []byte{0x01, 0x03, 0x02, 0x00, 0x2A}
	header := make([]byte, packet.MBAPHeaderLen)
	packet.PutMBAPHeader(header, packet.MBAPHeader{Length: uint16(len(pdu) + 1), UnitID: 1})
	frame := append(header, pdu...)

	got, err := ExtractPDU(TCPTarget("10.0.0.1", 502), frame)
	require.Nil(t, err)
	assert.Equal(t, pdu, got)
}

func TestExtractPDU_tcpLengthMismatch(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x01, 0x03}
	_, err := ExtractPDU(TCPTarget("10.0.0.1", 502), frame)
	require.NotNil(t, err)
	assert.Equal(t, ErrUnexpectedTCPMessageLen, err.Code)
}

func TestValidateResponse_readOk(t *testing.T) {
	pdu := []byte{0x01, 0x03, 0x02, 0x00, 0x2A}
	payload, err := ValidateResponse(1, 3, pdu, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x00, 0x2A}, payload)
}

func TestValidateResponse_deviceIDMismatch(t *testing.T) {
	pdu := []byte{0x02, 0x03, 0x02, 0x00, 0x2A}
	_, err := ValidateResponse(1, 3, pdu, nil)
	require.NotNil(t, err)
	assert.Equal(t, ErrUnexpectedSlaveMessage, err.Code)
}

func TestValidateResponse_broadcastDeviceIDAllowed(t *testing.T) {
	pdu := []byte{0x00, 0x03, 0x02, 0x00, 0x2A}
	_, err := ValidateResponse(1, 3, pdu, nil)
	require.Nil(t, err)
}

func TestValidateResponse_exceptionSurfaced(t *testing.T) {
	pdu := []byte{0x01, 0x83, 0x02}
	_, err := ValidateResponse(1, 3, pdu, nil)
	require.NotNil(t, err)
	assert.Equal(t, ErrIllegalDataAddress, err.Code)
}

func TestValidateResponse_unexpectedFunctionCode(t *testing.T) {
	pdu := []byte{0x01, 0x04, 0x02, 0x00, 0x2A}
	_, err := ValidateResponse(1, 3, pdu, nil)
	require.NotNil(t, err)
	assert.Equal(t, ErrUnexpectedFunctionCode, err.Code)
}

func TestValidateResponse_writeEchoMismatch(t *testing.T) {
	pdu := []byte{0x01, 0x06, 0x00, 0x05, 0x00, 0x2B}
	expectedEcho := []byte{0x01, 0x06, 0x00, 0x05, 0x00, 0x2A}
	_, err := ValidateResponse(1, 6, pdu, expectedEcho)
	require.NotNil(t, err)
	assert.Equal(t, ErrUnexpectedSlaveMessage, err.Code)
}

func TestValidateResponse_writeEchoMatch(t *testing.T) {
	pdu := []byte{0x01, 0x06, 0x00, 0x05, 0x00, 0x2A}
	payload, err := ValidateResponse(1, 6, pdu, append([]byte(nil), pdu...))
	require.Nil(t, err)
	assert.Equal(t, []byte{0x00, 0x2A}, payload)
}

func TestValidateResponse_byteCountMismatch(t *testing.T) {
	pdu := []byte{0x01, 0x03, 0x04, 0x00, 0x2A}
	_, err := ValidateResponse(1, 3, pdu, nil)
	require.NotNil(t, err)
	assert.Equal(t, ErrUnexpectedModbusMessageLen, err.Code)
}
