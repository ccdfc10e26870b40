package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDeviceID(t *testing.T) {
	_, err := validateDeviceID(0)
	require.NotNil(t, err)
	assert.Equal(t, ErrGatewayPathUnavailable, err.Code)

	_, err = validateDeviceID(256)
	require.NotNil(t, err)

	id, err := validateDeviceID(1)
	require.Nil(t, err)
	assert.Equal(t, 1, id)

	id, err = validateDeviceID(255)
	require.Nil(t, err)
	assert.Equal(t, 255, id)
}

func TestValidateStartRegister(t *testing.T) {
	_, err := validateStartRegister(-1)
	require.NotNil(t, err)
	assert.Equal(t, ErrIllegalDataAddress, err.Code)

	_, err = validateStartRegister(99991)
	require.NotNil(t, err)

	v, err := validateStartRegister(0)
	require.Nil(t, err)
	assert.Equal(t, 0, v)
}

func TestValidateCount(t *testing.T) {
	_, err := validateCount(0)
	require.NotNil(t, err)

	_, err = validateCount(99991)
	require.NotNil(t, err)

	v, err := validateCount(125)
	require.Nil(t, err)
	assert.Equal(t, 125, v)
}

func TestValidateWriteValue(t *testing.T) {
	_, err := validateWriteValue(-1)
	require.NotNil(t, err)
	assert.Equal(t, ErrIllegalDataValue, err.Code)

	_, err = validateWriteValue(0x10000)
	require.NotNil(t, err)

	v, err := validateWriteValue(0xFFFF)
	require.Nil(t, err)
	assert.Equal(t, uint16(0xFFFF), v)
}

func TestValidateTimeoutMS(t *testing.T) {
	_, err := validateTimeoutMS(0)
	require.NotNil(t, err)

	_, err = validateTimeoutMS(10001)
	require.NotNil(t, err)

	v, err := validateTimeoutMS(1000)
	require.Nil(t, err)
	assert.Equal(t, 1000, v)
}

func TestValidateFunctionCode(t *testing.T) {
	for _, fc := range []int{1, 2, 3, 4, 5, 6, 16} {
		v, err := validateFunctionCode(fc)
		require.Nil(t, err)
		assert.Equal(t, uint8(fc), v)
	}

	_, err := validateFunctionCode(7)
	require.NotNil(t, err)
	assert.Equal(t, ErrIllegalFunction, err.Code)
}

func TestValidateDataType(t *testing.T) {
	dt, err := validateDataType("Uint16")
	require.Nil(t, err)
	assert.Equal(t, DataTypeUint16, dt)

	_, err = validateDataType("nope")
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidDataType, err.Code)
}

func TestValidateGPIOPin(t *testing.T) {
	v, err := validateGPIOPin(-1)
	require.Nil(t, err)
	assert.Equal(t, -1, v)

	v, err = validateGPIOPin(17)
	require.Nil(t, err)
	assert.Equal(t, 17, v)

	_, err = validateGPIOPin(1)
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidGPIOPin, err.Code)
}

func TestValidateTargetSpec_ipv4(t *testing.T) {
	ts, err := validateTargetSpec("192.168.1.10", nil)
	require.Nil(t, err)
	assert.Equal(t, "192.168.1.10", ts.IP)
	assert.Empty(t, ts.SerialPort)
}

func TestValidateTargetSpec_posixSerial(t *testing.T) {
	ts, err := validateTargetSpec("/dev/ttyUSB0", nil)
	require.Nil(t, err)
	assert.Equal(t, "/dev/ttyUSB0", ts.SerialPort)
}

func TestValidateTargetSpec_invalidIPOctet(t *testing.T) {
	ts, err := validateTargetSpec("999.1.1.1", nil)
	require.Nil(t, err)
	assert.Equal(t, "999.1.1.1", ts.SerialPort, "not a valid IPv4 octet, falls through to serial on POSIX")
}

func TestEffectiveStart(t *testing.T) {
	v, err := effectiveStart(1, false)
	require.Nil(t, err)
	assert.Equal(t, 0, v)

	v, err = effectiveStart(0, true)
	require.Nil(t, err)
	assert.Equal(t, 0, v)

	_, err = effectiveStart(0, false)
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidRegisterLookup, err.Code)
}

func TestExpectedResponseLength(t *testing.T) {
	assert.Equal(t, 7, ExpectedResponseLength(1, 10))  // 5 + ceil(10/8)
	assert.Equal(t, 8, ExpectedResponseLength(6, 1))   // write
	assert.Equal(t, 9, ExpectedResponseLength(3, 2))   // 5 + 2*2
}
