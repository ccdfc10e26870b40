package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTCPTarget(t *testing.T) {
	target := TCPTarget("10.0.0.1", 502)
	assert.True(t, target.IsTCP())
	assert.False(t, target.IsSerial())
	assert.Equal(t, "10.0.0.1", target.Host())
	assert.Equal(t, uint16(502), target.Port())
	assert.Equal(t, "tcp://10.0.0.1:502", target.String())
}

func TestSerialTarget_defaultsBaud(t *testing.T) {
	target := SerialTarget("/dev/ttyUSB0", 0)
	assert.True(t, target.IsSerial())
	assert.Equal(t, 9600, target.Baud())
	assert.Equal(t, "/dev/ttyUSB0", target.SerialName())
	assert.Equal(t, "serial:///dev/ttyUSB0@9600", target.String())
}

func TestSerialTarget_explicitBaud(t *testing.T) {
	target := SerialTarget("/dev/ttyUSB0", 19200)
	assert.Equal(t, 19200, target.Baud())
}
