package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16(t *testing.T) {
	var testCases = []struct {
		name   string
		when   []byte
		expect uint16
	}{
		{
			name:   "empty input",
			when:   []byte{},
			expect: 0xFFFF,
		},
		{
			name:   "read holding registers request",
			when:   []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01},
			expect: 0x0A84,
		},
		{
			name:   "read input registers",
			when:   []byte{0x01, 0x04, 0x02, 0xFF, 0xFF},
			expect: 0x80B8,
		},
		{
			name:   "read holding registers, 3 regs",
			when:   []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03},
			expect: 0x8776,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CRC16(tc.when))
		})
	}
}

func TestAppendCRC_roundTrip(t *testing.T) {
	// CRC of (message || CRC(message)) is always 0 - spec.md §8.
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}
	withCRC := AppendCRC(append([]byte{}, frame...))

	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}, withCRC)
	assert.Equal(t, uint16(0), CRC16(withCRC))
	assert.True(t, CheckCRC(withCRC))
}

func TestCheckCRC(t *testing.T) {
	assert.False(t, CheckCRC([]byte{0x01, 0x02}))
	assert.False(t, CheckCRC([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}))
	assert.True(t, CheckCRC([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}))
}

func TestParseMBAPHeader(t *testing.T) {
	var testCases = []struct {
		name      string
		data      []byte
		expect    MBAPHeader
		expectErr error
	}{
		{
			name:      "data too short",
			data:      []byte{0x00, 0x01, 0x00, 0x00},
			expectErr: ErrTCPDataTooShort,
		},
		{
			name:      "invalid protocol id",
			data:      []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x02, 0x01},
			expectErr: ErrIsNotTCPPacket,
		},
		{
			name:      "length mismatch",
			data:      []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x01},
			expectErr: ErrTCPLengthMismatch,
		},
		{
			name: "ok",
			data: []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01, 0x03},
			expect: MBAPHeader{
				TransactionID: 1,
				Length:        2,
				UnitID:        1,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := ParseMBAPHeader(tc.data)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, h)
		})
	}
}

func TestPutMBAPHeader(t *testing.T) {
	dst := make([]byte, 7)
	PutMBAPHeader(dst, MBAPHeader{TransactionID: 0x0102, Length: 6, UnitID: 0x11})

	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x00, 0x00, 0x06, 0x11}, dst)
}

func TestIsBitFunction(t *testing.T) {
	assert.True(t, IsBitFunction(FunctionReadCoils))
	assert.True(t, IsBitFunction(FunctionReadDiscreteInputs))
	assert.False(t, IsBitFunction(FunctionReadHoldingRegisters))
}

func TestIsWriteFunction(t *testing.T) {
	assert.True(t, IsWriteFunction(FunctionWriteSingleCoil))
	assert.True(t, IsWriteFunction(FunctionWriteSingleRegister))
	assert.True(t, IsWriteFunction(FunctionWriteMultipleRegisters))
	assert.False(t, IsWriteFunction(FunctionReadHoldingRegisters))
}
