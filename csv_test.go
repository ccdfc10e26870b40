package modbus

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVSink_headerAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poll.csv")

	sink, errRec := NewCSVSink(path, []int{40001, 40002})
	require.Nil(t, errRec)

	sink.OnRow([]Value{uintValue(1), intValue(-2)})
	sink.OnError(NewError(ErrCommTimeout)) // no-op, must not write a row
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Datetime", "40001", "40002"}, rows[0])
	assert.Equal(t, []string{"1", "-2"}, rows[1][1:])
}

func TestValidateCSVFileName(t *testing.T) {
	assert.Nil(t, validateCSVFileName("poll.csv"))
	assert.Nil(t, validateCSVFileName("/var/log/poll.csv"))

	err := validateCSVFileName("poll.data.csv")
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidFileName, err.Code)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "5", formatValue(uintValue(5)))
	assert.Equal(t, "-5", formatValue(intValue(-5)))
	assert.Equal(t, "1.5", formatValue(floatValue(1.5)))
	assert.Equal(t, "hi", formatValue(strValue("hi")))
	assert.Equal(t, "00 ff", formatValue(rawValue([]byte{0x00, 0xFF})))
}
