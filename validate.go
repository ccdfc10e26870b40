package modbus

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/brineworks/modbus-poller/packet"
)

// gpioAllowList is the set of usable Raspberry Pi header pins (BCM
// numbering) this client will drive as a direction line.
var gpioAllowList = map[int]bool{
	2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true,
	10: true, 11: true, 12: true, 13: true, 14: true, 15: true, 16: true, 17: true,
	18: true, 19: true, 20: true, 21: true, 22: true, 23: true, 24: true, 25: true,
	26: true, 27: true,
}

// validateDeviceID bounds-checks a unit/device id (spec.md §4.2).
func validateDeviceID(id int) (int, *ErrorRecord) {
	if id < 1 || id > 255 {
		return 0, NewError(ErrGatewayPathUnavailable)
	}
	return id, nil
}

// validateStartRegister bounds-checks a starting register address.
func validateStartRegister(addr int) (int, *ErrorRecord) {
	if addr < 0 || addr > 99990 {
		return 0, NewError(ErrIllegalDataAddress)
	}
	return addr, nil
}

// validateCount bounds-checks a read count / num_regs value.
func validateCount(n int) (int, *ErrorRecord) {
	if n < 1 || n > 99990 {
		return 0, NewError(ErrIllegalDataAddress)
	}
	return n, nil
}

// validateWriteValue bounds-checks a value destined for a single-register
// or single-coil write: it must fit in 16 bits unsigned.
func validateWriteValue(v int) (uint16, *ErrorRecord) {
	if v != (v & 0xFFFF) {
		return 0, NewError(ErrIllegalDataValue)
	}
	return uint16(v), nil
}

// validateTimeoutMS bounds-checks a poll timeout expressed in milliseconds.
func validateTimeoutMS(ms int) (int, *ErrorRecord) {
	if ms < 1 || ms > 10000 {
		return 0, NewError(ErrIllegalDataValue)
	}
	return ms, nil
}

// validateFunctionCode checks fc is one of the supported function codes.
func validateFunctionCode(fc int) (uint8, *ErrorRecord) {
	switch fc {
	case 1, 2, 3, 4, 5, 6, 16:
		return uint8(fc), nil
	default:
		return 0, NewError(ErrIllegalFunction)
	}
}

// validateDataType checks token is one of the named data-type tokens
// (GLOSSARY, Table 1).
func validateDataType(token string) (DataType, *ErrorRecord) {
	dt, ok := dataTypeByToken[strings.ToLower(token)]
	if !ok {
		return "", NewError(ErrInvalidDataType)
	}
	return dt, nil
}

// validateGPIOPin checks pin is either absent (-1) or one of the usable
// Raspberry Pi header pins.
func validateGPIOPin(pin int) (int, *ErrorRecord) {
	if pin < 0 {
		return -1, nil
	}
	if !gpioAllowList[pin] {
		return 0, NewError(ErrInvalidGPIOPin)
	}
	return pin, nil
}

// TargetSpec is the discriminated result of validating a user-supplied
// IP-or-serial token: exactly one of IP/SerialPort is non-empty on success.
type TargetSpec struct {
	IP         string
	SerialPort string
}

// validateTargetSpec classifies token as an IPv4 address or a serial
// device, matching the host OS's naming convention (spec.md §6): on
// Windows a "COMn" token is matched against a list of known ports; on
// POSIX any non-IPv4 string is treated as a device path.
func validateTargetSpec(token string, knownSerialPorts []string) (TargetSpec, *ErrorRecord) {
	if ip, ok := parseIPv4(token); ok {
		return TargetSpec{IP: ip}, nil
	}

	if runtime.GOOS == "windows" {
		upper := strings.ToUpper(token)
		for _, p := range knownSerialPorts {
			if strings.ToUpper(p) == upper {
				return TargetSpec{SerialPort: p}, nil
			}
		}
		return TargetSpec{}, NewError(ErrInvalidTarget)
	}

	if token == "" {
		return TargetSpec{}, NewError(ErrInvalidTarget)
	}
	return TargetSpec{SerialPort: token}, nil
}

// parseIPv4 reports whether token is a dotted-quad IPv4 address with
// every octet in [0,255].
func parseIPv4(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return "", false
		}
	}
	return token, true
}

// effectiveStart applies the zero-based flag to a user-supplied starting
// register: when zeroBased is false the user-supplied address is 1-based,
// so one is subtracted to get the zero-based wire address (spec.md §8). A
// negative result is error 103.
func effectiveStart(start int, zeroBased bool) (int, *ErrorRecord) {
	effective := start
	if !zeroBased {
		effective = start - 1
	}
	if effective < 0 {
		return 0, NewError(ErrInvalidRegisterLookup)
	}
	return effective, nil
}

// ExpectedResponseLength returns the number of bytes a valid RTU response
// should carry for a read of numRegs registers/coils, or 8 for a write
// (spec.md §4.3).
func ExpectedResponseLength(fc uint8, numRegs int) int {
	if packet.IsBitFunction(fc) {
		return 5 + (numRegs+7)/8
	}
	if packet.IsWriteFunction(fc) {
		return 8
	}
	return 5 + 2*numRegs
}
