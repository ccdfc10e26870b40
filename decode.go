package modbus

import (
	"math"

	"github.com/brineworks/modbus-poller/packet"
)

// DecodeRegisters implements the Table 1 / Table 2 register decoder
// (spec.md §4.5), grounded on the original `ModbusData.reg` routine: swap
// bytes, special-case bit reads and single-register writes, merge into
// 16-bit registers, then decode in groups of 1-4 registers per dt.
func DecodeRegisters(payload []byte, fc uint8, dt DataType, byteSwap, wordSwap, rawBytes bool, numVals int) ([]Value, *ErrorRecord) {
	if byteSwap {
		payload = swapAdjacentBytes(payload)
	}

	if packet.IsBitFunction(fc) {
		return decodeBits(payload, rawBytes, numVals), nil
	}

	regs := mergeRegisters(payload)

	if packet.IsWriteFunction(fc) && fc != packet.FunctionWriteMultipleRegisters {
		if len(regs) == 0 {
			return nil, NewError(ErrUnexpectedModbusMessageLen)
		}
		return []Value{uintValue(uint64(regs[0]))}, nil
	}

	if rawBytes {
		values := make([]Value, 0, len(regs))
		for _, r := range regs {
			values = append(values, rawValue([]byte{byte(r >> 8), byte(r & 0xFF)}))
		}
		return values, nil
	}

	width := dt.registersPerGroup()
	var values []Value
	for i := 0; i+width <= len(regs); i += width {
		group := append([]uint16(nil), regs[i:i+width]...)
		if wordSwap {
			reverseRegisters(group)
		}
		decoded, err := decodeGroup(dt, group)
		if err != nil {
			return nil, err
		}
		values = append(values, decoded...)
	}
	return values, nil
}

// swapAdjacentBytes swaps every adjacent byte pair in data, leaving a
// trailing odd byte untouched.
func swapAdjacentBytes(data []byte) []byte {
	out := append([]byte(nil), data...)
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}

// mergeRegisters packs payload bytes into big-endian 16-bit registers,
// ignoring a trailing odd byte.
func mergeRegisters(payload []byte) []uint16 {
	n := len(payload) / 2
	regs := make([]uint16, n)
	for i := 0; i < n; i++ {
		regs[i] = uint16(payload[2*i])<<8 | uint16(payload[2*i+1])
	}
	return regs
}

// reverseRegisters reverses group in place - the corrected word-swap
// reversal for a group of any width (spec.md §9, Open Question 2: the
// source's three-register reversal is a slicing typo; this reimplements
// the evidently-intended full reversal for every group width).
func reverseRegisters(group []uint16) {
	for i, j := 0, len(group)-1; i < j; i, j = i+1, j-1 {
		group[i], group[j] = group[j], group[i]
	}
}

// decodeBits unpacks coil/discrete-input payload bytes least-significant-
// bit-first, stopping after numVals bits, or emits raw bytes unchanged
// when rawBytes is set.
func decodeBits(payload []byte, rawBytes bool, numVals int) []Value {
	if rawBytes {
		values := make([]Value, len(payload))
		for i, b := range payload {
			values[i] = rawValue([]byte{b})
		}
		return values
	}

	values := make([]Value, 0, numVals)
	for _, b := range payload {
		for bit := 0; bit < 8 && len(values) < numVals; bit++ {
			values = append(values, uintValue(uint64((b>>uint(bit))&0x1)))
		}
		if len(values) >= numVals {
			break
		}
	}
	return values
}

// decodeGroup decodes a single group of 1-4 registers per Table 2.
// Registers are named r0,r1,... in wire (post-word-swap) order.
func decodeGroup(dt DataType, regs []uint16) ([]Value, *ErrorRecord) {
	r := func(i int) uint16 {
		if i < len(regs) {
			return regs[i]
		}
		return 0
	}

	switch dt {
	case DataTypeUint8:
		r0 := r(0)
		return []Value{uintValue(uint64(r0 >> 8)), uintValue(uint64(r0 & 0xFF))}, nil

	case DataTypeSint8:
		r0 := r(0)
		return []Value{intValue(int64(int8(r0 >> 8))), intValue(int64(int8(r0 & 0xFF)))}, nil

	case DataTypeUint16, DataTypeBin, DataTypeHex:
		return []Value{uintValue(uint64(r(0)))}, nil

	case DataTypeSint16:
		return []Value{intValue(int64(int16(r(0))))}, nil

	case DataTypeSm1k16, DataTypeSm10k16:
		r0 := r(0)
		mag := int64(r0 & 0x7FFF)
		if r0>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeASCII:
		r0 := r(0)
		s := string([]byte{byte(r0 >> 8), byte(r0 & 0xFF)})
		return []Value{strValue(s)}, nil

	case DataTypeUint32:
		v := uint32(r(1))<<16 | uint32(r(0))
		return []Value{uintValue(uint64(v))}, nil

	case DataTypeSint32:
		v := int32(uint32(r(1))<<16 | uint32(r(0)))
		return []Value{intValue(int64(v))}, nil

	case DataTypeFloat:
		bits := uint32(r(1))<<16 | uint32(r(0))
		return []Value{floatValue(float64(math.Float32frombits(bits)))}, nil

	case DataTypeUm1k32:
		v := uint64(r(1))*1000 + uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSm1k32:
		r1 := r(1)
		mag := int64(r1&0x7FFF)*1000 + int64(r(0))
		if r1>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeUm10k32:
		v := uint64(r(1))*10000 + uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSm10k32:
		r1 := r(1)
		mag := int64(r1&0x7FFF)*10000 + int64(r(0))
		if r1>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeUint48:
		v := uint64(r(2))<<32 | uint64(r(1))<<16 | uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSint48:
		// Unsupported in the original implementation; emit a documented
		// placeholder instead of crashing (spec.md §9, Open Question 3).
		return []Value{unsupportedValue("sint48 decoding is not supported")}, nil

	case DataTypeUm1k48:
		v := uint64(r(2))*1_000_000 + uint64(r(1))*1000 + uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSm1k48:
		r2 := r(2)
		mag := int64(r2&0x7FFF)*1_000_000 + int64(r(1))*1000 + int64(r(0))
		if r2>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeUm10k48:
		v := uint64(r(2))*100_000_000 + uint64(r(1))*10000 + uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSm10k48:
		r2 := r(2)
		mag := int64(r2&0x7FFF)*100_000_000 + int64(r(1))*10000 + int64(r(0))
		if r2>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeUint64:
		v := uint64(r(3))<<48 | uint64(r(2))<<32 | uint64(r(1))<<16 | uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSint64:
		bits := uint64(r(3))<<48 | uint64(r(2))<<32 | uint64(r(1))<<16 | uint64(r(0))
		return []Value{intValue(int64(bits))}, nil

	case DataTypeDbl:
		bits := uint64(r(3))<<48 | uint64(r(2))<<32 | uint64(r(1))<<16 | uint64(r(0))
		return []Value{floatValue(math.Float64frombits(bits))}, nil

	case DataTypeUm1k64:
		v := uint64(r(3))*1_000_000_000 + uint64(r(2))*1_000_000 + uint64(r(1))*1000 + uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSm1k64:
		r3 := r(3)
		mag := int64(r3&0x7FFF)*1_000_000_000 + int64(r(2))*1_000_000 + int64(r(1))*1000 + int64(r(0))
		if r3>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeUm10k64:
		v := uint64(r(3))*1_000_000_000_000 + uint64(r(2))*100_000_000 + uint64(r(1))*10000 + uint64(r(0))
		return []Value{uintValue(v)}, nil

	case DataTypeSm10k64:
		r3 := r(3)
		mag := int64(r3&0x7FFF)*1_000_000_000_000 + int64(r(2))*100_000_000 + int64(r(1))*10000 + int64(r(0))
		if r3>>15 == 1 {
			mag = -mag
		}
		return []Value{intValue(mag)}, nil

	case DataTypeEngy:
		// High byte of r3 is a signed decimal exponent; the mantissa
		// sub-byte is ignored (spec.md §9, Open Question 4).
		exp := int8(r(3) >> 8)
		magnitude := uint64(r(2))<<32 | uint64(r(1))<<16 | uint64(r(0))
		return []Value{floatValue(float64(magnitude) * math.Pow(10, float64(exp)))}, nil

	default:
		return nil, NewError(ErrInvalidDataType)
	}
}

// DisplayAddresses returns the user-facing (offset-prefixed) address for
// each of numVals value columns a read of this shape produces, starting
// at the wire address start. Intended for CSV headers and progress
// output; see displayStartAddress for the offset rule itself.
func DisplayAddresses(fc uint8, start, numRegs, numVals int) []int {
	if numVals <= 0 {
		return nil
	}
	lastReg := start + numRegs - 1
	if lastReg < start {
		lastReg = start
	}
	base := displayStartAddress(fc, start, lastReg)
	step := 1
	if numRegs > 0 && numVals > 0 {
		step = numRegs / numVals
		if step < 1 {
			step = 1
		}
	}
	addrs := make([]int, numVals)
	for i := range addrs {
		addrs[i] = base + i*step
	}
	return addrs
}

// displayStartAddress prepends the Modbus-convention addressing offset
// used only for display (spec.md §4.5 point 7). lastReg is the highest
// wire register address this read touches.
func displayStartAddress(fc uint8, start, lastReg int) int {
	k := displayDigitsK(lastReg)
	switch fc {
	case packet.FunctionReadCoils:
		return start
	case packet.FunctionReadDiscreteInputs, packet.FunctionWriteSingleCoil:
		return start + 10000*pow10(k)
	case packet.FunctionReadInputRegisters:
		return start + 30000*pow10(k)
	case packet.FunctionReadHoldingRegisters, packet.FunctionWriteSingleRegister:
		return start + 40000*pow10(k)
	default:
		return start
	}
}

// displayDigitsK computes max(digits_needed(lastReg), 4) - 4, clamping
// lastReg to a minimum of 1 before taking log10 so the offset stays
// stable at lastReg == 0 (spec.md §9, Open Question 5).
func displayDigitsK(lastReg int) int {
	v := lastReg
	if v < 1 {
		v = 1
	}
	digits := int(math.Log10(float64(v))) + 1
	if digits < 4 {
		digits = 4
	}
	return digits - 4
}

func pow10(k int) int {
	v := 1
	for i := 0; i < k; i++ {
		v *= 10
	}
	return v
}
