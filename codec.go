package pakbus

import (
	"bytes"
	"encoding/binary"
	"math"
)

// DataType names one of the 27 scalar/time/string codes the PakBus wire
// format uses (spec §4.3, GLOSSARY). The zero value is invalid; use the
// named constants below.
type DataType string

// The 27 named data types, with the same type codes as the original
// implementation's DATATYPE table.
const (
	Byte    DataType = "Byte"
	UInt2   DataType = "UInt2"
	UInt4   DataType = "UInt4"
	Int1    DataType = "Int1"
	Int2    DataType = "Int2"
	Int4    DataType = "Int4"
	FP2     DataType = "FP2"
	FP3     DataType = "FP3"
	FP4     DataType = "FP4"
	IEEE4B  DataType = "IEEE4B"
	IEEE8B  DataType = "IEEE8B"
	Bool8   DataType = "Bool8"
	Bool    DataType = "Bool"
	Bool2   DataType = "Bool2"
	Bool4   DataType = "Bool4"
	Sec     DataType = "Sec"
	USec    DataType = "USec"
	NSec    DataType = "NSec"
	ASCII   DataType = "ASCII"
	ASCIIZ  DataType = "ASCIIZ"
	Short   DataType = "Short"
	Long    DataType = "Long"
	UShort  DataType = "UShort"
	ULong   DataType = "ULong"
	IEEE4L  DataType = "IEEE4L"
	IEEE8L  DataType = "IEEE8L"
	SecNano DataType = "SecNano"
)

type typeInfo struct {
	code int
	size int // 0 means variable-length (ASCII/ASCIIZ)
}

// typeTable mirrors the original's DATATYPE dict: code and fixed size (or 0
// for the two variable-length string types).
var typeTable = map[DataType]typeInfo{
	Byte:    {1, 1},
	UInt2:   {2, 2},
	UInt4:   {3, 4},
	Int1:    {4, 1},
	Int2:    {5, 2},
	Int4:    {6, 4},
	FP2:     {7, 2},
	FP4:     {8, 4},
	IEEE4B:  {9, 4},
	Bool:    {10, 1},
	ASCII:   {11, 0},
	Sec:     {12, 4},
	USec:    {13, 6},
	NSec:    {14, 8},
	FP3:     {15, 3},
	ASCIIZ:  {16, 0},
	Bool8:   {17, 1},
	IEEE8B:  {18, 8},
	Short:   {19, 2},
	Long:    {20, 4},
	UShort:  {21, 2},
	ULong:   {22, 4},
	SecNano: {23, 8},
	IEEE4L:  {24, 4},
	IEEE8L:  {25, 8},
	Bool2:   {27, 2},
	Bool4:   {28, 4},
}

// typeByCode maps a wire type code back to its name, used by the .TDF
// parser to resolve a FieldType byte.
var typeByCode = func() map[int]DataType {
	m := make(map[int]DataType, len(typeTable))
	for name, info := range typeTable {
		m[info.code] = name
	}
	return m
}()

// TypeByCode resolves a 7-bit FieldType code to its DataType name.
func TypeByCode(code int) (DataType, bool) {
	t, ok := typeByCode[code]
	return t, ok
}

// SizeOf returns the fixed wire size of a type, or 0 for the variable-length
// ASCII/ASCIIZ types.
func SizeOf(t DataType) int {
	return typeTable[t].size
}

// NSecValue is the (seconds, nanoseconds) pair PakBus uses for timestamps,
// measured from 1990-01-01 00:00:00 UTC (spec §3, §4.3).
type NSecValue struct {
	Sec  int32
	Nsec int32
}

// EncodeValues encodes values according to the parallel list of types,
// mirroring the original's encode_bin. Each element of values must match
// the Go type produced by DecodeValues for the corresponding DataType:
// integers as int64/uint64-convertible, NSecValue for NSec, string/[]byte
// for ASCII/ASCIIZ, float64 for FP-family and IEEE-family.
func EncodeValues(types []DataType, values []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for i, t := range types {
		if i >= len(values) {
			return nil, newError(KindBadData, "encode: missing value for type %s at index %d", t, i)
		}
		if err := encodeOne(&buf, t, values[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeOne(buf *bytes.Buffer, t DataType, value interface{}) error {
	switch t {
	case ASCIIZ:
		s, err := toBytes(value)
		if err != nil {
			return err
		}
		buf.Write(s)
		buf.WriteByte(0)
		return nil
	case ASCII:
		s, err := toBytes(value)
		if err != nil {
			return err
		}
		buf.Write(s)
		return nil
	case NSec:
		v, ok := value.(NSecValue)
		if !ok {
			return newError(KindBadData, "encode: NSec expects NSecValue, got %T", value)
		}
		var tmp [8]byte
		binary.BigEndian.PutUint32(tmp[0:4], uint32(v.Sec))
		binary.BigEndian.PutUint32(tmp[4:8], uint32(v.Nsec))
		buf.Write(tmp[:])
		return nil
	case SecNano:
		v, ok := value.(NSecValue)
		if !ok {
			return newError(KindBadData, "encode: SecNano expects NSecValue, got %T", value)
		}
		var tmp [8]byte
		binary.LittleEndian.PutUint32(tmp[0:4], uint32(v.Sec))
		binary.LittleEndian.PutUint32(tmp[4:8], uint32(v.Nsec))
		buf.Write(tmp[:])
		return nil
	case Byte, Bool, Bool8:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		buf.WriteByte(byte(n))
		return nil
	case Int1:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		buf.WriteByte(byte(int8(n)))
		return nil
	case UInt2, Bool2:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, uint16(n))
	case Int2:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, int16(n))
	case Short:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, int16(n))
	case UShort:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, uint16(n))
	case UInt4, Bool4:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, uint32(n))
	case Int4:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, int32(n))
	case Long:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, int32(n))
	case ULong:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, uint32(n))
	case Sec:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, int32(n))
	case IEEE4B:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, float32(f))
	case IEEE4L:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, float32(f))
	case IEEE8B:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, f)
	case IEEE8L:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, f)
	case FP2:
		// FP2 is decode-only in practice (spec §4.3); encoding is provided
		// for completeness and symmetry in round-trip tests.
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		sign := uint16(0)
		if f < 0 {
			sign = 1
			f = -f
		}
		// Use the largest decimal exponent (0..3) whose scaled mantissa
		// still fits in 13 bits, so decode(encode(v)) keeps v's decimals.
		exp := uint16(0)
		for exp < 3 && math.Round(f*math.Pow(10, float64(exp+1))) <= 0x1FFF {
			exp++
		}
		mant := uint16(math.Round(f*math.Pow(10, float64(exp)))) & 0x1FFF
		buf.WriteByte(byte(sign<<7 | exp<<5 | mant>>8))
		buf.WriteByte(byte(mant & 0xFF))
		return nil
	default:
		return newError(KindProtocolUnsupported, "encode: unsupported type %s", t)
	}
}

func toBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, newError(KindBadData, "encode: expected string/[]byte, got %T", value)
	}
}

func toInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, newError(KindBadData, "encode: expected integer, got %T", value)
	}
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		n, err := toInt(value)
		if err != nil {
			return 0, newError(KindBadData, "encode: expected float, got %T", value)
		}
		return float64(n), nil
	}
}

// DecodeValues decodes values sequentially according to types, returning the
// decoded values and the number of bytes consumed from buf. length is used
// only by ASCII fields, which consume exactly that many bytes (spec §4.3);
// it is ignored for every other type. Single-element results for
// multi-element decode are unwrapped by the caller where applicable, as in
// the original's "un-tuple single values" rule -- here every type decodes to
// exactly one Go value, so no unwrapping is needed at this layer.
func DecodeValues(types []DataType, buf []byte, length int) ([]interface{}, int, error) {
	offset := 0
	values := make([]interface{}, 0, len(types))
	for _, t := range types {
		v, n, err := decodeOne(t, buf[offset:], length)
		if err != nil {
			return nil, offset, err
		}
		values = append(values, v)
		offset += n
	}
	return values, offset, nil
}

func decodeOne(t DataType, buf []byte, length int) (interface{}, int, error) {
	switch t {
	case ASCIIZ:
		idx := bytes.IndexByte(buf, 0)
		if idx == -1 {
			return string(buf), len(buf), nil
		}
		return string(buf[:idx]), idx + 1, nil
	case ASCII:
		if length > len(buf) {
			return nil, 0, newError(KindBadData, "ASCII: need %d bytes, have %d", length, len(buf))
		}
		return string(buf[:length]), length, nil
	case NSec:
		if len(buf) < 8 {
			return nil, 0, newError(KindBadData, "NSec: need 8 bytes, have %d", len(buf))
		}
		sec := int32(binary.BigEndian.Uint32(buf[0:4]))
		nsec := int32(binary.BigEndian.Uint32(buf[4:8]))
		return NSecValue{Sec: sec, Nsec: nsec}, 8, nil
	case SecNano:
		if len(buf) < 8 {
			return nil, 0, newError(KindBadData, "SecNano: need 8 bytes, have %d", len(buf))
		}
		sec := int32(binary.LittleEndian.Uint32(buf[0:4]))
		nsec := int32(binary.LittleEndian.Uint32(buf[4:8]))
		return NSecValue{Sec: sec, Nsec: nsec}, 8, nil
	case FP2:
		if len(buf) < 2 {
			return nil, 0, newError(KindBadData, "FP2: need 2 bytes, have %d", len(buf))
		}
		raw := binary.BigEndian.Uint16(buf[:2])
		mant := raw & 0x1FFF
		exp := (raw >> 13) & 0x3
		sign := raw >> 15
		value := float64(mant) / math.Pow(10, float64(exp))
		if sign == 1 {
			value = -value
		}
		return value, 2, nil
	case Byte, Bool, Bool8:
		if len(buf) < 1 {
			return nil, 0, newError(KindBadData, "%s: need 1 byte, have 0", t)
		}
		return uint64(buf[0]), 1, nil
	case Int1:
		if len(buf) < 1 {
			return nil, 0, newError(KindBadData, "Int1: need 1 byte, have 0")
		}
		return int64(int8(buf[0])), 1, nil
	case UInt2, Bool2:
		if len(buf) < 2 {
			return nil, 0, newError(KindBadData, "%s: need 2 bytes, have %d", t, len(buf))
		}
		return uint64(binary.BigEndian.Uint16(buf[:2])), 2, nil
	case Int2:
		if len(buf) < 2 {
			return nil, 0, newError(KindBadData, "Int2: need 2 bytes, have %d", len(buf))
		}
		return int64(int16(binary.BigEndian.Uint16(buf[:2]))), 2, nil
	case Short:
		if len(buf) < 2 {
			return nil, 0, newError(KindBadData, "Short: need 2 bytes, have %d", len(buf))
		}
		return int64(int16(binary.LittleEndian.Uint16(buf[:2]))), 2, nil
	case UShort:
		if len(buf) < 2 {
			return nil, 0, newError(KindBadData, "UShort: need 2 bytes, have %d", len(buf))
		}
		return uint64(binary.LittleEndian.Uint16(buf[:2])), 2, nil
	case UInt4, Bool4:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "%s: need 4 bytes, have %d", t, len(buf))
		}
		return uint64(binary.BigEndian.Uint32(buf[:4])), 4, nil
	case Int4:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "Int4: need 4 bytes, have %d", len(buf))
		}
		return int64(int32(binary.BigEndian.Uint32(buf[:4]))), 4, nil
	case Long:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "Long: need 4 bytes, have %d", len(buf))
		}
		return int64(int32(binary.LittleEndian.Uint32(buf[:4]))), 4, nil
	case ULong:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "ULong: need 4 bytes, have %d", len(buf))
		}
		return uint64(binary.LittleEndian.Uint32(buf[:4])), 4, nil
	case Sec:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "Sec: need 4 bytes, have %d", len(buf))
		}
		return int64(int32(binary.BigEndian.Uint32(buf[:4]))), 4, nil
	case IEEE4B:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "IEEE4B: need 4 bytes, have %d", len(buf))
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(buf[:4]))), 4, nil
	case IEEE4L:
		if len(buf) < 4 {
			return nil, 0, newError(KindBadData, "IEEE4L: need 4 bytes, have %d", len(buf))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))), 4, nil
	case IEEE8B:
		if len(buf) < 8 {
			return nil, 0, newError(KindBadData, "IEEE8B: need 8 bytes, have %d", len(buf))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(buf[:8])), 8, nil
	case IEEE8L:
		if len(buf) < 8 {
			return nil, 0, newError(KindBadData, "IEEE8L: need 8 bytes, have %d", len(buf))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:8])), 8, nil
	case FP3, FP4:
		// Rare on CR1000-family tables; surfaced as raw bytes rather than
		// silently zero-filled (spec §7: codec mismatches are fatal, never
		// silently zero-filled -- but these two codes are not exercised by
		// any command this client issues, so we decode them as opaque bytes
		// instead of guessing a layout the device never actually sends).
		size := SizeOf(t)
		if len(buf) < size {
			return nil, 0, newError(KindBadData, "%s: need %d bytes, have %d", t, size, len(buf))
		}
		raw := make([]byte, size)
		copy(raw, buf[:size])
		return raw, size, nil
	default:
		return nil, 0, newError(KindProtocolUnsupported, "decode: unsupported type %s", t)
	}
}
