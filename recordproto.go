package pakbus

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for the Record/Field encoding below. There is no
// generated .proto/.pb.go: protowire gives direct control over a tiny,
// stable schema without pulling in protoc-gen-go for two message shapes.
const (
	recordFieldUnixTime = protowire.Number(1)
	recordFieldRecNbr   = protowire.Number(2)
	recordFieldFields   = protowire.Number(3)

	fieldFieldName   = protowire.Number(1)
	fieldFieldNumber = protowire.Number(2)
	fieldFieldText   = protowire.Number(3)
)

// EncodeRecord serializes a Record to protobuf wire format (spec SPEC_FULL.md
// DOMAIN STACK: google.golang.org/protobuf, used for on-disk/streamed record
// export). Field values are flattened to either a float64 (Number) or a
// string (Text); everything else is formatted with fmt.Sprint.
func EncodeRecord(r Record) []byte {
	var b []byte
	b = protowire.AppendTag(b, recordFieldUnixTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Datetime.Unix()))
	b = protowire.AppendTag(b, recordFieldRecNbr, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.RecNbr))

	for name, value := range r.Fields {
		fieldBytes := encodeFieldValue(name, value)
		b = protowire.AppendTag(b, recordFieldFields, protowire.BytesType)
		b = protowire.AppendBytes(b, fieldBytes)
	}
	return b
}

func encodeFieldValue(name string, value interface{}) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFieldName, protowire.BytesType)
	b = protowire.AppendString(b, name)

	switch v := value.(type) {
	case float64:
		b = protowire.AppendTag(b, fieldFieldNumber, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	case float32:
		b = protowire.AppendTag(b, fieldFieldNumber, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(float64(v)))
	case bool:
		n := float64(0)
		if v {
			n = 1
		}
		b = protowire.AppendTag(b, fieldFieldNumber, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(n))
	case int64, uint64, int32, uint32, uint8, int, uint, int16, uint16:
		if f, err := toFloat(v); err == nil {
			b = protowire.AppendTag(b, fieldFieldNumber, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, math.Float64bits(f))
		} else {
			b = protowire.AppendTag(b, fieldFieldText, protowire.BytesType)
			b = protowire.AppendString(b, fmt.Sprint(v))
		}
	default:
		b = protowire.AppendTag(b, fieldFieldText, protowire.BytesType)
		b = protowire.AppendString(b, fmt.Sprint(v))
	}
	return b
}

// DecodeRecord parses the wire format produced by EncodeRecord.
func DecodeRecord(buf []byte) (Record, error) {
	var r Record
	r.Fields = map[string]interface{}{}

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return r, newError(KindBadData, "recordproto: bad tag: %v", protowire.ParseError(n))
		}
		buf = buf[n:]

		switch num {
		case recordFieldUnixTime:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return r, newError(KindBadData, "recordproto: bad unix_time varint")
			}
			r.Datetime = time.Unix(int64(v), 0).UTC()
			buf = buf[n:]
		case recordFieldRecNbr:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return r, newError(KindBadData, "recordproto: bad rec_nbr varint")
			}
			r.RecNbr = uint32(v)
			buf = buf[n:]
		case recordFieldFields:
			if typ != protowire.BytesType {
				return r, newError(KindBadData, "recordproto: field entry not length-delimited")
			}
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return r, newError(KindBadData, "recordproto: bad field entry bytes")
			}
			name, value, err := decodeFieldValue(v)
			if err != nil {
				return r, err
			}
			r.Fields[name] = value
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return r, newError(KindBadData, "recordproto: skipping unknown field %d", num)
			}
			buf = buf[n:]
		}
	}
	return r, nil
}

func decodeFieldValue(buf []byte) (string, interface{}, error) {
	var name string
	var value interface{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return "", nil, newError(KindBadData, "recordproto: bad field tag")
		}
		buf = buf[n:]
		switch num {
		case fieldFieldName:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return "", nil, newError(KindBadData, "recordproto: bad field name bytes")
			}
			name = string(v)
			buf = buf[n:]
		case fieldFieldNumber:
			v, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return "", nil, newError(KindBadData, "recordproto: bad field number")
			}
			value = math.Float64frombits(v)
			buf = buf[n:]
		case fieldFieldText:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return "", nil, newError(KindBadData, "recordproto: bad field text")
			}
			value = string(v)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return "", nil, newError(KindBadData, "recordproto: skipping unknown field value")
			}
			buf = buf[n:]
		}
	}
	return name, value, nil
}
