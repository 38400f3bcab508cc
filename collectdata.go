package pakbus

// RecordFragment is a single parsed chunk of a CollectData reply, before
// being flattened into user-facing Records (spec §4.7). Fragmented records
// (IsOffset set) are surfaced as-is -- the decoder never reassembles them
// (spec §4.7, Non-goals).
type RecordFragment struct {
	TableNbr   uint16
	TableName  string
	BegRecNbr  uint32
	IsOffset   bool
	ByteOffset uint32
	NbrOfRecs  uint16
	Records    []RawRecord
	RawBytes   []byte // set only when IsOffset is true
}

// RawRecord is one decoded record within a fragment: its number, timestamp,
// and field values keyed by field name.
type RawRecord struct {
	RecNbr    uint32
	TimeOfRec NSecValue
	Fields    map[string]interface{}
}

// PreserveArrays controls whether ParseCollectData keeps every element of a
// Dimension>1 field or only the first, per spec §9's open question. The
// original implementation decodes the whole array but retains only the
// first element; that remains the default here.
var PreserveArrays = false

// ParseCollectData decodes the raw RecData of a CollectData reply against
// the cached tabledef (spec §4.7). It returns the parsed fragments and
// whether more records remain to be fetched.
func ParseCollectData(raw []byte, tabledef []TableDef) ([]RecordFragment, bool, error) {
	offset := 0
	var frags []RecordFragment

	for offset < len(raw)-1 {
		var frag RecordFragment
		values, n, err := DecodeValues([]DataType{UInt2, UInt4}, raw[offset:], 0)
		if err != nil {
			return nil, false, err
		}
		frag.TableNbr = uint16(values[0].(uint64))
		frag.BegRecNbr = uint32(values[1].(uint64))
		offset += n

		if int(frag.TableNbr) < 1 || int(frag.TableNbr) > len(tabledef) {
			return nil, false, newError(KindBadData, "collectdata: table number %d out of range", frag.TableNbr)
		}
		tbl := tabledef[frag.TableNbr-1]
		frag.TableName = tbl.Header.TableName

		if offset >= len(raw) {
			return nil, false, newError(KindBadData, "collectdata: truncated fragment header")
		}
		isOffset := raw[offset]&0x80 != 0
		frag.IsOffset = isOffset

		if isOffset {
			values, n, err = DecodeValues([]DataType{UInt4}, raw[offset:], 0)
			if err != nil {
				return nil, false, err
			}
			frag.ByteOffset = uint32(values[0].(uint64)) & 0x7FFFFFFF
			offset += n
			// The remainder of the buffer, minus the trailing "more" byte,
			// is surfaced verbatim -- this client does not reassemble
			// fragmented records (spec §4.7).
			frag.RawBytes = append([]byte{}, raw[offset:len(raw)-1]...)
			offset += len(frag.RawBytes)
			frags = append(frags, frag)
			continue
		}

		values, n, err = DecodeValues([]DataType{UInt2}, raw[offset:], 0)
		if err != nil {
			return nil, false, err
		}
		frag.NbrOfRecs = uint16(values[0].(uint64)) & 0x7FFF
		offset += n

		eventDriven := tbl.Header.TblInterval.Sec == 0 && tbl.Header.TblInterval.Nsec == 0
		var t0 NSecValue
		if !eventDriven {
			values, n, err = DecodeValues([]DataType{NSec}, raw[offset:], 0)
			if err != nil {
				return nil, false, err
			}
			t0 = values[0].(NSecValue)
			offset += n
		}

		for i := 0; i < int(frag.NbrOfRecs); i++ {
			rec := RawRecord{RecNbr: frag.BegRecNbr + uint32(i), Fields: map[string]interface{}{}}

			if eventDriven {
				values, n, err = DecodeValues([]DataType{NSec}, raw[offset:], 0)
				if err != nil {
					return nil, false, err
				}
				rec.TimeOfRec = values[0].(NSecValue)
				offset += n
			} else {
				rec.TimeOfRec = NSecValue{
					Sec:  t0.Sec + int32(i)*tbl.Header.TblInterval.Sec,
					Nsec: t0.Nsec + int32(i)*tbl.Header.TblInterval.Nsec,
				}
			}

			for _, fld := range tbl.Fields {
				if fld.FieldType == ASCII {
					v, n, err := decodeOne(ASCII, raw[offset:], int(fld.Dimension))
					if err != nil {
						return nil, false, err
					}
					rec.Fields[fld.FieldName] = v
					offset += n
					continue
				}
				dim := int(fld.Dimension)
				if dim < 1 {
					dim = 1
				}
				values, consumed, err := decodeRepeated(fld.FieldType, raw[offset:], dim)
				if err != nil {
					return nil, false, err
				}
				offset += consumed
				if PreserveArrays && dim > 1 {
					rec.Fields[fld.FieldName] = values
				} else {
					rec.Fields[fld.FieldName] = values[0]
				}
			}
			frag.Records = append(frag.Records, rec)
		}
		frags = append(frags, frag)
	}

	values, _, err := DecodeValues([]DataType{Bool}, raw[offset:], 0)
	if err != nil {
		return nil, false, err
	}
	more := values[0].(uint64) != 0
	return frags, more, nil
}

// decodeRepeated decodes count consecutive values of type t, returning the
// values and the total bytes consumed.
func decodeRepeated(t DataType, buf []byte, count int) ([]interface{}, int, error) {
	offset := 0
	values := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		v, n, err := decodeOne(t, buf[offset:], 0)
		if err != nil {
			return nil, 0, err
		}
		values = append(values, v)
		offset += n
	}
	return values, offset, nil
}
