package pakbus

// FieldDef describes one column of a table (spec §3 data model, §4.6).
type FieldDef struct {
	ReadOnly    bool
	FieldType   DataType
	RawTypeCode int // set when FieldType could not be resolved by name
	FieldName   string
	AliasName   []string
	Processing  string
	Units       string
	Description string
	BegIdx      uint32
	Dimension   uint32
	SubDim      []uint32
}

// TableHeader is a table's header block (spec §3 data model).
type TableHeader struct {
	TableName    string
	TableSize    uint32
	TimeType     uint8
	TblTimeInto  NSecValue
	TblInterval  NSecValue
}

// TableDef is one parsed table definition: header, ordered field list, and
// the 16-bit signature over its own encoding used to detect schema drift
// (spec §3, §4.6).
type TableDef struct {
	Header    TableHeader
	Fields    []FieldDef
	Signature uint16
}

// ParseTableDef parses the raw contents of a .TDF file (spec §4.6): a
// version byte, then table records until end-of-buffer. Each table's
// Signature is computed over its own header+fields, including the
// terminating zero field-type byte.
func ParseTableDef(raw []byte) ([]TableDef, error) {
	var tabledef []TableDef
	_, n, err := DecodeValues([]DataType{Byte}, raw, 0)
	if err != nil {
		return nil, err
	}
	offset := n

	for offset < len(raw) {
		start := offset

		values, n, err := DecodeValues([]DataType{ASCIIZ, UInt4, Byte, NSec, NSec}, raw[offset:], 0)
		if err != nil {
			return nil, err
		}
		hdr := TableHeader{
			TableName:   values[0].(string),
			TableSize:   uint32(values[1].(uint64)),
			TimeType:    uint8(values[2].(uint64)),
			TblTimeInto: values[3].(NSecValue),
			TblInterval: values[4].(NSecValue),
		}
		offset += n

		var fields []FieldDef
		for {
			values, n, err = DecodeValues([]DataType{Byte}, raw[offset:], 0)
			if err != nil {
				return nil, err
			}
			offset += n
			fieldType := uint8(values[0].(uint64))
			if fieldType == 0 {
				break
			}

			var fld FieldDef
			fld.ReadOnly = fieldType&0x80 != 0
			code := int(fieldType & 0x7F)
			if name, ok := TypeByCode(code); ok {
				fld.FieldType = name
			} else {
				fld.RawTypeCode = code
			}

			values, n, err = DecodeValues([]DataType{ASCIIZ}, raw[offset:], 0)
			if err != nil {
				return nil, err
			}
			fld.FieldName = values[0].(string)
			offset += n

			for {
				values, n, err = DecodeValues([]DataType{ASCIIZ}, raw[offset:], 0)
				if err != nil {
					return nil, err
				}
				offset += n
				alias := values[0].(string)
				if alias == "" {
					break
				}
				fld.AliasName = append(fld.AliasName, alias)
			}

			values, n, err = DecodeValues([]DataType{ASCIIZ, ASCIIZ, ASCIIZ, UInt4, UInt4}, raw[offset:], 0)
			if err != nil {
				return nil, err
			}
			fld.Processing = values[0].(string)
			fld.Units = values[1].(string)
			fld.Description = values[2].(string)
			fld.BegIdx = uint32(values[3].(uint64))
			fld.Dimension = uint32(values[4].(uint64))
			offset += n

			for {
				values, n, err = DecodeValues([]DataType{UInt4}, raw[offset:], 0)
				if err != nil {
					return nil, err
				}
				offset += n
				subdim := uint32(values[0].(uint64))
				if subdim == 0 {
					break
				}
				fld.SubDim = append(fld.SubDim, subdim)
			}

			fields = append(fields, fld)
		}

		sig := ComputeSignature(raw[start:offset], SignatureSeed)
		tabledef = append(tabledef, TableDef{Header: hdr, Fields: fields, Signature: sig})
	}
	return tabledef, nil
}
