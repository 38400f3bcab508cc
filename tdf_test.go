package pakbus

import "testing"

// buildTDF assembles a minimal but realistic .TDF buffer: one version byte
// and one table with one field, the way ParseTableDef expects to consume
// it (spec §4.6).
func buildTDF(t *testing.T) []byte {
	t.Helper()
	var buf []byte
	v, _ := EncodeValues([]DataType{Byte}, []interface{}{uint64(1)})
	buf = append(buf, v...)

	hdr, _ := EncodeValues(
		[]DataType{ASCIIZ, UInt4, Byte, NSec, NSec},
		[]interface{}{"Status", uint64(1), uint64(0), NSecValue{}, NSecValue{}},
	)
	buf = append(buf, hdr...)

	// Field 1: read-write IEEE4B "Batt_Volt_Avg", no alias, dim 1.
	f1, _ := EncodeValues(
		[]DataType{Byte, ASCIIZ, ASCIIZ, ASCIIZ, ASCIIZ, ASCIIZ, UInt4, UInt4, UInt4},
		[]interface{}{
			uint64(typeTable[IEEE4B].code), "Batt_Volt_Avg", "", "Smp", "Volts", "", uint64(0), uint64(1), uint64(0),
		},
	)
	buf = append(buf, f1...)

	// Terminating zero field-type byte.
	zero, _ := EncodeValues([]DataType{Byte}, []interface{}{uint64(0)})
	buf = append(buf, zero...)
	return buf
}

func TestParseTableDefBasic(t *testing.T) {
	buf := buildTDF(t)
	tabledef, err := ParseTableDef(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(tabledef) != 1 {
		t.Fatalf("got %d tables, want 1", len(tabledef))
	}
	tbl := tabledef[0]
	if tbl.Header.TableName != "Status" {
		t.Fatalf("TableName = %q, want Status", tbl.Header.TableName)
	}
	if len(tbl.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(tbl.Fields))
	}
	fld := tbl.Fields[0]
	if fld.FieldName != "Batt_Volt_Avg" || fld.FieldType != IEEE4B {
		t.Fatalf("unexpected field: %+v", fld)
	}
	if fld.ReadOnly {
		t.Fatal("field should not be marked read-only")
	}
	if fld.Dimension != 1 {
		t.Fatalf("Dimension = %d, want 1", fld.Dimension)
	}
}

func TestParseTableDefReadOnlyBit(t *testing.T) {
	var buf []byte
	v, _ := EncodeValues([]DataType{Byte}, []interface{}{uint64(1)})
	buf = append(buf, v...)
	hdr, _ := EncodeValues(
		[]DataType{ASCIIZ, UInt4, Byte, NSec, NSec},
		[]interface{}{"Readings", uint64(1), uint64(0), NSecValue{}, NSecValue{}},
	)
	buf = append(buf, hdr...)
	code := uint64(typeTable[Byte].code) | 0x80
	f1, _ := EncodeValues(
		[]DataType{Byte, ASCIIZ, ASCIIZ, ASCIIZ, ASCIIZ, ASCIIZ, UInt4, UInt4, UInt4},
		[]interface{}{code, "Flag", "", "", "", "", uint64(0), uint64(1), uint64(0)},
	)
	buf = append(buf, f1...)
	zero, _ := EncodeValues([]DataType{Byte}, []interface{}{uint64(0)})
	buf = append(buf, zero...)

	tabledef, err := ParseTableDef(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !tabledef[0].Fields[0].ReadOnly {
		t.Fatal("expected ReadOnly field")
	}
	if tabledef[0].Fields[0].FieldType != Byte {
		t.Fatalf("FieldType = %v, want Byte", tabledef[0].Fields[0].FieldType)
	}
}
