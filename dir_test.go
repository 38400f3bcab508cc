package pakbus

import "testing"

func TestParseFileDirectory(t *testing.T) {
	var buf []byte
	v, _ := EncodeValues([]DataType{Byte}, []interface{}{uint64(1)})
	buf = append(buf, v...)

	entry, _ := EncodeValues(
		[]DataType{ASCIIZ, UInt4, ASCIIZ},
		[]interface{}{"CPU:program.cr1000", uint64(4096), "2021-03-01 00:00:00"},
	)
	buf = append(buf, entry...)
	attrs, _ := EncodeValues([]DataType{Byte, Byte}, []interface{}{uint64(1), uint64(0)})
	buf = append(buf, attrs...)

	terminator, _ := EncodeValues([]DataType{ASCIIZ}, []interface{}{""})
	buf = append(buf, terminator...)

	fd, err := ParseFileDirectory(buf)
	if err != nil {
		t.Fatal(err)
	}
	if fd.DirVersion != 1 {
		t.Fatalf("DirVersion = %d, want 1", fd.DirVersion)
	}
	if len(fd.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(fd.Files))
	}
	f := fd.Files[0]
	if f.FileName != "CPU:program.cr1000" || f.FileSize != 4096 {
		t.Fatalf("unexpected entry: %+v", f)
	}
	if len(f.Attribute) != 1 || f.Attribute[0] != 1 {
		t.Fatalf("Attribute = %v, want [1]", f.Attribute)
	}
}
