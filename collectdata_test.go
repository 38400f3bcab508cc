package pakbus

import "testing"

func tableDefFixture() []TableDef {
	return []TableDef{
		{
			Header: TableHeader{
				TableName:   "Table1",
				TblInterval: NSecValue{Sec: 60, Nsec: 0},
			},
			Fields: []FieldDef{
				{FieldName: "CurSensor1_mVolt_Avg", FieldType: IEEE4B, Dimension: 1},
				{FieldName: "Batt_Volt_Avg", FieldType: FP2, Dimension: 1},
			},
		},
	}
}

// buildCollectDataReply assembles a single, non-offset fragment of two
// interval-driven records, the shape ParseCollectData expects (spec §4.7).
func buildCollectDataReply(t *testing.T) []byte {
	t.Helper()
	var buf []byte

	header, _ := EncodeValues(
		[]DataType{UInt2, UInt4, UInt2, NSec},
		[]interface{}{uint64(1), uint64(89052), uint64(2), NSecValue{Sec: 712143600, Nsec: 0}},
	)
	buf = append(buf, header...)

	rec1, _ := EncodeValues([]DataType{IEEE4B, FP2}, []interface{}{2506.0, 13.61})
	buf = append(buf, rec1...)
	rec2, _ := EncodeValues([]DataType{IEEE4B, FP2}, []interface{}{2507.5, 13.60})
	buf = append(buf, rec2...)

	more, _ := EncodeValues([]DataType{Bool}, []interface{}{uint64(0)})
	buf = append(buf, more...)
	return buf
}

func TestParseCollectDataBasic(t *testing.T) {
	raw := buildCollectDataReply(t)
	frags, more, err := ParseCollectData(raw, tableDefFixture())
	if err != nil {
		t.Fatal(err)
	}
	if more {
		t.Fatal("expected more == false")
	}
	if len(frags) != 1 {
		t.Fatalf("got %d fragments, want 1", len(frags))
	}
	frag := frags[0]
	if frag.TableName != "Table1" || frag.BegRecNbr != 89052 {
		t.Fatalf("unexpected fragment: %+v", frag)
	}
	if len(frag.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(frag.Records))
	}
	r0 := frag.Records[0]
	if r0.RecNbr != 89052 {
		t.Fatalf("RecNbr = %d, want 89052", r0.RecNbr)
	}
	got := r0.Fields["CurSensor1_mVolt_Avg"].(float64)
	if got != 2506.0 {
		t.Fatalf("CurSensor1_mVolt_Avg = %v, want 2506.0", got)
	}
	battV := r0.Fields["Batt_Volt_Avg"].(float64)
	if battV < 13.6099 || battV > 13.6101 {
		t.Fatalf("Batt_Volt_Avg = %v, want ~13.61", battV)
	}

	r1 := frag.Records[1]
	if r1.RecNbr != 89053 {
		t.Fatalf("RecNbr = %d, want 89053", r1.RecNbr)
	}
	wantTime := r0.TimeOfRec.Sec + 60
	if r1.TimeOfRec.Sec != wantTime {
		t.Fatalf("second record time = %d, want %d (first + interval)", r1.TimeOfRec.Sec, wantTime)
	}
}

func TestParseCollectDataMoreFlag(t *testing.T) {
	raw := buildCollectDataReply(t)
	raw[len(raw)-1] = 1 // flip the trailing "more" byte
	_, more, err := ParseCollectData(raw, tableDefFixture())
	if err != nil {
		t.Fatal(err)
	}
	if !more {
		t.Fatal("expected more == true")
	}
}
