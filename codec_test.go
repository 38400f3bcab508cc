package pakbus

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		typ  DataType
		val  interface{}
	}{
		{"ASCIIZ", ASCIIZ, "hello"},
		{"NSec", NSec, NSecValue{Sec: 712142640, Nsec: 0}},
		{"UInt2", UInt2, uint64(1800)},
		{"UInt4", UInt4, uint64(40615)},
		{"Int1", Int1, int64(-5)},
		{"Int2", Int2, int64(-300)},
		{"Int4", Int4, int64(-70000)},
		{"Bool8", Bool8, uint64(1)},
		{"IEEE4B", IEEE4B, float64(float32(3.25))},
		{"IEEE4L", IEEE4L, float64(float32(-1.5))},
		{"IEEE8B", IEEE8B, 13.61},
		{"IEEE8L", IEEE8L, -2012.0726},
	}
	for _, c := range cases {
		enc, err := EncodeValues([]DataType{c.typ}, []interface{}{c.val})
		if err != nil {
			t.Fatalf("%s: encode error: %v", c.name, err)
		}
		dec, n, err := DecodeValues([]DataType{c.typ}, enc, len(enc))
		if err != nil {
			t.Fatalf("%s: decode error: %v", c.name, err)
		}
		if n != len(enc) {
			t.Fatalf("%s: consumed %d bytes, want %d", c.name, n, len(enc))
		}
		if dec[0] != c.val {
			t.Fatalf("%s: round-trip = %v (%T), want %v (%T)", c.name, dec[0], dec[0], c.val, c.val)
		}
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	enc, err := EncodeValues([]DataType{ASCII}, []interface{}{"abcd"})
	if err != nil {
		t.Fatal(err)
	}
	dec, n, err := DecodeValues([]DataType{ASCII}, enc, 4)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || dec[0].(string) != "abcd" {
		t.Fatalf("got (%v, %d), want (\"abcd\", 4)", dec[0], n)
	}
}

func TestFP2Decode(t *testing.T) {
	// 13.61 encoded as FP2: sign=0, exponent=2, mantissa=1361 -> 0x4551.
	raw := []byte{0x45, 0x51}
	dec, n, err := DecodeValues([]DataType{FP2}, raw, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("consumed %d bytes, want 2", n)
	}
	got := dec[0].(float64)
	if got < 13.6099 || got > 13.6101 {
		t.Fatalf("FP2 decode = %v, want ~13.61", got)
	}
}

func TestTimeNsecRoundTrip(t *testing.T) {
	n := NSecValue{Sec: 712143626, Nsec: 990000000}
	tm := NsecToTime(n)
	back := TimeToNsec(tm)
	if back.Sec != n.Sec {
		t.Fatalf("TimeToNsec(NsecToTime(%v)) = %v, want Sec %d", n, back, n.Sec)
	}
}
