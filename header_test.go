package pakbus

import (
	"bytes"
	"testing"
)

func TestPackHeaderReadyDefaults(t *testing.T) {
	got := PackHeader(HiProtoPakCtrl, 0x802, 0x001, 2, 0, 0)
	want := fromHex("A0 01 98 02 00 01 08 02")
	if !bytes.Equal(got, want) {
		t.Fatalf("PackHeader() = % x, want % x", got, want)
	}
}

func TestParseHeaderRoundTrip(t *testing.T) {
	raw := fromHex("A0 01 98 02 00 01 08 02")
	hdr, err := ParseHeader(raw)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.DstNodeID != 0x001 || hdr.SrcNodeID != 0x802 {
		t.Fatalf("unexpected addresses: %+v", hdr)
	}
	if hdr.HiProtoCode != HiProtoPakCtrl {
		t.Fatalf("hi_proto = %#x, want %#x", hdr.HiProtoCode, HiProtoPakCtrl)
	}
	repacked := PackHeader(hdr.HiProtoCode, hdr.SrcNodeID, hdr.DstNodeID, hdr.ExpMoreCode, hdr.LinkState, hdr.HopCnt)
	if !bytes.Equal(repacked, raw) {
		t.Fatalf("repacked header = % x, want % x", repacked, raw)
	}
}

func TestParseHeaderTooShort(t *testing.T) {
	if _, err := ParseHeader([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}
