package pakbus

import "testing"

func TestComputeSignatureZeroOnSelfVerifyingFrame(t *testing.T) {
	buf := fromHex("A8 02 10 01 18 02 00 01 9D 05 0D 00 00 00 6C 8E 14")
	if sig := ComputeSignature(buf, SignatureSeed); sig != 0 {
		t.Fatalf("got signature %#04x, want 0", sig)
	}
}

func TestComputeSignatureSeedMatters(t *testing.T) {
	buf := fromHex("A8 02 10 01 18 02 00 01 9D 05 0D 00 00 00 6C 8E 14")
	if sig := ComputeSignature(buf, 0x1234); sig == 0 {
		t.Fatal("signature with wrong seed should not be zero on the canonical frame")
	}
}

func TestComputeSignatureMutationBreaksIt(t *testing.T) {
	buf := fromHex("D7 02 10 01 18 02 00 01 9D 05 0D 00 00 00 6C 8E 14")
	sig := ComputeSignature(buf, SignatureSeed)
	if sig == 0 {
		t.Fatal("mutated frame should not self-verify")
	}
	n := Nullifier(sig)
	want := [2]byte{'2', 'h'}
	if n != want {
		t.Fatalf("Nullifier(%#04x) = %q, want %q", sig, n[:], want[:])
	}
}

func TestQuoteUnquoteRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xBD},
		{0xBC},
		{0xBC, 0xBD, 0xBC, 0xBD},
		fromHex("A0 01 98 02 00 01 08 02"),
	}
	for _, c := range cases {
		quoted := Quote(c)
		for _, b := range quoted {
			if b == delimiter {
				t.Fatalf("quote(%x) = %x still contains a raw delimiter", c, quoted)
			}
		}
		got := Unquote(quoted)
		if string(got) != string(c) {
			t.Fatalf("unquote(quote(%x)) = %x, want %x", c, got, c)
		}
	}
}

func TestNullifierMakesPacketSelfVerifying(t *testing.T) {
	packets := [][]byte{
		fromHex("A0 01 98 02 00 01 08 02 09 01 00 02 07 08"),
		fromHex("B0 01 18 02 00 01 08 02 0D 00"),
		{0x01, 0x02, 0x03, 0x04, 0x05},
	}
	for _, p := range packets {
		sig := ComputeSignature(p, SignatureSeed)
		n := Nullifier(sig)
		whole := append(append([]byte{}, p...), n[:]...)
		if got := ComputeSignature(whole, SignatureSeed); got != 0 {
			t.Fatalf("packet %x with nullifier %x has signature %#04x, want 0", p, n, got)
		}
	}
}
