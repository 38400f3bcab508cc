package pakbus

import (
	"testing"

	. "gopkg.in/check.v1"
)

// Test hooks gocheck into go test, the way the rest of the pack leans on
// gocheck for property-style suites alongside table-driven testing.T tests.
func Test(t *testing.T) { TestingT(t) }

type FramingSuite struct{}

var _ = Suite(&FramingSuite{})

func (s *FramingSuite) TestQuoteNeverLeaksDelimiter(c *C) {
	samples := [][]byte{
		fromHex("BD BD BD BC BC BD"),
		fromHex("00 01 02 03 04 05"),
		fromHex("FF FF FF"),
	}
	for _, sample := range samples {
		quoted := Quote(sample)
		for _, b := range quoted {
			c.Check(b, Not(Equals), byte(delimiter))
		}
		c.Check(Unquote(quoted), DeepEquals, sample)
	}
}

func (s *FramingSuite) TestSignatureSeedIsStandard(c *C) {
	c.Assert(SignatureSeed, Equals, uint16(0xAAAA))
}

func (s *FramingSuite) TestNullifierZeroesSignature(c *C) {
	packet := fromHex("A0 01 98 02 00 01 08 02 09 01 00 02 07 08")
	sig := ComputeSignature(packet, SignatureSeed)
	n := Nullifier(sig)
	whole := append(append([]byte{}, packet...), n[:]...)
	c.Assert(ComputeSignature(whole, SignatureSeed), Equals, uint16(0))
}

type HeaderSuite struct{}

var _ = Suite(&HeaderSuite{})

func (s *HeaderSuite) TestPackParseRoundTrip(c *C) {
	raw := PackHeader(HiProtoBMP5, 0x802, 0x001, 2, LinkReady, 3)
	hdr, err := ParseHeader(raw)
	c.Assert(err, IsNil)
	c.Check(hdr.HiProtoCode, Equals, uint8(HiProtoBMP5))
	c.Check(hdr.SrcNodeID, Equals, uint16(0x802))
	c.Check(hdr.DstNodeID, Equals, uint16(0x001))
	c.Check(hdr.HopCnt, Equals, uint8(3))
}
