package pakbus

import "encoding/binary"

// Link state values a Header's LinkState field may carry (spec §4.2).
const (
	LinkRing     = 0x9
	LinkReady    = 0xA
	LinkFinished = 0xB
)

// Higher-protocol namespaces (spec GLOSSARY).
const (
	HiProtoPakCtrl = 0x0
	HiProtoBMP5    = 0x1
)

// HeaderSize is the fixed 8-byte length of the link+network header.
const HeaderSize = 8

// Header is the PakBus link/network header: four big-endian 16-bit words
// (spec §4.2, §3).
type Header struct {
	LinkState   uint8
	DstPhyAddr  uint16
	ExpMoreCode uint8
	Priority    uint8
	SrcPhyAddr  uint16
	HiProtoCode uint8
	DstNodeID   uint16
	HopCnt      uint8
	SrcNodeID   uint16
}

// PackHeader builds the 8-byte wire header for a message bound to dstNode
// from srcNode. priority is always 1 and a linkState of 0 means READY;
// expMore and hops are packed exactly as given (spec §4.2 defaults).
func PackHeader(hiProto uint8, srcNode, dstNode uint16, expMore, linkState, hops uint8) []byte {
	if linkState == 0 {
		linkState = LinkReady
	}
	priority := uint8(1)
	buf := make([]byte, HeaderSize)
	w0 := uint16(linkState&0xF)<<12 | (dstNode & 0xFFF)
	w1 := uint16(expMore&0x3)<<14 | uint16(priority&0x3)<<12 | (srcNode & 0xFFF)
	w2 := uint16(hiProto&0xF)<<12 | (dstNode & 0xFFF)
	w3 := uint16(hops&0xF)<<12 | (srcNode & 0xFFF)
	binary.BigEndian.PutUint16(buf[0:2], w0)
	binary.BigEndian.PutUint16(buf[2:4], w1)
	binary.BigEndian.PutUint16(buf[4:6], w2)
	binary.BigEndian.PutUint16(buf[6:8], w3)
	return buf
}

// ParseHeader decodes the first 8 bytes of a packet into a Header.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, newError(KindBadData, "header: need %d bytes, got %d", HeaderSize, len(data))
	}
	w0 := binary.BigEndian.Uint16(data[0:2])
	w1 := binary.BigEndian.Uint16(data[2:4])
	w2 := binary.BigEndian.Uint16(data[4:6])
	w3 := binary.BigEndian.Uint16(data[6:8])
	return Header{
		LinkState:   uint8(w0 >> 12),
		DstPhyAddr:  w0 & 0x0FFF,
		ExpMoreCode: uint8((w1 & 0xC000) >> 14),
		Priority:    uint8((w1 & 0x3000) >> 12),
		SrcPhyAddr:  w1 & 0x0FFF,
		HiProtoCode: uint8(w2 >> 12),
		DstNodeID:   w2 & 0x0FFF,
		HopCnt:      uint8(w3 >> 12),
		SrcNodeID:   w3 & 0x0FFF,
	}, nil
}
