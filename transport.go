package pakbus

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Transport owns a Link and speaks the PakBus framing/message/transaction
// protocol over it. It plays the role the original implementation's PakBus
// class plays: header/message building, the write path, and the wait_packet
// dispatch loop (spec §4.4, §4.5).
type Transport struct {
	Link         Link
	SrcNode      uint16
	DestNode     uint16
	SecurityCode uint16
	counter      TransactionCounter
	metrics      *Metrics
}

// NewTransport constructs a Transport bound to link. It writes nothing; the
// caller sends the "get the node's attention" byte run with Attention.
func NewTransport(link Link, srcNode, destNode, securityCode uint16, metrics *Metrics) *Transport {
	return &Transport{
		Link:         link,
		SrcNode:      srcNode,
		DestNode:     destNode,
		SecurityCode: securityCode,
		metrics:      metrics,
	}
}

// Attention sends six leading 0xBD bytes to wake up the node; callers invoke
// this once right after opening the link, mirroring the original
// PakBus.__init__'s unconditional write.
func (t *Transport) Attention() error {
	return Attention(t.Link)
}

// Write sends a fully-built packet (header + message body) over the link.
func (t *Transport) Write(packet []byte) error {
	if t.metrics != nil {
		t.metrics.bytesWritten.Add(float64(len(packet)))
	}
	return WriteFrame(t.Link, packet)
}

// WaitFor implements the dispatcher state machine of spec §4.5, written
// iteratively (per spec §9) rather than recursively so that a peer spamming
// unsolicited Hello/PleaseWait traffic can never blow the stack.
func (t *Transport) WaitFor(tranID uint8) (Header, Message, error) {
	deadline := time.Now().Add(t.Link.Timeout())
	for {
		if time.Now().After(deadline) {
			return Header{}, Message{}, newError(KindTimeout, "no reply for transaction %d", tranID)
		}

		data, err := ReadFrame(t.Link)
		if err == errBadSignature {
			if t.metrics != nil {
				t.metrics.signatureFailures.Inc()
			}
			continue // bad signature: drop the frame and keep waiting
		}
		if err != nil {
			return Header{}, Message{}, err
		}
		if data == nil {
			continue // no packet before the per-byte timeout; re-check the deadline
		}
		if t.metrics != nil {
			t.metrics.bytesRead.Add(float64(len(data)))
		}

		hdr, err := ParseHeader(data)
		if err != nil {
			log.WithError(err).Debug("pakbus: dropping malformed packet")
			continue
		}

		// S2: ignore packets that are not for us.
		if hdr.DstNodeID != t.SrcNode || hdr.SrcNodeID != t.DestNode {
			continue
		}

		body := data[HeaderSize:]
		if len(body) < 2 {
			continue
		}
		msgType, msgTranNbr := body[0], body[1]

		// S3: respond to incoming Hello command packets.
		if msgType == msgHello {
			if t.metrics != nil {
				t.metrics.strayPackets.Inc()
			}
			pkt := t.GetHelloResponse(msgTranNbr)
			if werr := t.Write(pkt); werr != nil {
				return Header{}, Message{}, werr
			}
			continue
		}

		// S4: DeliveryFailure is fatal.
		if msgType == msgFailure {
			return Header{}, Message{}, ErrDeliveryFailure
		}

		// S5: PleaseWait -- sleep and keep waiting.
		if msgTranNbr == tranID && msgType == msgPleaseWaitResp {
			_, msg, err := DecodePacket(data)
			if err != nil {
				return Header{}, Message{}, err
			}
			wait := msg.Body.(*PleaseWaitResponse)
			log.WithField("seconds", wait.WaitSec).Info("pakbus: please wait")
			time.Sleep(time.Duration(wait.WaitSec) * time.Second)
			deadline = deadline.Add(time.Duration(wait.WaitSec) * time.Second)
			continue
		}

		// S6: this is the reply we are waiting for.
		if msgTranNbr == tranID {
			_, msg, err := DecodePacket(data)
			if err != nil {
				return Header{}, Message{}, err
			}
			return hdr, msg, nil
		}

		// S7: stray traffic for someone else's transaction; drop it.
		if t.metrics != nil {
			t.metrics.strayPackets.Inc()
		}
	}
}

// --- message builders (spec §4.4) ---

// GetHelloCmd builds a Hello request. Hello uses LinkState=RING and
// ExpMoreCode=1 (spec §4.2).
func (t *Transport) GetHelloCmd() ([]byte, uint8) {
	tranID := t.counter.NextID()
	hdr := PackHeader(HiProtoPakCtrl, t.SrcNode, t.DestNode, 0x1, LinkRing, 0)
	body, _ := EncodeValues(
		[]DataType{Byte, Byte, Byte, Byte, UInt2},
		[]interface{}{uint64(msgHello), uint64(tranID), uint64(0), uint64(2), uint64(1800)},
	)
	return append(hdr, body...), tranID
}

// GetHelloResponse builds an unsolicited HelloResponse echoing tranID, sent
// when the peer probes us with its own Hello (spec §4.5 S3).
func (t *Transport) GetHelloResponse(tranID uint8) []byte {
	hdr := PackHeader(HiProtoPakCtrl, t.SrcNode, t.DestNode, 2, LinkReady, 0)
	body, _ := EncodeValues(
		[]DataType{Byte, Byte, Byte, Byte, UInt2},
		[]interface{}{uint64(msgHelloResponse), uint64(tranID), uint64(0), uint64(2), uint64(1800)},
	)
	return append(hdr, body...)
}

// GetGetSettingsCmd builds a GetSettings request.
func (t *Transport) GetGetSettingsCmd() ([]byte, uint8) {
	tranID := t.counter.NextID()
	hdr := PackHeader(HiProtoPakCtrl, t.SrcNode, t.DestNode, 2, LinkReady, 0)
	body, _ := EncodeValues([]DataType{Byte, Byte}, []interface{}{uint64(msgGetSettings), uint64(tranID)})
	return append(hdr, body...), tranID
}

// GetCollectDataCmd builds a CollectData request. p1/p2 are interpreted
// according to mode (spec §4.4): UInt4 for 0x04/0x05, two UInt4 for
// 0x06/0x08, two NSec for 0x07 (time range). This client only issues
// ModeCollectAll and ModeTimeRange.
func (t *Transport) GetCollectDataCmd(tableNbr uint16, tableDefSig uint16, mode uint8, p1, p2 interface{}) ([]byte, uint8) {
	tranID := t.counter.NextID()
	hdr := PackHeader(HiProtoBMP5, t.SrcNode, t.DestNode, 2, LinkReady, 0)
	body, _ := EncodeValues(
		[]DataType{Byte, Byte, UInt2, Byte},
		[]interface{}{uint64(msgCollectData), uint64(tranID), uint64(t.SecurityCode), uint64(mode)},
	)
	tableBody, _ := EncodeValues([]DataType{UInt2, UInt2}, []interface{}{uint64(tableNbr), uint64(tableDefSig)})
	body = append(body, tableBody...)

	switch mode {
	case modeP1Only1, modeP1Only2:
		pBody, _ := EncodeValues([]DataType{UInt4}, []interface{}{p1})
		body = append(body, pBody...)
	case modeP1P2UInt4a, modeP1P2UInt4b:
		pBody, _ := EncodeValues([]DataType{UInt4, UInt4}, []interface{}{p1, p2})
		body = append(body, pBody...)
	case ModeTimeRange:
		pBody, _ := EncodeValues([]DataType{NSec, NSec}, []interface{}{p1, p2})
		body = append(body, pBody...)
	}
	fieldList, _ := EncodeValues([]DataType{UInt2}, []interface{}{uint64(0)})
	body = append(body, fieldList...)
	return append(hdr, body...), tranID
}

// GetClockCmd builds a Clock request with the given (seconds, nanoseconds)
// adjustment; a zero adjustment is a pure "get time" request.
func (t *Transport) GetClockCmd(adjustment NSecValue) ([]byte, uint8) {
	tranID := t.counter.NextID()
	hdr := PackHeader(HiProtoBMP5, t.SrcNode, t.DestNode, 2, LinkReady, 0)
	body, _ := EncodeValues(
		[]DataType{Byte, Byte, UInt2, NSec},
		[]interface{}{uint64(msgClock), uint64(tranID), uint64(t.SecurityCode), adjustment},
	)
	return append(hdr, body...), tranID
}

// GetGetProgStatCmd builds a GetProgStat request.
func (t *Transport) GetGetProgStatCmd() ([]byte, uint8) {
	tranID := t.counter.NextID()
	hdr := PackHeader(HiProtoBMP5, t.SrcNode, t.DestNode, 2, LinkReady, 0)
	body, _ := EncodeValues(
		[]DataType{Byte, Byte, UInt2},
		[]interface{}{uint64(msgGetProgStat), uint64(tranID), uint64(t.SecurityCode)},
	)
	return append(hdr, body...), tranID
}

// GetFileUploadCmd builds a FileUpload request. A non-zero tranID lets the caller
// reuse the same transaction across successive swaths of the same file, as
// required by newer datalogger OS versions (spec §4.8 getfile).
func (t *Transport) GetFileUploadCmd(filename string, offset uint32, swath uint16, closeFlag uint8, tranID uint8) ([]byte, uint8) {
	if tranID == 0 {
		tranID = t.counter.NextID()
	}
	hdr := PackHeader(HiProtoBMP5, t.SrcNode, t.DestNode, 2, LinkReady, 0)
	body, _ := EncodeValues(
		[]DataType{Byte, Byte, UInt2, ASCIIZ, Byte, UInt4, UInt2},
		[]interface{}{uint64(msgFileUpload), uint64(tranID), uint64(t.SecurityCode), filename, uint64(closeFlag), uint64(offset), uint64(swath)},
	)
	return append(hdr, body...), tranID
}

// GetByeCmd builds a Bye request. Bye uses LinkState=FINISHED and
// ExpMoreCode=0 (spec §4.2).
func (t *Transport) GetByeCmd() ([]byte, uint8) {
	tranID := t.counter.NextID()
	hdr := PackHeader(HiProtoPakCtrl, t.SrcNode, t.DestNode, 0, LinkFinished, 0)
	body, _ := EncodeValues([]DataType{Byte, Byte}, []interface{}{uint64(msgBye), uint64(0)})
	return append(hdr, body...), tranID
}
