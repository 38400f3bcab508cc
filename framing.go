package pakbus

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const delimiter = 0xBD

// WriteFrame computes the packet's signature, appends the nullifier, quotes
// the result, and wraps it with leading/trailing delimiter bytes before
// writing it to link (spec §4.1).
func WriteFrame(link Link, packet []byte) error {
	sig := ComputeSignature(packet, SignatureSeed)
	nullifier := Nullifier(sig)
	framed := append(append([]byte{}, packet...), nullifier[:]...)
	quoted := Quote(framed)
	out := make([]byte, 0, len(quoted)+2)
	out = append(out, delimiter)
	out = append(out, quoted...)
	out = append(out, delimiter)
	log.WithField("bytes", len(out)).Debug("pakbus: writing frame")
	return link.Write(out)
}

// Attention sends the six leading 0xBD bytes used to get a node's attention
// before the first outbound frame of a session (spec §4.1).
func Attention(link Link) error {
	return link.Write([]byte{0xBD, 0xBD, 0xBD, 0xBD, 0xBD, 0xBD})
}

// ReadFrame reads one PakBus frame from link: skip to the next delimiter,
// skip the leader run of further delimiters, accumulate until the following
// delimiter, unquote, and validate the signature. A nil, nil return means no
// frame arrived before the link's configured timeout (spec §4.1).
func ReadFrame(link Link) ([]byte, error) {
	deadline := time.Now().Add(link.Timeout())

	readByte := func() (byte, bool, error) {
		if time.Now().After(deadline) {
			return 0, false, nil
		}
		b, err := link.Read(1)
		if err != nil {
			return 0, false, err
		}
		if len(b) == 0 {
			return 0, false, nil
		}
		return b[0], true, nil
	}

	var b byte
	var ok bool
	var err error

	// Skip bytes until the first delimiter.
	for {
		b, ok, err = readByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if b == delimiter {
			break
		}
	}
	// Skip the leader run of further delimiters.
	for b == delimiter {
		b, ok, err = readByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	// Accumulate until the next delimiter.
	var raw []byte
	for b != delimiter {
		raw = append(raw, b)
		b, ok, err = readByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	packet := Unquote(raw)
	if ComputeSignature(packet, SignatureSeed) != 0 {
		log.Warn("pakbus: dropping frame with bad signature")
		return nil, errBadSignature
	}
	return packet[:len(packet)-2], nil
}

// errBadSignature is a package-private sentinel that WaitFor distinguishes
// from a genuine timeout: the caller keeps waiting rather than failing the
// whole transaction (spec §7: "Signature mismatch on read: drop frame,
// continue waiting until the transaction's own timeout").
var errBadSignature = newError(KindBadSignature, "signature check failed")
