package tp

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed wire size of a TP header in octets.
const HeaderSize = 4

const (
	offsetMask      = 0xFFFFFFF0
	moreSegmentsBit = 0x01
	reservedMask    = 0x0E
)

// Header is the 4-byte SOME/IP-TP header: a 28-bit byte offset (always a
// multiple of 16) and a more_segments flag. The full word is
// (offset & 0xFFFFFFF0) | (flags & 0x0F), with bits 3..1 reserved at zero.
type Header struct {
	Offset       uint32
	MoreSegments bool
}

// EncodeHeader renders h as its 4 big-endian octets.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	putHeader(buf, h)
	return buf
}

func putHeader(buf []byte, h Header) {
	word := h.Offset & offsetMask
	if h.MoreSegments {
		word |= moreSegmentsBit
	}
	binary.BigEndian.PutUint32(buf, word)
}

// DecodeHeader parses exactly HeaderSize octets of buf into a Header,
// rejecting a word with any reserved bit set.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderSize {
		return Header{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(buf))
	}

	word := binary.BigEndian.Uint32(buf)
	if word&reservedMask != 0 {
		return Header{}, fmt.Errorf("%w: reserved bits set in 0x%08x", ErrInvalidHeader, word)
	}

	return Header{
		Offset:       word & offsetMask,
		MoreSegments: word&moreSegmentsBit != 0,
	}, nil
}
