package someip

import (
	"fmt"
	"net"
)

// EncodeDatagram renders m as the exact bytes of one UDP datagram: header
// followed by payload, with no framing beyond what DecodeHeader's Length
// field already carries.
func EncodeDatagram(m Message) []byte {
	buf := make([]byte, HeaderSize+len(m.Payload))
	putHeader(buf, m.Header)
	copy(buf[HeaderSize:], m.Payload)
	return buf
}

// DecodeDatagram parses exactly one UDP datagram's worth of bytes into a
// Message. Unlike ReadMessage, there is no stream to resynchronize with on
// error: buf must contain precisely HeaderSize+payload bytes, no more and
// no fewer, since SOME/IP places exactly one message per datagram.
func DecodeDatagram(buf []byte) (Message, error) {
	if len(buf) < HeaderSize {
		return Message{}, fmt.Errorf("%w: datagram shorter than header (%d bytes)", ErrInvalidMessage, len(buf))
	}

	h, err := DecodeHeader(buf[:HeaderSize])
	if err != nil {
		return Message{}, err
	}

	if h.Length < 8 {
		return Message{}, fmt.Errorf("%w: length %d below minimum 8", ErrInvalidMessage, h.Length)
	}

	wantTotal := HeaderSize + int(h.Length-8)
	if len(buf) != wantTotal {
		return Message{}, fmt.Errorf("%w: datagram length %d does not match header (want %d)", ErrInvalidMessage, len(buf), wantTotal)
	}

	payload := make([]byte, h.Length-8)
	copy(payload, buf[HeaderSize:])
	return Message{Header: h, Payload: payload}, nil
}

// ReadDatagram reads one datagram from conn and decodes it, returning the
// sender's address alongside the Message. conn is expected to be a
// net.PacketConn such as *net.UDPConn.
func ReadDatagram(conn net.PacketConn, limits Limits) (Message, net.Addr, error) {
	buf := make([]byte, limits.MaxDatagramSize)
	n, addr, err := conn.ReadFrom(buf)
	if err != nil {
		return Message{}, nil, err
	}

	m, err := DecodeDatagram(buf[:n])
	if err != nil {
		return Message{}, addr, err
	}
	return m, addr, nil
}

// WriteDatagramTo encodes m and sends it as a single UDP datagram to addr.
func WriteDatagramTo(conn net.PacketConn, m Message, addr net.Addr) error {
	buf := EncodeDatagram(m)
	_, err := conn.WriteTo(buf, addr)
	return err
}
