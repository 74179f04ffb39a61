package someip

import (
	"fmt"
	"io"
)

// Limits bounds the sizes the codec will accept, guarding against a
// malicious or corrupt peer driving unbounded allocation.
type Limits struct {
	// MaxMessagePayload is the largest payload, in octets, ReadMessage will
	// allocate for on a stream transport.
	MaxMessagePayload uint32

	// MaxDatagramSize is the largest single UDP datagram ReadDatagram will
	// accept.
	MaxDatagramSize int
}

// DefaultLimits returns the limits used when none are supplied: a 16 MiB
// message payload ceiling and the historical SOME/IP UDP datagram ceiling
// of 65507 octets (the IPv4 payload maximum).
func DefaultLimits() Limits {
	return Limits{
		MaxMessagePayload: 16 * 1024 * 1024,
		MaxDatagramSize:   65507,
	}
}

// ReadMessage reads exactly one SOME/IP message from r: a 16-byte header
// followed by Length-8 octets of payload. It blocks until a full message
// has arrived, r is closed, or an error occurs.
func ReadMessage(r io.Reader, limits Limits) (Message, error) {
	hdrBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		if err == io.EOF {
			return Message{}, ErrConnectionClosed
		}
		if err == io.ErrUnexpectedEOF {
			return Message{}, fmt.Errorf("%w: truncated header", ErrInvalidMessage)
		}
		return Message{}, err
	}

	h, err := DecodeHeader(hdrBuf)
	if err != nil {
		return Message{}, err
	}

	if h.Length < 8 {
		return Message{}, fmt.Errorf("%w: length %d below minimum 8", ErrInvalidMessage, h.Length)
	}

	payloadLen := h.Length - 8
	if payloadLen > limits.MaxMessagePayload {
		return Message{}, fmt.Errorf("%w: %w: payload %d exceeds limit %d", ErrInvalidMessage, ErrPayloadTooLarge, payloadLen, limits.MaxMessagePayload)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Message{}, fmt.Errorf("%w: truncated payload", ErrInvalidMessage)
		}
		return Message{}, err
	}

	return Message{Header: h, Payload: payload}, nil
}

// WriteMessage writes m to w as a 16-byte header followed by its payload.
// It performs a single Write call against the concatenated buffer so a
// partial write cannot interleave with another goroutine's frame on the
// same connection.
func WriteMessage(w io.Writer, m Message) error {
	buf := make([]byte, HeaderSize+len(m.Payload))
	putHeader(buf, m.Header)
	copy(buf[HeaderSize:], m.Payload)
	_, err := w.Write(buf)
	return err
}
