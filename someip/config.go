package someip

import "time"

// Config bounds and times the behavior of the stream and datagram
// transports and the client/server types built on them. DefaultConfig
// returns a populated Config; a Config passed to a constructor is used as
// given, zero-value fields included.
type Config struct {
	// ReadTimeout bounds how long a single ReadMessage/ReadDatagram call may
	// block before returning ErrTimeout. Zero disables the deadline.
	ReadTimeout time.Duration

	// CallTimeout bounds how long Call waits for a correlated response.
	CallTimeout time.Duration

	// MaxMessagePayload caps the payload size ReadMessage will allocate for.
	MaxMessagePayload uint32

	// MaxDatagramSize caps the UDP datagram size ReadDatagram will allocate
	// a receive buffer for.
	MaxDatagramSize int

	// DiscardUnmatchedResponses controls what TCPClient/UDPClient do with a
	// Response/Error whose correlation key does not match any outstanding
	// Call. When true (the default) they are dropped; when false they are
	// delivered to the handler registered via OnUnmatched.
	DiscardUnmatchedResponses bool
}

// DefaultConfig returns the configuration used when a caller passes none:
// no read timeout, a five second call timeout, and the codec's default
// payload/datagram ceilings.
func DefaultConfig() Config {
	limits := DefaultLimits()
	return Config{
		ReadTimeout:               0,
		CallTimeout:               5 * time.Second,
		MaxMessagePayload:         limits.MaxMessagePayload,
		MaxDatagramSize:           limits.MaxDatagramSize,
		DiscardUnmatchedResponses: true,
	}
}

func (c Config) limits() Limits {
	return Limits{MaxMessagePayload: c.MaxMessagePayload, MaxDatagramSize: c.MaxDatagramSize}
}
