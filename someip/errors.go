package someip

import (
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for the codec and transport layers. Wrap with fmt.Errorf
// and %w so callers can still errors.Is against these.
var (
	ErrInvalidHeader    = errors.New("someip: invalid header")
	ErrInvalidMessage   = errors.New("someip: invalid message")
	ErrTimeout          = errors.New("someip: timeout")
	ErrConnectionClosed = errors.New("someip: connection closed")
	ErrPayloadTooLarge  = errors.New("someip: payload too large")
)

// InvalidMessageTypeError reports an unknown message_type byte seen during
// header decode.
type InvalidMessageTypeError struct {
	Value byte
}

func (e InvalidMessageTypeError) Error() string {
	return fmt.Sprintf("someip: invalid message_type 0x%02x", e.Value)
}

func (e InvalidMessageTypeError) Is(target error) bool {
	return target == ErrInvalidHeader
}

// isTimeoutErr reports whether err is a net.Error reporting Timeout(),
// the shape SetReadDeadline/SetWriteDeadline expirations take.
func isTimeoutErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// InvalidReturnCodeError reports an unknown return_code byte seen during
// header decode.
type InvalidReturnCodeError struct {
	Value byte
}

func (e InvalidReturnCodeError) Error() string {
	return fmt.Sprintf("someip: invalid return_code 0x%02x", e.Value)
}

func (e InvalidReturnCodeError) Is(target error) bool {
	return target == ErrInvalidHeader
}
