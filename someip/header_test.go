package someip

import (
	"errors"
	"testing"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	h := Header{
		ServiceID:        0x1234,
		MethodID:         0x0001,
		Length:           23,
		ClientID:         0x0042,
		SessionID:        0x0001,
		ProtocolVersion:  ProtocolVersion,
		InterfaceVersion: 1,
		MessageType:      MessageTypeRequest,
		ReturnCode:       ReturnCodeOk,
	}

	buf := EncodeHeader(h)
	if len(buf) != HeaderSize {
		t.Fatalf("EncodeHeader: got %d bytes, want %d", len(buf), HeaderSize)
	}

	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Fatalf("DecodeHeader round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestDecodeHeaderWrongLength(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 10))
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestDecodeHeaderWrongProtocolVersion(t *testing.T) {
	h := Header{ProtocolVersion: 0x02, MessageType: MessageTypeRequest, ReturnCode: ReturnCodeOk}
	buf := EncodeHeader(h)
	_, err := DecodeHeader(buf)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestDecodeHeaderInvalidMessageType(t *testing.T) {
	buf := EncodeHeader(Header{ProtocolVersion: ProtocolVersion, ReturnCode: ReturnCodeOk})
	buf[14] = 0x55

	_, err := DecodeHeader(buf)
	var want InvalidMessageTypeError
	if !errors.As(err, &want) {
		t.Fatalf("expected InvalidMessageTypeError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected InvalidMessageTypeError to satisfy errors.Is(ErrInvalidHeader)")
	}
}

func TestDecodeHeaderInvalidReturnCode(t *testing.T) {
	buf := EncodeHeader(Header{ProtocolVersion: ProtocolVersion, MessageType: MessageTypeRequest})
	buf[15] = 0x7F

	_, err := DecodeHeader(buf)
	var want InvalidReturnCodeError
	if !errors.As(err, &want) {
		t.Fatalf("expected InvalidReturnCodeError, got %v", err)
	}
}

func TestMessageTypeIsTP(t *testing.T) {
	cases := []struct {
		mt   MessageType
		isTP bool
		base MessageType
	}{
		{MessageTypeRequest, false, MessageTypeRequest},
		{MessageTypeTPRequest, true, MessageTypeRequest},
		{MessageTypeTPResponse, true, MessageTypeResponse},
		{MessageTypeTPNotification, true, MessageTypeNotification},
		{MessageTypeTPError, true, MessageTypeError},
	}
	for _, c := range cases {
		if got := c.mt.IsTP(); got != c.isTP {
			t.Errorf("%v.IsTP() = %v, want %v", c.mt, got, c.isTP)
		}
		if got := c.mt.WithoutTP(); got != c.base {
			t.Errorf("%v.WithoutTP() = %v, want %v", c.mt, got, c.base)
		}
	}
}

func TestMessageTypeIsResponseClass(t *testing.T) {
	if !MessageTypeResponse.IsResponseClass() {
		t.Error("Response should be response-class")
	}
	if !MessageTypeError.IsResponseClass() {
		t.Error("Error should be response-class")
	}
	if !MessageTypeTPResponse.IsResponseClass() {
		t.Error("TpResponse should be response-class")
	}
	if MessageTypeRequest.IsResponseClass() {
		t.Error("Request should not be response-class")
	}
	if MessageTypeNotification.IsResponseClass() {
		t.Error("Notification should not be response-class")
	}
}
