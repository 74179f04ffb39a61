package someip

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

func TestEncodeDecodeDatagramRoundTrip(t *testing.T) {
	m := NewMessageBuilder(0x1234, 0x0001).
		ClientID(1).
		SessionID(1).
		MessageType(MessageTypeNotification).
		Payload([]byte("telemetry")).
		Build()

	buf := EncodeDatagram(m)
	got, err := DecodeDatagram(buf)
	if err != nil {
		t.Fatalf("DecodeDatagram: %v", err)
	}
	if got.Header != m.Header {
		t.Fatalf("header mismatch: got %+v, want %+v", got.Header, m.Header)
	}
	if !bytes.Equal(got.Payload, m.Payload) {
		t.Fatalf("payload mismatch: got %q, want %q", got.Payload, m.Payload)
	}
}

func TestDecodeDatagramRejectsTrailingBytes(t *testing.T) {
	m := NewMessageBuilder(1, 1).Payload([]byte("x")).Build()
	buf := EncodeDatagram(m)
	buf = append(buf, 0xFF, 0xFF)

	_, err := DecodeDatagram(buf)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestDecodeDatagramRejectsShortBuffer(t *testing.T) {
	_, err := DecodeDatagram(make([]byte, 4))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestDatagramOverUDPLoopback(t *testing.T) {
	serverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer serverConn.Close()

	clientConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer clientConn.Close()

	req := NewMessageBuilder(0xABCD, 0x0010).
		ClientID(9).
		SessionID(1).
		Payload([]byte("ping")).
		Build()

	if err := WriteDatagramTo(clientConn, req, serverConn.LocalAddr()); err != nil {
		t.Fatalf("WriteDatagramTo: %v", err)
	}

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, from, err := ReadDatagram(serverConn, DefaultLimits())
	if err != nil {
		t.Fatalf("ReadDatagram: %v", err)
	}
	if got.Header != req.Header {
		t.Fatalf("header mismatch: got %+v, want %+v", got.Header, req.Header)
	}
	if from.String() != clientConn.LocalAddr().String() {
		t.Fatalf("sender = %v, want %v", from, clientConn.LocalAddr())
	}
}
