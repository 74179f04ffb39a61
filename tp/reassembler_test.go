package tp

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-someip/someip/someip"
)

func tpSegment(h someip.Header, offset uint32, more bool, chunk []byte) someip.Message {
	tpHeader := EncodeHeader(Header{Offset: offset, MoreSegments: more})
	body := append(append([]byte{}, tpHeader...), chunk...)
	h.MessageType |= someip.TPFlag
	h.Length = uint32(8 + len(body))
	return someip.Message{Header: h, Payload: body}
}

func TestReassemblerTwoSegmentReverseOrder(t *testing.T) {
	r := NewReassembler(DefaultConfig())
	defer r.Close()

	payload := makePayload(2800)
	base := someip.Header{
		ServiceID:        0x1234,
		MethodID:         0x0001,
		ClientID:         1,
		SessionID:        1,
		ProtocolVersion:  someip.ProtocolVersion,
		InterfaceVersion: 1,
		MessageType:      someip.MessageTypeRequest,
		ReturnCode:       someip.ReturnCodeOk,
	}

	seg2 := tpSegment(base, 1392, false, payload[1392:2800])
	seg1 := tpSegment(base, 0, true, payload[0:1392])

	if msg, err := r.Add(seg2); err != nil {
		t.Fatalf("Add(seg2): %v", err)
	} else if msg != nil {
		t.Fatal("reassembly completed before the first segment arrived")
	}

	msg, err := r.Add(seg1)
	if err != nil {
		t.Fatalf("Add(seg1): %v", err)
	}
	if msg == nil {
		t.Fatal("reassembly did not complete after both segments arrived")
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatal("reassembled payload does not match the original")
	}
	if msg.Header.MessageType.IsTP() {
		t.Fatal("reassembled message still carries the TP bit")
	}
	if msg.Header.MessageType != someip.MessageTypeRequest {
		t.Fatalf("MessageType = %v, want Request", msg.Header.MessageType)
	}
	if msg.Header.Length != uint32(8+len(payload)) {
		t.Fatalf("Length = %d, want %d", msg.Header.Length, 8+len(payload))
	}
}

func TestReassemblerConflictingOverlap(t *testing.T) {
	r := NewReassembler(DefaultConfig())
	defer r.Close()

	base := someip.Header{ServiceID: 1, MethodID: 1, ProtocolVersion: someip.ProtocolVersion, MessageType: someip.MessageTypeRequest}

	seg1 := tpSegment(base, 0, true, []byte("AAAAAAAAAAAAAAAA"))
	seg2 := tpSegment(base, 0, true, []byte("BBBBBBBBBBBBBBBB"))

	if _, err := r.Add(seg1); err != nil {
		t.Fatalf("Add(seg1): %v", err)
	}

	_, err := r.Add(seg2)
	if err == nil {
		t.Fatal("expected a conflicting-overlap error")
	}
	var segErr SegmentationError
	if se, ok := err.(SegmentationError); !ok || se.Reason != "conflicting overlap" {
		t.Fatalf("got %v, want SegmentationError{conflicting overlap}", err)
	} else {
		segErr = se
	}
	_ = segErr
}

func TestReassemblerIdempotentDuplicate(t *testing.T) {
	r := NewReassembler(DefaultConfig())
	defer r.Close()

	base := someip.Header{ServiceID: 1, MethodID: 1, ProtocolVersion: someip.ProtocolVersion, MessageType: someip.MessageTypeRequest}
	chunk := []byte("0123456789ABCDEF")
	seg := tpSegment(base, 0, true, chunk)

	if _, err := r.Add(seg); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := r.Add(seg); err != nil {
		t.Fatalf("duplicate Add: %v", err)
	}

	final := tpSegment(base, 16, false, chunk)
	msg, err := r.Add(final)
	if err != nil {
		t.Fatalf("Add(final): %v", err)
	}
	if msg == nil {
		t.Fatal("reassembly did not complete")
	}
	if !bytes.Equal(msg.Payload, append(append([]byte{}, chunk...), chunk...)) {
		t.Fatal("reassembled payload incorrect after duplicate delivery")
	}
}

func TestReassemblerRejectsUnalignedOffset(t *testing.T) {
	r := NewReassembler(DefaultConfig())
	defer r.Close()

	base := someip.Header{ServiceID: 1, MethodID: 1, ProtocolVersion: someip.ProtocolVersion, MessageType: someip.MessageTypeRequest}
	seg := tpSegment(base, 5, false, []byte("x"))

	_, err := r.Add(seg)
	if err == nil {
		t.Fatal("expected an error for a non-16-aligned offset")
	}
}

func TestReassemblerEvictsIncompleteTransferOnTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	r := NewReassembler(cfg)
	defer r.Close()

	base := someip.Header{ServiceID: 1, MethodID: 1, ProtocolVersion: someip.ProtocolVersion, MessageType: someip.MessageTypeRequest}
	seg := tpSegment(base, 0, true, []byte("incomplete"))
	if _, err := r.Add(seg); err != nil {
		t.Fatalf("Add: %v", err)
	}

	select {
	case err := <-r.Errors():
		if err.Reason != "incomplete transfer" {
			t.Fatalf("Reason = %q, want %q", err.Reason, "incomplete transfer")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for eviction report")
	}
}
