package sd

import (
	"testing"

	"github.com/go-someip/someip/someip"
)

func TestOfferWithOneIPv4EndpointOption(t *testing.T) {
	opt := IPv4EndpointOption{IP: [4]byte{10, 0, 0, 1}, Proto: ProtocolUDP, Port: 30509}
	entry := ServiceEntry{
		Kind:         EntryTypeOfferService,
		ServiceID:    0x0042,
		InstanceID:   0x0001,
		MajorVersion: 1,
		MinorVersion: 0,
		TTL:          3,
		Options:      OptionsRef{Index1: 0, Count1: 1},
	}

	msg := Message{Entries: []Entry{entry}, Options: []Option{opt}}
	wire := msg.Encode()

	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(decoded.Entries))
	}

	se, ok := decoded.Entries[0].(ServiceEntry)
	if !ok {
		t.Fatalf("entry is %T, want ServiceEntry", decoded.Entries[0])
	}
	if se.Kind != EntryTypeOfferService || se.ServiceID != 0x0042 || se.InstanceID != 0x0001 || se.TTL != 3 {
		t.Fatalf("decoded entry mismatch: %+v", se)
	}

	endpoints := decoded.OptionsFor(se)
	if len(endpoints) != 1 {
		t.Fatalf("got %d endpoints, want 1", len(endpoints))
	}
	gotOpt, ok := endpoints[0].(IPv4EndpointOption)
	if !ok {
		t.Fatalf("option is %T, want IPv4EndpointOption", endpoints[0])
	}
	if gotOpt.IP != opt.IP || gotOpt.Proto != opt.Proto || gotOpt.Port != opt.Port {
		t.Fatalf("decoded option mismatch: got %+v, want %+v", gotOpt, opt)
	}
}

func TestDecodeRejectsOutOfBoundsOptionsRef(t *testing.T) {
	entry := ServiceEntry{
		Kind:       EntryTypeOfferService,
		ServiceID:  1,
		InstanceID: 1,
		TTL:        1,
		Options:    OptionsRef{Index1: 0, Count1: 2}, // no options present
	}
	wire := Message{Entries: []Entry{entry}}.Encode()

	_, err := Decode(wire)
	if err == nil {
		t.Fatal("expected a ServiceDiscoveryError for an out-of-bounds options reference")
	}
}

func TestDecodeRejectsUnknownEntryType(t *testing.T) {
	entry := make([]byte, EntrySize)
	entry[0] = 0xEE // not a known EntryType

	buf := make([]byte, 0, 4+4+EntrySize+4)
	buf = append(buf, 0, 0, 0, 0) // flags + reserved
	buf = appendUint32(buf, uint32(EntrySize))
	buf = append(buf, entry...)
	buf = appendUint32(buf, 0) // options_length

	_, err := Decode(buf)
	if err == nil {
		t.Fatal("expected an error for an unknown entry type")
	}
}

func TestWrapAndUnwrapEnvelope(t *testing.T) {
	entry := ServiceEntry{Kind: EntryTypeFindService, ServiceID: 0x10, InstanceID: 0xFFFF, TTL: 5}
	wire := BuildMessage(0x01, 1, Message{Entries: []Entry{entry}})

	if wire.Header.ServiceID != someip.SDServiceID || wire.Header.MethodID != someip.SDMethodID {
		t.Fatalf("SD envelope header mismatch: %+v", wire.Header)
	}
	if wire.Header.MessageType != someip.MessageTypeNotification {
		t.Fatalf("MessageType = %v, want Notification", wire.Header.MessageType)
	}

	decoded, err := DecodeFromSomeIP(wire)
	if err != nil {
		t.Fatalf("DecodeFromSomeIP: %v", err)
	}
	if len(decoded.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(decoded.Entries))
	}
}

func TestDecodeFromSomeIPRejectsNonSDMessage(t *testing.T) {
	msg := someip.NewMessageBuilder(0x1234, 0x0001).Build()
	_, err := DecodeFromSomeIP(msg)
	if err == nil {
		t.Fatal("expected an error for a non-SD envelope")
	}
}
