package sd

import "testing"

func TestServiceEntryRoundTrip(t *testing.T) {
	e := ServiceEntry{
		Kind:         EntryTypeOfferService,
		ServiceID:    0x1234,
		InstanceID:   0x0001,
		MajorVersion: 2,
		MinorVersion: 7,
		TTL:          300,
		Options:      OptionsRef{Index1: 1, Count1: 2, Index2: 3, Count2: 1},
	}

	buf := encodeEntry(e)
	if len(buf) != EntrySize {
		t.Fatalf("encodeEntry: got %d bytes, want %d", len(buf), EntrySize)
	}

	got, err := decodeEntry(buf)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestEventgroupEntryRoundTrip(t *testing.T) {
	e := EventgroupEntry{
		Kind:         EntryTypeSubscribeEventgroupAck,
		ServiceID:    0x0042,
		InstanceID:   0x0001,
		MajorVersion: 1,
		TTL:          10,
		Counter:      3,
		EventgroupID: 0x0005,
		Options:      OptionsRef{Index1: 0, Count1: 1},
	}

	buf := encodeEntry(e)
	got, err := decodeEntry(buf)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestServiceEntryIsStopOffer(t *testing.T) {
	offer := ServiceEntry{Kind: EntryTypeOfferService, TTL: 5}
	if offer.IsStopOffer() {
		t.Error("TTL=5 offer should not be a stop-offer")
	}
	stop := ServiceEntry{Kind: EntryTypeOfferService, TTL: 0}
	if !stop.IsStopOffer() {
		t.Error("TTL=0 offer should be a stop-offer")
	}
}

func TestEventgroupEntryIsNack(t *testing.T) {
	ack := EventgroupEntry{Kind: EntryTypeSubscribeEventgroupAck, TTL: 10}
	if ack.IsNack() {
		t.Error("TTL=10 ack should not be a nack")
	}
	nack := EventgroupEntry{Kind: EntryTypeSubscribeEventgroupAck, TTL: 0}
	if !nack.IsNack() {
		t.Error("TTL=0 ack should be a nack")
	}
}

func TestDecodeEntryRejectsWrongSize(t *testing.T) {
	_, err := decodeEntry(make([]byte, 10))
	if err == nil {
		t.Fatal("expected an error for a short entry buffer")
	}
}
