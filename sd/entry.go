package sd

import (
	"encoding/binary"
	"fmt"

	"github.com/go-someip/someip/someip"
)

// EntryType is the SD entry type tag occupying byte 0 of every entry.
type EntryType uint8

const (
	EntryTypeFindService            EntryType = 0x00
	EntryTypeOfferService           EntryType = 0x01
	EntryTypeSubscribeEventgroup    EntryType = 0x06
	EntryTypeSubscribeEventgroupAck EntryType = 0x07
)

// EntrySize is the fixed wire size of one SD entry in octets.
const EntrySize = 16

// OptionsRef points from an entry into the options array by position
// (not byte offset): two independent (index, count) ranges.
type OptionsRef struct {
	Index1 uint8
	Count1 uint8
	Index2 uint8
	Count2 uint8
}

// Entry is implemented by ServiceEntry and EventgroupEntry.
type Entry interface {
	entryType() EntryType
	optionsRef() OptionsRef
}

// ServiceEntry carries a FindService or OfferService action.
// OfferService with TTL==0 means StopOfferService.
type ServiceEntry struct {
	Kind         EntryType // EntryTypeFindService or EntryTypeOfferService
	ServiceID    someip.ServiceID
	InstanceID   someip.InstanceID
	MajorVersion uint8
	MinorVersion uint32
	TTL          uint32 // 24-bit, seconds; 0 on OfferService means StopOfferService
	Options      OptionsRef
}

func (e ServiceEntry) entryType() EntryType  { return e.Kind }
func (e ServiceEntry) optionsRef() OptionsRef { return e.Options }

// IsStopOffer reports whether e is an OfferService entry withdrawing a
// previously offered service.
func (e ServiceEntry) IsStopOffer() bool {
	return e.Kind == EntryTypeOfferService && e.TTL == 0
}

// EventgroupEntry carries a SubscribeEventgroup action or its reply.
// SubscribeEventgroupAck with TTL==0 means SubscribeEventgroupNack.
type EventgroupEntry struct {
	Kind         EntryType // EntryTypeSubscribeEventgroup or EntryTypeSubscribeEventgroupAck
	ServiceID    someip.ServiceID
	InstanceID   someip.InstanceID
	MajorVersion uint8
	TTL          uint32 // 24-bit, seconds; 0 on the Ack entry means Nack
	Counter      uint8  // low nibble only
	EventgroupID someip.EventgroupID
	Options      OptionsRef
}

func (e EventgroupEntry) entryType() EntryType  { return e.Kind }
func (e EventgroupEntry) optionsRef() OptionsRef { return e.Options }

// IsNack reports whether e is a SubscribeEventgroupAck entry declining
// the subscription.
func (e EventgroupEntry) IsNack() bool {
	return e.Kind == EntryTypeSubscribeEventgroupAck && e.TTL == 0
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, EntrySize)
	ref := e.optionsRef()
	buf[0] = byte(e.entryType())
	buf[1] = ref.Index1
	buf[2] = ref.Index2
	buf[3] = ref.Count1<<4 | ref.Count2&0x0F

	switch v := e.(type) {
	case ServiceEntry:
		binary.BigEndian.PutUint16(buf[4:6], uint16(v.ServiceID))
		binary.BigEndian.PutUint16(buf[6:8], uint16(v.InstanceID))
		buf[8] = v.MajorVersion
		putUint24(buf[9:12], v.TTL)
		binary.BigEndian.PutUint32(buf[12:16], v.MinorVersion)
	case EventgroupEntry:
		binary.BigEndian.PutUint16(buf[4:6], uint16(v.ServiceID))
		binary.BigEndian.PutUint16(buf[6:8], uint16(v.InstanceID))
		buf[8] = v.MajorVersion
		putUint24(buf[9:12], v.TTL)
		buf[12] = 0
		buf[13] = v.Counter & 0x0F
		binary.BigEndian.PutUint16(buf[14:16], uint16(v.EventgroupID))
	}
	return buf
}

func decodeEntry(buf []byte) (Entry, error) {
	if len(buf) != EntrySize {
		return nil, fmt.Errorf("%w: entry is %d bytes, want %d", ErrServiceDiscovery, len(buf), EntrySize)
	}

	kind := EntryType(buf[0])
	ref := OptionsRef{
		Index1: buf[1],
		Index2: buf[2],
		Count1: buf[3] >> 4,
		Count2: buf[3] & 0x0F,
	}
	serviceID := someip.ServiceID(binary.BigEndian.Uint16(buf[4:6]))
	instanceID := someip.InstanceID(binary.BigEndian.Uint16(buf[6:8]))
	majorVersion := buf[8]
	ttl := uint24(buf[9:12])

	switch kind {
	case EntryTypeFindService, EntryTypeOfferService:
		return ServiceEntry{
			Kind:         kind,
			ServiceID:    serviceID,
			InstanceID:   instanceID,
			MajorVersion: majorVersion,
			MinorVersion: binary.BigEndian.Uint32(buf[12:16]),
			TTL:          ttl,
			Options:      ref,
		}, nil
	case EntryTypeSubscribeEventgroup, EntryTypeSubscribeEventgroupAck:
		return EventgroupEntry{
			Kind:         kind,
			ServiceID:    serviceID,
			InstanceID:   instanceID,
			MajorVersion: majorVersion,
			TTL:          ttl,
			Counter:      buf[13] & 0x0F,
			EventgroupID: someip.EventgroupID(binary.BigEndian.Uint16(buf[14:16])),
			Options:      ref,
		}, nil
	default:
		return nil, ServiceDiscoveryError{Reason: fmt.Sprintf("unknown entry type 0x%02x", byte(kind))}
	}
}
