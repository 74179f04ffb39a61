package sd

import (
	"encoding/binary"
	"fmt"

	"github.com/go-someip/someip/someip"
)

// Message is the decoded SD payload: flags plus an entries array and an
// options array, with entries referencing options by array position.
type Message struct {
	Flags   Flags
	Entries []Entry
	Options []Option
}

// Encode renders m as the SD payload: flags byte, three reserved zero
// bytes, the entries block (length-prefixed), then the options block
// (length-prefixed).
func (m Message) Encode() []byte {
	entryBytes := make([]byte, 0, len(m.Entries)*EntrySize)
	for _, e := range m.Entries {
		entryBytes = append(entryBytes, encodeEntry(e)...)
	}

	var optionBytes []byte
	for _, o := range m.Options {
		optionBytes = append(optionBytes, encodeOption(o)...)
	}

	buf := make([]byte, 0, 4+4+len(entryBytes)+4+len(optionBytes))
	buf = append(buf, m.Flags.Encode(), 0, 0, 0)
	buf = appendUint32(buf, uint32(len(entryBytes)))
	buf = append(buf, entryBytes...)
	buf = appendUint32(buf, uint32(len(optionBytes)))
	buf = append(buf, optionBytes...)
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Decode parses an SD payload. It rejects inconsistent entries_length or
// options_length, option references that fall outside the decoded
// options array, and unknown entry/option tags.
func Decode(buf []byte) (Message, error) {
	if len(buf) < 8 {
		return Message{}, fmt.Errorf("%w: payload shorter than the fixed SD prefix", ErrServiceDiscovery)
	}

	flags := DecodeFlags(buf[0])
	entriesLength := binary.BigEndian.Uint32(buf[4:8])
	off := 8
	if off+int(entriesLength) > len(buf) {
		return Message{}, fmt.Errorf("%w: entries_length %d exceeds payload", ErrServiceDiscovery, entriesLength)
	}
	if entriesLength%EntrySize != 0 {
		return Message{}, fmt.Errorf("%w: entries_length %d is not a multiple of %d", ErrServiceDiscovery, entriesLength, EntrySize)
	}

	entriesBuf := buf[off : off+int(entriesLength)]
	off += int(entriesLength)

	if off+4 > len(buf) {
		return Message{}, fmt.Errorf("%w: payload truncated before options_length", ErrServiceDiscovery)
	}
	optionsLength := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	if off+int(optionsLength) > len(buf) {
		return Message{}, fmt.Errorf("%w: options_length %d exceeds payload", ErrServiceDiscovery, optionsLength)
	}
	optionsBuf := buf[off : off+int(optionsLength)]

	var options []Option
	for i := 0; i < len(optionsBuf); {
		opt, n, err := decodeOption(optionsBuf[i:])
		if err != nil {
			return Message{}, err
		}
		options = append(options, opt)
		i += n
	}

	var entries []Entry
	for i := 0; i+EntrySize <= len(entriesBuf); i += EntrySize {
		e, err := decodeEntry(entriesBuf[i : i+EntrySize])
		if err != nil {
			return Message{}, err
		}
		if err := checkOptionsRef(e.optionsRef(), len(options)); err != nil {
			return Message{}, err
		}
		entries = append(entries, e)
	}

	return Message{Flags: flags, Entries: entries, Options: options}, nil
}

func checkOptionsRef(ref OptionsRef, numOptions int) error {
	if ref.Count1 > 0 && (int(ref.Index1)+int(ref.Count1) > numOptions) {
		return ServiceDiscoveryError{Reason: fmt.Sprintf("first option range [%d,%d) out of bounds (have %d options)", ref.Index1, int(ref.Index1)+int(ref.Count1), numOptions)}
	}
	if ref.Count2 > 0 && (int(ref.Index2)+int(ref.Count2) > numOptions) {
		return ServiceDiscoveryError{Reason: fmt.Sprintf("second option range [%d,%d) out of bounds (have %d options)", ref.Index2, int(ref.Index2)+int(ref.Count2), numOptions)}
	}
	return nil
}

// OptionsFor resolves an entry's first and second option ranges, in that
// order, to the concrete Option values in m.Options.
func (m Message) OptionsFor(e Entry) []Option {
	ref := e.optionsRef()
	var out []Option
	if ref.Count1 > 0 {
		out = append(out, m.Options[ref.Index1:int(ref.Index1)+int(ref.Count1)]...)
	}
	if ref.Count2 > 0 {
		out = append(out, m.Options[ref.Index2:int(ref.Index2)+int(ref.Count2)]...)
	}
	return out
}

// BuildMessage wraps an SD payload in the someip.Message envelope
// prescribed by §3: service_id=0xFFFF, method_id=0x8100, client_id=0,
// message_type=Notification, return_code=Ok.
func BuildMessage(sdClientID someip.ClientID, sessionID someip.SessionID, m Message) someip.Message {
	return someip.NewMessageBuilder(someip.SDServiceID, someip.SDMethodID).
		ClientID(sdClientID).
		SessionID(sessionID).
		MessageType(someip.MessageTypeNotification).
		Payload(m.Encode()).
		Build()
}

// DecodeFromSomeIP validates that msg is an SD envelope and decodes its
// payload.
func DecodeFromSomeIP(msg someip.Message) (Message, error) {
	if msg.Header.ServiceID != someip.SDServiceID || msg.Header.MethodID != someip.SDMethodID {
		return Message{}, fmt.Errorf("%w: not an SD message (service_id=0x%04x method_id=0x%04x)", ErrServiceDiscovery, msg.Header.ServiceID, msg.Header.MethodID)
	}
	return Decode(msg.Payload)
}
