package someip

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed wire size of a SOME/IP header in octets.
const HeaderSize = 16

// ProtocolVersion is the only supported SOME/IP protocol_version.
const ProtocolVersion uint8 = 0x01

// MessageType enumerates the SOME/IP message_type byte.
type MessageType uint8

const (
	MessageTypeRequest         MessageType = 0x00
	MessageTypeRequestNoReturn MessageType = 0x01
	MessageTypeNotification    MessageType = 0x02
	MessageTypeResponse        MessageType = 0x80
	MessageTypeError           MessageType = 0x81
	MessageTypeTPRequest       MessageType = 0x20
	MessageTypeTPResponse      MessageType = 0xA0
	MessageTypeTPNotification  MessageType = 0x22
	MessageTypeTPError         MessageType = 0xA1
)

// TPFlag is the bit that, when set on an otherwise-ordinary message_type,
// marks a message as one TP segment of a larger transfer.
const TPFlag MessageType = 0x20

// IsTP reports whether mt carries the TP segmentation bit.
func (mt MessageType) IsTP() bool {
	return mt&TPFlag != 0
}

// WithoutTP clears the TP segmentation bit, recovering the original
// message_type of a reassembled message.
func (mt MessageType) WithoutTP() MessageType {
	return mt &^ TPFlag
}

// IsResponseClass reports whether mt is a Response- or Error-class type,
// i.e. one that can correlate back to an outstanding request.
func (mt MessageType) IsResponseClass() bool {
	switch mt.WithoutTP() {
	case MessageTypeResponse, MessageTypeError:
		return true
	default:
		return false
	}
}

func (mt MessageType) valid() bool {
	switch mt {
	case MessageTypeRequest, MessageTypeRequestNoReturn, MessageTypeNotification,
		MessageTypeResponse, MessageTypeError,
		MessageTypeTPRequest, MessageTypeTPResponse, MessageTypeTPNotification, MessageTypeTPError:
		return true
	default:
		return false
	}
}

func (mt MessageType) String() string {
	switch mt {
	case MessageTypeRequest:
		return "Request"
	case MessageTypeRequestNoReturn:
		return "RequestNoReturn"
	case MessageTypeNotification:
		return "Notification"
	case MessageTypeResponse:
		return "Response"
	case MessageTypeError:
		return "Error"
	case MessageTypeTPRequest:
		return "TpRequest"
	case MessageTypeTPResponse:
		return "TpResponse"
	case MessageTypeTPNotification:
		return "TpNotification"
	case MessageTypeTPError:
		return "TpError"
	default:
		return fmt.Sprintf("MessageType(0x%02x)", uint8(mt))
	}
}

// ReturnCode enumerates the SOME/IP return_code byte.
type ReturnCode uint8

const (
	ReturnCodeOk                    ReturnCode = 0x00
	ReturnCodeNotOk                 ReturnCode = 0x01
	ReturnCodeUnknownService        ReturnCode = 0x02
	ReturnCodeUnknownMethod         ReturnCode = 0x03
	ReturnCodeNotReady              ReturnCode = 0x04
	ReturnCodeNotReachable          ReturnCode = 0x05
	ReturnCodeTimeout               ReturnCode = 0x06
	ReturnCodeWrongProtocolVersion  ReturnCode = 0x07
	ReturnCodeWrongInterfaceVersion ReturnCode = 0x08
	ReturnCodeMalformedMessage      ReturnCode = 0x09
	ReturnCodeWrongMessageType      ReturnCode = 0x0A
)

func (rc ReturnCode) valid() bool {
	return rc <= ReturnCodeWrongMessageType
}

func (rc ReturnCode) String() string {
	switch rc {
	case ReturnCodeOk:
		return "Ok"
	case ReturnCodeNotOk:
		return "NotOk"
	case ReturnCodeUnknownService:
		return "UnknownService"
	case ReturnCodeUnknownMethod:
		return "UnknownMethod"
	case ReturnCodeNotReady:
		return "NotReady"
	case ReturnCodeNotReachable:
		return "NotReachable"
	case ReturnCodeTimeout:
		return "Timeout"
	case ReturnCodeWrongProtocolVersion:
		return "WrongProtocolVersion"
	case ReturnCodeWrongInterfaceVersion:
		return "WrongInterfaceVersion"
	case ReturnCodeMalformedMessage:
		return "MalformedMessage"
	case ReturnCodeWrongMessageType:
		return "WrongMessageType"
	default:
		return fmt.Sprintf("ReturnCode(0x%02x)", uint8(rc))
	}
}

// Header is the fixed 16-byte SOME/IP wire header.
type Header struct {
	ServiceID         ServiceID
	MethodID          MethodID
	Length            uint32
	ClientID          ClientID
	SessionID         SessionID
	ProtocolVersion   uint8
	InterfaceVersion  uint8
	MessageType       MessageType
	ReturnCode        ReturnCode
}

// EncodeHeader writes h as 16 big-endian octets. It does not allocate beyond
// the returned slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	putHeader(buf, h)
	return buf
}

// putHeader writes h into buf, which must be at least HeaderSize long.
func putHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.ServiceID))
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.MethodID))
	binary.BigEndian.PutUint32(buf[4:8], h.Length)
	binary.BigEndian.PutUint16(buf[8:10], uint16(h.ClientID))
	binary.BigEndian.PutUint16(buf[10:12], uint16(h.SessionID))
	buf[12] = h.ProtocolVersion
	buf[13] = h.InterfaceVersion
	buf[14] = byte(h.MessageType)
	buf[15] = byte(h.ReturnCode)
}

// DecodeHeader parses exactly HeaderSize octets of buf into a Header. It
// reads fields directly from buf without copying the input.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderSize {
		return Header{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(buf))
	}

	protocolVersion := buf[12]
	if protocolVersion != ProtocolVersion {
		return Header{}, fmt.Errorf("%w: unsupported protocol_version 0x%02x", ErrInvalidHeader, protocolVersion)
	}

	mt := MessageType(buf[14])
	if !mt.valid() {
		return Header{}, InvalidMessageTypeError{Value: buf[14]}
	}

	rc := ReturnCode(buf[15])
	if !rc.valid() {
		return Header{}, InvalidReturnCodeError{Value: buf[15]}
	}

	return Header{
		ServiceID:        ServiceID(binary.BigEndian.Uint16(buf[0:2])),
		MethodID:         MethodID(binary.BigEndian.Uint16(buf[2:4])),
		Length:           binary.BigEndian.Uint32(buf[4:8]),
		ClientID:         ClientID(binary.BigEndian.Uint16(buf[8:10])),
		SessionID:        SessionID(binary.BigEndian.Uint16(buf[10:12])),
		ProtocolVersion:  protocolVersion,
		InterfaceVersion: buf[13],
		MessageType:      mt,
		ReturnCode:       rc,
	}, nil
}
