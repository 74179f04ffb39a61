package someip

// Message owns a Header plus a contiguous payload. Header.Length always
// equals 8 + len(Payload); construct messages through MessageBuilder so
// this invariant cannot be violated.
type Message struct {
	Header  Header
	Payload []byte
}

// CorrelationKey identifies a request/response pair on the wire.
type CorrelationKey struct {
	ServiceID ServiceID
	MethodID  MethodID
	ClientID  ClientID
	SessionID SessionID
}

// Correlates reports whether resp correlates to req: same
// (service_id, method_id, client_id, session_id) and a Response- or
// Error-class message_type.
func Correlates(req, resp Message) bool {
	if !resp.Header.MessageType.IsResponseClass() {
		return false
	}
	return req.Header.ServiceID == resp.Header.ServiceID &&
		req.Header.MethodID == resp.Header.MethodID &&
		req.Header.ClientID == resp.Header.ClientID &&
		req.Header.SessionID == resp.Header.SessionID
}

// Key returns the correlation key of m.
func (m Message) Key() CorrelationKey {
	return CorrelationKey{
		ServiceID: m.Header.ServiceID,
		MethodID:  m.Header.MethodID,
		ClientID:  m.Header.ClientID,
		SessionID: m.Header.SessionID,
	}
}

// MessageBuilder constructs a Message field by field, defaulting
// unspecified fields per §4.2, and recomputing Header.Length from the
// payload at Build time so the length invariant can never desynchronize.
type MessageBuilder struct {
	header  Header
	payload []byte
}

// NewMessageBuilder starts a builder for one service_id/method_id pair with
// the defaults: client_id=0, session_id=0, interface_version=1,
// message_type=Request, return_code=Ok, empty payload.
func NewMessageBuilder(serviceID ServiceID, methodID MethodID) *MessageBuilder {
	return &MessageBuilder{
		header: Header{
			ServiceID:        serviceID,
			MethodID:         methodID,
			ProtocolVersion:  ProtocolVersion,
			InterfaceVersion: 1,
			MessageType:      MessageTypeRequest,
			ReturnCode:       ReturnCodeOk,
		},
	}
}

func (b *MessageBuilder) ClientID(v ClientID) *MessageBuilder {
	b.header.ClientID = v
	return b
}

func (b *MessageBuilder) SessionID(v SessionID) *MessageBuilder {
	b.header.SessionID = v
	return b
}

func (b *MessageBuilder) InterfaceVersion(v uint8) *MessageBuilder {
	b.header.InterfaceVersion = v
	return b
}

func (b *MessageBuilder) MessageType(v MessageType) *MessageBuilder {
	b.header.MessageType = v
	return b
}

func (b *MessageBuilder) ReturnCode(v ReturnCode) *MessageBuilder {
	b.header.ReturnCode = v
	return b
}

func (b *MessageBuilder) Payload(p []byte) *MessageBuilder {
	b.payload = p
	return b
}

// Build returns the finished Message with Header.Length recomputed from
// the current payload. It never fails and does not validate: the setters
// store their values as given, and Build only forces protocol_version to
// ProtocolVersion.
func (b *MessageBuilder) Build() Message {
	b.header.ProtocolVersion = ProtocolVersion
	b.header.Length = uint32(8 + len(b.payload))
	payload := make([]byte, len(b.payload))
	copy(payload, b.payload)
	return Message{Header: b.header, Payload: payload}
}

// CreateResponse seeds a builder for a reply to request: service_id,
// method_id, client_id, session_id, and interface_version are copied from
// the request, message_type defaults to Response. Callers may switch to
// Error via MessageType(MessageTypeError).
func CreateResponse(request Message) *MessageBuilder {
	b := NewMessageBuilder(request.Header.ServiceID, request.Header.MethodID)
	b.header.ClientID = request.Header.ClientID
	b.header.SessionID = request.Header.SessionID
	b.header.InterfaceVersion = request.Header.InterfaceVersion
	b.header.MessageType = MessageTypeResponse
	return b
}
