package someip

// ServiceID identifies a logical SOME/IP service. 0xFFFF is reserved for
// Service Discovery.
type ServiceID uint16

// MethodID identifies a method or event within a service.
type MethodID uint16

// ClientID identifies the calling endpoint of a request.
type ClientID uint16

// SessionID correlates a request with its response. Zero means "no
// session" and disables correlation.
type SessionID uint16

// InstanceID identifies one instance of a service.
type InstanceID uint16

// EventgroupID identifies a named collection of events a subscriber can
// subscribe to as a unit.
type EventgroupID uint16

// SDServiceID is the well-known service_id reserved for Service Discovery.
const SDServiceID ServiceID = 0xFFFF

// SDMethodID is the well-known method_id carrying Service Discovery payloads.
const SDMethodID MethodID = 0x8100
