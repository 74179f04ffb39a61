package sd

import (
	"encoding/binary"
	"fmt"
)

const (
	optionTypeConfigurationString uint8 = 0x01
	optionTypeLoadBalancing       uint8 = 0x02
	optionTypeIPv4Endpoint        uint8 = 0x04
	optionTypeIPv6Endpoint        uint8 = 0x06
)

// Protocol distinguishes the transport an endpoint option describes.
type Protocol uint8

const (
	ProtocolTCP Protocol = 0x06
	ProtocolUDP Protocol = 0x11
)

// Option is implemented by every SD option variant.
type Option interface {
	optionType() uint8
}

// IPv4EndpointOption carries an IPv4 address, transport protocol, and
// port for an entry to reference.
type IPv4EndpointOption struct {
	IP    [4]byte
	Proto Protocol
	Port  uint16
}

func (IPv4EndpointOption) optionType() uint8 { return optionTypeIPv4Endpoint }

// IPv6EndpointOption is the IPv6 counterpart of IPv4EndpointOption.
type IPv6EndpointOption struct {
	IP    [16]byte
	Proto Protocol
	Port  uint16
}

func (IPv6EndpointOption) optionType() uint8 { return optionTypeIPv6Endpoint }

// ConfigurationStringOption carries an opaque UTF-8 configuration string
// as its payload, conventionally one "key=value" pair.
type ConfigurationStringOption struct {
	Value string
}

func (ConfigurationStringOption) optionType() uint8 { return optionTypeConfigurationString }

// LoadBalancingOption carries a priority/weight pair used to steer a
// client among several equivalent service instances.
type LoadBalancingOption struct {
	Priority uint16
	Weight   uint16
}

func (LoadBalancingOption) optionType() uint8 { return optionTypeLoadBalancing }

// optionHeaderSize is the 4-byte option header: a 2-byte length covering
// only the option-specific data that follows the header, a 1-byte type
// tag, and a reserved byte.
const optionHeaderSize = 4

// encodeOption renders opt as a 4-byte header (length of the
// option-specific data, type tag, reserved byte) followed by that data.
func encodeOption(opt Option) []byte {
	var payload []byte
	switch v := opt.(type) {
	case IPv4EndpointOption:
		payload = make([]byte, 9)
		copy(payload[0:4], v.IP[:])
		payload[4] = 0
		payload[5] = byte(v.Proto)
		binary.BigEndian.PutUint16(payload[6:8], v.Port)
		payload[8] = 0
	case IPv6EndpointOption:
		payload = make([]byte, 21)
		copy(payload[0:16], v.IP[:])
		payload[16] = 0
		payload[17] = byte(v.Proto)
		binary.BigEndian.PutUint16(payload[18:20], v.Port)
		payload[20] = 0
	case ConfigurationStringOption:
		payload = []byte(v.Value)
	case LoadBalancingOption:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint16(payload[0:2], v.Priority)
		binary.BigEndian.PutUint16(payload[2:4], v.Weight)
	}

	buf := make([]byte, optionHeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(payload)))
	buf[2] = opt.optionType()
	buf[3] = 0
	copy(buf[optionHeaderSize:], payload)
	return buf
}

// decodeOption parses one option starting at buf[0] and returns the
// option plus the number of bytes it occupied.
func decodeOption(buf []byte) (Option, int, error) {
	if len(buf) < optionHeaderSize {
		return nil, 0, fmt.Errorf("%w: option header truncated", ErrServiceDiscovery)
	}
	length := binary.BigEndian.Uint16(buf[0:2])
	total := optionHeaderSize + int(length)
	if total > len(buf) {
		return nil, 0, fmt.Errorf("%w: option length %d exceeds remaining buffer", ErrServiceDiscovery, length)
	}

	tag := buf[2]
	payload := buf[optionHeaderSize:total]

	switch tag {
	case optionTypeIPv4Endpoint:
		if len(payload) != 9 {
			return nil, 0, fmt.Errorf("%w: ipv4 endpoint option has %d payload bytes, want 9", ErrServiceDiscovery, len(payload))
		}
		var opt IPv4EndpointOption
		copy(opt.IP[:], payload[0:4])
		opt.Proto = Protocol(payload[5])
		opt.Port = binary.BigEndian.Uint16(payload[6:8])
		return opt, total, nil
	case optionTypeIPv6Endpoint:
		if len(payload) != 21 {
			return nil, 0, fmt.Errorf("%w: ipv6 endpoint option has %d payload bytes, want 21", ErrServiceDiscovery, len(payload))
		}
		var opt IPv6EndpointOption
		copy(opt.IP[:], payload[0:16])
		opt.Proto = Protocol(payload[17])
		opt.Port = binary.BigEndian.Uint16(payload[18:20])
		return opt, total, nil
	case optionTypeConfigurationString:
		return ConfigurationStringOption{Value: string(payload)}, total, nil
	case optionTypeLoadBalancing:
		if len(payload) != 4 {
			return nil, 0, fmt.Errorf("%w: load balancing option has %d payload bytes, want 4", ErrServiceDiscovery, len(payload))
		}
		return LoadBalancingOption{
			Priority: binary.BigEndian.Uint16(payload[0:2]),
			Weight:   binary.BigEndian.Uint16(payload[2:4]),
		}, total, nil
	default:
		return nil, 0, ServiceDiscoveryError{Reason: fmt.Sprintf("unknown option type 0x%02x", tag)}
	}
}
