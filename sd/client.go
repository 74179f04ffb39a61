package sd

import (
	"context"
	"net"
	"time"

	"github.com/go-someip/someip/someip"
)

// MulticastAddr is the well-known SD multicast group and port.
const MulticastAddr = "224.224.224.245:30490"

// Offer is one OfferService entry observed by a SdClient, together with
// the endpoint/configuration options it referenced.
type Offer struct {
	ServiceID    someip.ServiceID
	InstanceID   someip.InstanceID
	MajorVersion uint8
	MinorVersion uint32
	TTL          uint32
	Endpoints    []Option
}

// SubscribeResult is the outcome of SdClient.Subscribe.
type SubscribeResult struct {
	Acked     bool
	Endpoints []Option
}

// SdClient joins the SD multicast group to issue FindService and
// SubscribeEventgroup entries and observe the corresponding replies.
type SdClient struct {
	conn          *net.UDPConn
	multicastAddr *net.UDPAddr
	clientID      someip.ClientID
	sessions      *someip.SessionCounter
}

// NewClient joins the SD multicast group on the default interface.
func NewClient(clientID someip.ClientID) (*SdClient, error) {
	addr, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	return &SdClient{
		conn:          conn,
		multicastAddr: addr,
		clientID:      clientID,
		sessions:      someip.NewSessionCounter(),
	}, nil
}

// Close leaves the multicast group and releases the socket.
func (c *SdClient) Close() error {
	return c.conn.Close()
}

// Find broadcasts a FindService entry for (serviceID, instanceID) —
// instanceID 0xFFFF matches any instance — and collects OfferService
// replies observed within ttl seconds, or until ctx is done.
func (c *SdClient) Find(ctx context.Context, serviceID someip.ServiceID, instanceID someip.InstanceID, major uint8, minor uint32, ttl uint32) ([]Offer, error) {
	entry := ServiceEntry{
		Kind:         EntryTypeFindService,
		ServiceID:    serviceID,
		InstanceID:   instanceID,
		MajorVersion: major,
		MinorVersion: minor,
		TTL:          ttl,
	}
	wire := BuildMessage(c.clientID, c.sessions.Next(), Message{Entries: []Entry{entry}})
	if err := someip.WriteDatagramTo(c.conn, wire, c.multicastAddr); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(time.Duration(ttl) * time.Second)
	var offers []Offer
	for {
		if ctx.Err() != nil {
			return offers, ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return offers, nil
		}
		c.conn.SetReadDeadline(time.Now().Add(remaining))
		msg, _, err := someip.ReadDatagram(c.conn, someip.DefaultLimits())
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return offers, nil
			}
			continue
		}

		sdResp, err := DecodeFromSomeIP(msg)
		if err != nil {
			continue
		}
		for _, e := range sdResp.Entries {
			se, ok := e.(ServiceEntry)
			if !ok || se.Kind != EntryTypeOfferService {
				continue
			}
			if se.ServiceID != serviceID {
				continue
			}
			if instanceID != 0xFFFF && se.InstanceID != instanceID {
				continue
			}
			offers = append(offers, Offer{
				ServiceID:    se.ServiceID,
				InstanceID:   se.InstanceID,
				MajorVersion: se.MajorVersion,
				MinorVersion: se.MinorVersion,
				TTL:          se.TTL,
				Endpoints:    sdResp.OptionsFor(se),
			})
		}
	}
}

// Subscribe sends a SubscribeEventgroup entry referencing endpoint and
// waits up to timeout for a correlated Ack or Nack.
func (c *SdClient) Subscribe(ctx context.Context, serviceID someip.ServiceID, instanceID someip.InstanceID, eventgroupID someip.EventgroupID, major uint8, ttl uint32, endpoint Option, timeout time.Duration) (SubscribeResult, error) {
	entry := EventgroupEntry{
		Kind:         EntryTypeSubscribeEventgroup,
		ServiceID:    serviceID,
		InstanceID:   instanceID,
		MajorVersion: major,
		TTL:          ttl,
		EventgroupID: eventgroupID,
		Options:      OptionsRef{Index1: 0, Count1: 1},
	}
	wire := BuildMessage(c.clientID, c.sessions.Next(), Message{
		Entries: []Entry{entry},
		Options: []Option{endpoint},
	})
	if err := someip.WriteDatagramTo(c.conn, wire, c.multicastAddr); err != nil {
		return SubscribeResult{}, err
	}

	deadline := time.Now().Add(timeout)
	for {
		if ctx.Err() != nil {
			return SubscribeResult{}, ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return SubscribeResult{}, someip.ErrTimeout
		}
		c.conn.SetReadDeadline(time.Now().Add(remaining))
		msg, _, err := someip.ReadDatagram(c.conn, someip.DefaultLimits())
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return SubscribeResult{}, someip.ErrTimeout
			}
			continue
		}

		sdResp, err := DecodeFromSomeIP(msg)
		if err != nil {
			continue
		}
		for _, e := range sdResp.Entries {
			ee, ok := e.(EventgroupEntry)
			if !ok || ee.Kind != EntryTypeSubscribeEventgroupAck {
				continue
			}
			if ee.ServiceID != serviceID || ee.InstanceID != instanceID || ee.EventgroupID != eventgroupID {
				continue
			}
			return SubscribeResult{Acked: !ee.IsNack(), Endpoints: sdResp.OptionsFor(ee)}, nil
		}
	}
}
