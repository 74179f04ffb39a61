package sd

import (
	"context"
	"net"
	"sync"

	"github.com/go-someip/someip/internal/metrics"
	"github.com/go-someip/someip/someip"
)

type serviceKey struct {
	ServiceID  someip.ServiceID
	InstanceID someip.InstanceID
}

type offered struct {
	entry   ServiceEntry
	options []Option
}

// SdServer answers FindService and SubscribeEventgroup requests for a
// registry of offered services it maintains, and can proactively
// broadcast OfferService/StopOfferService for anything it registers.
type SdServer struct {
	conn          *net.UDPConn
	multicastAddr *net.UDPAddr
	clientID      someip.ClientID
	sessions      *someip.SessionCounter

	mu       sync.RWMutex
	services map[serviceKey]offered
}

// NewServer joins the SD multicast group to serve discovery requests.
func NewServer(clientID someip.ClientID) (*SdServer, error) {
	addr, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	return &SdServer{
		conn:          conn,
		multicastAddr: addr,
		clientID:      clientID,
		sessions:      someip.NewSessionCounter(),
		services:      make(map[serviceKey]offered),
	}, nil
}

// Close leaves the multicast group and releases the socket.
func (s *SdServer) Close() error {
	return s.conn.Close()
}

// ServiceSnapshot is a point-in-time, read-only view of one registered
// service, suitable for exposing over a debug endpoint.
type ServiceSnapshot struct {
	ServiceID    someip.ServiceID
	InstanceID   someip.InstanceID
	MajorVersion uint8
	MinorVersion uint32
	TTL          uint32
	Options      []Option
}

// Services returns a snapshot of every currently offered service.
func (s *SdServer) Services() []ServiceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ServiceSnapshot, 0, len(s.services))
	for key, rec := range s.services {
		out = append(out, ServiceSnapshot{
			ServiceID:    key.ServiceID,
			InstanceID:   key.InstanceID,
			MajorVersion: rec.entry.MajorVersion,
			MinorVersion: rec.entry.MinorVersion,
			TTL:          rec.entry.TTL,
			Options:      rec.options,
		})
	}
	return out
}

// Offer registers (or re-registers) a service as available, and
// broadcasts an OfferService entry for it immediately.
func (s *SdServer) Offer(serviceID someip.ServiceID, instanceID someip.InstanceID, major uint8, minor uint32, ttl uint32, options []Option) error {
	entry := ServiceEntry{
		Kind:         EntryTypeOfferService,
		ServiceID:    serviceID,
		InstanceID:   instanceID,
		MajorVersion: major,
		MinorVersion: minor,
		TTL:          ttl,
	}

	s.mu.Lock()
	s.services[serviceKey{serviceID, instanceID}] = offered{entry: entry, options: options}
	s.mu.Unlock()

	metrics.RecordSDOffer("offer")
	return s.broadcastOffer(entry, options)
}

// StopOffer withdraws a previously offered service and broadcasts an
// OfferService entry with ttl=0.
func (s *SdServer) StopOffer(serviceID someip.ServiceID, instanceID someip.InstanceID) error {
	s.mu.Lock()
	rec, ok := s.services[serviceKey{serviceID, instanceID}]
	delete(s.services, serviceKey{serviceID, instanceID})
	s.mu.Unlock()
	if !ok {
		return nil
	}

	rec.entry.TTL = 0
	metrics.RecordSDOffer("stop")
	return s.broadcastOffer(rec.entry, rec.options)
}

func (s *SdServer) broadcastOffer(entry ServiceEntry, options []Option) error {
	entry.Options = OptionsRef{Index1: 0, Count1: uint8(len(options))}
	wire := BuildMessage(s.clientID, s.sessions.Next(), Message{Entries: []Entry{entry}, Options: options})
	return someip.WriteDatagramTo(s.conn, wire, s.multicastAddr)
}

// Serve reads SD requests until ctx is done or the socket fails,
// answering FindService and SubscribeEventgroup against the current
// registry.
func (s *SdServer) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		msg, from, err := someip.ReadDatagram(s.conn, someip.DefaultLimits())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		sdReq, err := DecodeFromSomeIP(msg)
		if err != nil {
			continue
		}
		s.handle(sdReq, from)
	}
}

func (s *SdServer) handle(req Message, from net.Addr) {
	var findReplies []Entry
	var findOptions []Option
	var subscribeReplies []Entry

	for _, e := range req.Entries {
		switch v := e.(type) {
		case ServiceEntry:
			if v.Kind != EntryTypeFindService {
				continue
			}
			metrics.RecordSDFind()
			s.mu.RLock()
			for key, rec := range s.services {
				if key.ServiceID != v.ServiceID {
					continue
				}
				if v.InstanceID != 0xFFFF && key.InstanceID != v.InstanceID {
					continue
				}
				base := uint8(len(findOptions))
				findOptions = append(findOptions, rec.options...)
				offer := rec.entry
				offer.Options = OptionsRef{Index1: base, Count1: uint8(len(rec.options))}
				findReplies = append(findReplies, offer)
			}
			s.mu.RUnlock()
		case EventgroupEntry:
			if v.Kind != EntryTypeSubscribeEventgroup {
				continue
			}
			s.mu.RLock()
			_, known := s.services[serviceKey{v.ServiceID, v.InstanceID}]
			s.mu.RUnlock()

			ack := v
			ack.Kind = EntryTypeSubscribeEventgroupAck
			// The reply carries no options, so it must not reference any.
			ack.Options = OptionsRef{}
			if !known {
				ack.TTL = 0
			}
			subscribeReplies = append(subscribeReplies, ack)
		}
	}

	if len(findReplies) > 0 {
		s.reply(Message{Entries: findReplies, Options: findOptions}, req.Flags, from)
	}
	if len(subscribeReplies) > 0 {
		s.reply(Message{Entries: subscribeReplies}, req.Flags, from)
	}
}

func (s *SdServer) reply(m Message, reqFlags Flags, from net.Addr) {
	wire := BuildMessage(s.clientID, s.sessions.Next(), m)
	dest := s.multicastAddr
	if reqFlags.Unicast {
		dest = from.(*net.UDPAddr)
	}
	_ = someip.WriteDatagramTo(s.conn, wire, dest)
}
