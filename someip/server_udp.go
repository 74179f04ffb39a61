package someip

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-someip/someip/internal/metrics"
)

// UDPServer runs a single receive loop over one UDP socket and dispatches
// each datagram to Handler on its own goroutine, so a slow handler call
// cannot delay draining the socket for unrelated peers.
type UDPServer struct {
	conn    net.PacketConn
	handler Handler
	cfg     Config
}

// ListenUDP starts a UDPServer bound to addr.
func ListenUDP(addr string, handler Handler, cfg Config) (*UDPServer, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	return &UDPServer{conn: conn, handler: handler, cfg: cfg}, nil
}

// LocalAddr returns the socket's bound local address.
func (s *UDPServer) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Serve reads datagrams until ctx is done or the socket fails.
func (s *UDPServer) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		// ReadTimeout is applied to the shared socket but a timeout is not
		// fatal here the way it is for a single-peer TCP connection: it
		// just means no peer has sent anything recently, not that any one
		// peer has gone away, so the loop keeps serving everyone else.
		if s.cfg.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		req, addr, err := ReadDatagram(s.conn, s.cfg.limits())
		if err != nil {
			if isTimeoutErr(err) {
				continue
			}
			if addr != nil {
				// A datagram arrived but failed to decode; the socket
				// itself is fine, so keep serving other peers.
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		metrics.RecordMessage("udp", req.Header.MessageType.String())

		if req.Header.MessageType.IsResponseClass() {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(req, addr)
		}()
	}
}

func (s *UDPServer) dispatch(req Message, addr net.Addr) {
	resp := s.handler.Handle(req)
	if req.Header.MessageType != MessageTypeRequest {
		return
	}
	_ = WriteDatagramTo(s.conn, resp, addr)
}

// Close closes the underlying socket.
func (s *UDPServer) Close() error {
	return s.conn.Close()
}
