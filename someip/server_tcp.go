package someip

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-someip/someip/internal/metrics"
)

// TCPServer accepts SOME/IP connections and serves each on its own
// goroutine, reading one message at a time and, for MessageTypeRequest,
// writing back whatever Handler.Handle returns. MessageTypeRequestNoReturn
// and MessageTypeNotification are handed to Handler but their return
// value is discarded, since SOME/IP defines no reply for them.
type TCPServer struct {
	ln      net.Listener
	handler Handler
	cfg     Config

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// ListenTCP starts a TCPServer accepting on addr.
func ListenTCP(addr string, handler Handler, cfg Config) (*TCPServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPServer{
		ln:      ln,
		handler: handler,
		cfg:     cfg,
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the server's bound listen address.
func (s *TCPServer) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is done or the listener fails. It
// spawns one goroutine per accepted connection and returns once every
// such goroutine has exited.
func (s *TCPServer) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.ln.Close()
		case <-done:
		}
	}()
	defer close(done)

	var wg sync.WaitGroup
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	for {
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		req, err := ReadMessage(conn, s.cfg.limits())
		if err != nil {
			return
		}
		metrics.RecordMessage("tcp", req.Header.MessageType.String())

		if req.Header.MessageType.IsResponseClass() {
			continue
		}

		resp := s.handler.Handle(req)
		if req.Header.MessageType != MessageTypeRequest {
			continue
		}
		if err := WriteMessage(conn, resp); err != nil {
			return
		}
	}
}

// Close closes the listener and every currently open connection.
func (s *TCPServer) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	return err
}
