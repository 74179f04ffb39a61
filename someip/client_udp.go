package someip

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-someip/someip/internal/metrics"
)

// UDPClient is a session-correlated SOME/IP client over one UDP socket.
// Unlike TCPClient it is not bound to a single peer: CallTo and SendTo
// each take a destination address, and the client's read loop
// demultiplexes replies from any peer by correlation key alone.
type UDPClient struct {
	conn     net.PacketConn
	cfg      Config
	clientID ClientID
	sessions *SessionCounter

	mu      sync.Mutex
	pending map[CorrelationKey]chan Message
	closed  bool
	closeErr error

	onUnmatched func(Message, net.Addr)
}

// ListenUDPClient opens a UDP socket on localAddr (use ":0" for an
// ephemeral port) and starts the client's read loop.
func ListenUDPClient(localAddr string, clientID ClientID, cfg Config) (*UDPClient, error) {
	conn, err := net.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, err
	}
	c := &UDPClient{
		conn:     conn,
		cfg:      cfg,
		clientID: clientID,
		sessions: NewSessionCounter(),
		pending:  make(map[CorrelationKey]chan Message),
	}
	go c.readLoop()
	return c, nil
}

// OnUnmatched registers a handler invoked for every incoming datagram
// that decodes to a Response/Error not correlated to an outstanding
// CallTo. Ignored unless Config.DiscardUnmatchedResponses is false.
func (c *UDPClient) OnUnmatched(fn func(Message, net.Addr)) {
	c.mu.Lock()
	c.onUnmatched = fn
	c.mu.Unlock()
}

func (c *UDPClient) readLoop() {
	for {
		if c.cfg.ReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		m, addr, err := ReadDatagram(c.conn, c.cfg.limits())
		if err != nil {
			if addr != nil {
				// A datagram arrived but failed to decode; the socket
				// itself is fine, so keep reading.
				continue
			}
			if isTimeoutErr(err) {
				c.fail(ErrTimeout)
				return
			}
			c.fail(err)
			return
		}
		metrics.RecordMessage("udp", m.Header.MessageType.String())
		if !m.Header.MessageType.IsResponseClass() {
			continue
		}

		key := m.Key()
		c.mu.Lock()
		ch, ok := c.pending[key]
		if ok {
			delete(c.pending, key)
		}
		unmatched := c.onUnmatched
		discard := c.cfg.DiscardUnmatchedResponses
		c.mu.Unlock()

		if ok {
			ch <- m
			continue
		}
		if !discard && unmatched != nil {
			unmatched(m, addr)
		}
	}
}

func (c *UDPClient) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// CallTo sends a request built by b to addr and blocks until a correlated
// Response/Error arrives, ctx is done, Config.CallTimeout elapses, or the
// socket fails. Its session_id is left untouched if the caller already
// set one, otherwise a freshly allocated value is assigned.
func (c *UDPClient) CallTo(ctx context.Context, addr net.Addr, b *MessageBuilder) (Message, error) {
	b.ClientID(c.clientID)
	if b.header.SessionID == 0 {
		b.SessionID(c.sessions.Next())
	}
	b.MessageType(MessageTypeRequest)
	req := b.Build()

	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	ch := make(chan Message, 1)
	key := req.Key()

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		if err == nil {
			err = ErrConnectionClosed
		}
		return Message{}, err
	}
	c.pending[key] = ch
	c.mu.Unlock()

	if err := WriteDatagramTo(c.conn, req, addr); err != nil {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		return Message{}, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Message{}, c.closeErrOrDefault()
		}
		metrics.ObserveCallDuration("udp", time.Since(start).Seconds())
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		if ctx.Err() == context.DeadlineExceeded {
			metrics.RecordCallTimeout("udp")
			return Message{}, ErrTimeout
		}
		return Message{}, ctx.Err()
	}
}

func (c *UDPClient) closeErrOrDefault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrConnectionClosed
}

// SendTo transmits a fire-and-forget datagram to addr without waiting for
// a response.
func (c *UDPClient) SendTo(addr net.Addr, b *MessageBuilder) error {
	b.ClientID(c.clientID)
	if b.header.SessionID == 0 {
		b.SessionID(c.sessions.Next())
	}
	return WriteDatagramTo(c.conn, b.Build(), addr)
}

// LocalAddr returns the socket's bound local address.
func (c *UDPClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close closes the underlying socket and unblocks any outstanding CallTo
// with ErrConnectionClosed.
func (c *UDPClient) Close() error {
	c.fail(ErrConnectionClosed)
	return c.conn.Close()
}
