package someip

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-someip/someip/internal/metrics"
)

// TCPClient is a session-correlated SOME/IP client over one persistent TCP
// connection. It owns a single read goroutine that demultiplexes incoming
// Response/Error messages to the Call that is waiting on their
// correlation key, mirroring the register/ack loop of a long-lived
// control connection.
type TCPClient struct {
	conn    net.Conn
	cfg     Config
	clientID ClientID
	sessions *SessionCounter

	mu      sync.Mutex
	pending map[CorrelationKey]chan Message
	closed  bool
	closeErr error

	onUnmatched func(Message)
}

// DialTCP opens a TCP connection to addr and starts the client's read
// loop. clientID is the client_id this client stamps on every request it
// sends.
func DialTCP(ctx context.Context, addr string, clientID ClientID, cfg Config) (*TCPClient, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPClient(conn, clientID, cfg), nil
}

// NewTCPClient wraps an already-connected net.Conn.
func NewTCPClient(conn net.Conn, clientID ClientID, cfg Config) *TCPClient {
	c := &TCPClient{
		conn:     conn,
		cfg:      cfg,
		clientID: clientID,
		sessions: NewSessionCounter(),
		pending:  make(map[CorrelationKey]chan Message),
	}
	go c.readLoop()
	return c
}

// OnUnmatched registers a handler invoked for every incoming
// Response/Error message that does not correlate to an outstanding Call.
// It is ignored unless Config.DiscardUnmatchedResponses is false. Must be
// called before the first message arrives.
func (c *TCPClient) OnUnmatched(fn func(Message)) {
	c.mu.Lock()
	c.onUnmatched = fn
	c.mu.Unlock()
}

func (c *TCPClient) readLoop() {
	for {
		if c.cfg.ReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		m, err := ReadMessage(c.conn, c.cfg.limits())
		if err != nil {
			if isTimeoutErr(err) {
				c.fail(ErrTimeout)
				return
			}
			c.fail(err)
			return
		}
		metrics.RecordMessage("tcp", m.Header.MessageType.String())

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
			unmatched(m)
		}
	}
}

func (c *TCPClient) fail(err error) {
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

// Call sends a request built by b and blocks until a correlated
// Response/Error arrives, ctx is done, Config.CallTimeout elapses, or the
// connection fails. b's message_type and client_id are overwritten to
// MessageTypeRequest and the client's configured client_id; its
// session_id is left untouched if the caller already set one, otherwise
// a freshly allocated value is assigned.
func (c *TCPClient) Call(ctx context.Context, b *MessageBuilder) (Message, error) {
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

	if err := WriteMessage(c.conn, req); err != nil {
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
		metrics.ObserveCallDuration("tcp", time.Since(start).Seconds())
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		if ctx.Err() == context.DeadlineExceeded {
			metrics.RecordCallTimeout("tcp")
			return Message{}, ErrTimeout
		}
		return Message{}, ctx.Err()
	}
}

func (c *TCPClient) closeErrOrDefault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrConnectionClosed
}

// Send transmits a fire-and-forget message (typically
// MessageTypeRequestNoReturn or MessageTypeNotification) without waiting
// for a response.
func (c *TCPClient) Send(b *MessageBuilder) error {
	b.ClientID(c.clientID)
	if b.header.SessionID == 0 {
		b.SessionID(c.sessions.Next())
	}
	return WriteMessage(c.conn, b.Build())
}

// Close closes the underlying connection and unblocks any outstanding
// Call with ErrConnectionClosed.
func (c *TCPClient) Close() error {
	c.fail(ErrConnectionClosed)
	return c.conn.Close()
}
