package someip

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestTCPClientServerCallRoundTrip(t *testing.T) {
	router := NewRouter()
	router.RegisterFunc(0x1234, 0x0001, func(req Message) Message {
		return CreateResponse(req).Payload([]byte("pong: " + string(req.Payload))).Build()
	})

	srv, err := ListenTCP("127.0.0.1:0", router, DefaultConfig())
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	client, err := DialTCP(context.Background(), srv.Addr().String(), 0x0042, DefaultConfig())
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer client.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()

	resp, err := client.Call(callCtx, NewMessageBuilder(0x1234, 0x0001).Payload([]byte("ping")))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(resp.Payload) != "pong: ping" {
		t.Fatalf("payload = %q, want %q", resp.Payload, "pong: ping")
	}
	if resp.Header.ClientID != 0x0042 {
		t.Fatalf("ClientID = %d, want 0x0042", resp.Header.ClientID)
	}
}

func TestTCPClientCallTimeout(t *testing.T) {
	router := NewRouter() // no handlers registered but also never replies: simulate a silent peer
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Read and drop the request without responding.
		buf := make([]byte, HeaderSize)
		conn.Read(buf)
		<-make(chan struct{})
	}()
	_ = router

	client, err := DialTCP(context.Background(), ln.Addr().String(), 1, DefaultConfig())
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.Call(ctx, NewMessageBuilder(1, 1))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Call error = %v, want ErrTimeout", err)
	}
}

func TestUDPClientServerCallRoundTrip(t *testing.T) {
	router := NewRouter()
	router.RegisterFunc(0xABCD, 0x0010, func(req Message) Message {
		return CreateResponse(req).Payload([]byte("ack")).Build()
	})

	srv, err := ListenUDP("127.0.0.1:0", router, DefaultConfig())
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	client, err := ListenUDPClient("127.0.0.1:0", 7, DefaultConfig())
	if err != nil {
		t.Fatalf("ListenUDPClient: %v", err)
	}
	defer client.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()

	resp, err := client.CallTo(callCtx, srv.LocalAddr(), NewMessageBuilder(0xABCD, 0x0010).Payload([]byte("req")))
	if err != nil {
		t.Fatalf("CallTo: %v", err)
	}
	if string(resp.Payload) != "ack" {
		t.Fatalf("payload = %q, want %q", resp.Payload, "ack")
	}
}

func TestTCPServerSkipsReplyForRequestNoReturn(t *testing.T) {
	called := make(chan struct{}, 1)
	router := NewRouter()
	router.RegisterFunc(1, 1, func(req Message) Message {
		called <- struct{}{}
		return CreateResponse(req).Build()
	})

	srv, err := ListenTCP("127.0.0.1:0", router, DefaultConfig())
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	m := NewMessageBuilder(1, 1).MessageType(MessageTypeRequestNoReturn).SessionID(1).Build()
	if err := WriteMessage(conn, m); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked for RequestNoReturn")
	}

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 1)
	if n, err := conn.Read(buf); n != 0 || err == nil {
		t.Fatal("server unexpectedly wrote a reply for a RequestNoReturn message")
	}
}
