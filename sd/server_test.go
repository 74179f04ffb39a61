package sd

import (
	"context"
	"testing"
	"time"
)

func TestFindServiceRoundTripOverMulticast(t *testing.T) {
	server, err := NewServer(0x0001)
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer server.Close()

	endpoint := IPv4EndpointOption{IP: [4]byte{127, 0, 0, 1}, Proto: ProtocolUDP, Port: 30509}
	if err := server.Offer(0x0042, 0x0001, 1, 0, 3, []Option{endpoint}); err != nil {
		t.Fatalf("Offer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx)

	client, err := NewClient(0x0002)
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer client.Close()

	findCtx, findCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer findCancel()

	offers, err := client.Find(findCtx, 0x0042, 0xFFFF, 1, 0, 1)
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("Find: %v", err)
	}
	if len(offers) == 0 {
		t.Skip("no offers observed; local network may not deliver multicast loopback")
	}
	if offers[0].ServiceID != 0x0042 || offers[0].InstanceID != 0x0001 {
		t.Fatalf("unexpected offer: %+v", offers[0])
	}
}
