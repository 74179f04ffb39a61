// Command sd-probe issues a Service Discovery FindService and prints any
// OfferService replies observed within the TTL window, or, with -offer,
// advertises a service and serves discovery requests for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/go-someip/someip/internal/obslog"
	"github.com/go-someip/someip/sd"
	"github.com/go-someip/someip/someip"
)

func main() {
	serviceID := flag.Uint("service", 0x0042, "service_id to find or offer")
	instanceID := flag.Uint("instance", 0xFFFF, "instance_id (0xFFFF = any, when finding)")
	major := flag.Uint("major", 1, "major_version")
	minor := flag.Uint("minor", 0, "minor_version")
	ttl := flag.Uint("ttl", 3, "ttl seconds")
	offer := flag.Bool("offer", false, "run as an offering SD server instead of a finder")
	offerPort := flag.Uint("offer-port", 30509, "port advertised in the offered IPv4 endpoint")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := obslog.NewStderr(obslog.Config{Level: *logLevel, Component: "sd-probe"})

	if *offer {
		runOfferer(logger, someip.ServiceID(*serviceID), someip.InstanceID(*instanceID&0xFFFF), uint8(*major), uint32(*minor), uint32(*ttl), uint16(*offerPort))
		return
	}

	client, err := sd.NewClient(1)
	if err != nil {
		logger.Fatal().Err(err).Msg("join sd multicast group")
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	offers, err := client.Find(ctx, someip.ServiceID(*serviceID), someip.InstanceID(*instanceID), uint8(*major), uint32(*minor), uint32(*ttl))
	if err != nil {
		logger.Fatal().Err(err).Msg("find")
	}

	if len(offers) == 0 {
		fmt.Println("no offers observed")
		return
	}
	for _, o := range offers {
		fmt.Printf("service=0x%04x instance=0x%04x version=%d.%d ttl=%d endpoints=%d\n",
			o.ServiceID, o.InstanceID, o.MajorVersion, o.MinorVersion, o.TTL, len(o.Endpoints))
	}
}

func runOfferer(logger zerolog.Logger, serviceID someip.ServiceID, instanceID someip.InstanceID, major uint8, minor uint32, ttl uint32, port uint16) {
	server, err := sd.NewServer(1)
	if err != nil {
		logger.Fatal().Err(err).Msg("join sd multicast group")
	}
	defer server.Close()

	endpoint := sd.IPv4EndpointOption{IP: [4]byte{127, 0, 0, 1}, Proto: sd.ProtocolUDP, Port: port}
	if err := server.Offer(serviceID, instanceID, major, minor, ttl, []sd.Option{endpoint}); err != nil {
		logger.Fatal().Err(err).Msg("offer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("serve")
		}
	}()

	logger.Info().Uint16("service_id", uint16(serviceID)).Uint16("instance_id", uint16(instanceID)).Msg("offering; ctrl-c to stop advertising")
	<-ctx.Done()
	server.StopOffer(serviceID, instanceID)
}
