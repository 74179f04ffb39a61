// Command someip-client sends a single SOME/IP request to a target and
// prints the correlated response, over TCP or UDP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/go-someip/someip/internal/config"
	"github.com/go-someip/someip/internal/obslog"
	"github.com/go-someip/someip/someip"
)

func resolveUDP(addr string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", addr)
}

func main() {
	target := flag.String("target", "", "host:port to call")
	transport := flag.String("transport", "tcp", "\"tcp\" or \"udp\"")
	serviceID := flag.Uint("service", 0x0001, "service_id")
	methodID := flag.Uint("method", 0x0001, "method_id")
	payload := flag.String("payload", "", "request payload")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if *target == "" {
		fmt.Fprintln(os.Stderr, "someip-client: -target is required")
		os.Exit(2)
	}

	logger := obslog.NewStderr(obslog.Config{Level: *logLevel, Component: "someip-client"})

	cfg := config.DefaultClientConfig()
	cfg.TargetAddr = *target
	cfg.Transport = *transport
	someipCfg := someip.DefaultConfig()
	someipCfg.CallTimeout = cfg.CallTimeout()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CallTimeout())
	defer cancel()

	builder := someip.NewMessageBuilder(someip.ServiceID(*serviceID), someip.MethodID(*methodID)).
		Payload([]byte(*payload))

	var resp someip.Message
	var err error

	switch cfg.Transport {
	case "udp":
		client, dialErr := someip.ListenUDPClient(":0", 1, someipCfg)
		if dialErr != nil {
			logger.Fatal().Err(dialErr).Msg("listen udp client")
		}
		defer client.Close()

		addr, resolveErr := resolveUDP(cfg.TargetAddr)
		if resolveErr != nil {
			logger.Fatal().Err(resolveErr).Msg("resolve target")
		}
		resp, err = client.CallTo(ctx, addr, builder)
	default:
		client, dialErr := someip.DialTCP(ctx, cfg.TargetAddr, 1, someipCfg)
		if dialErr != nil {
			logger.Fatal().Err(dialErr).Msg("dial tcp")
		}
		defer client.Close()
		resp, err = client.Call(ctx, builder)
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("call failed")
	}

	fmt.Printf("message_type=%s return_code=%s payload=%q\n", resp.Header.MessageType, resp.Header.ReturnCode, resp.Payload)
}
