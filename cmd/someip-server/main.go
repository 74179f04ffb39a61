// Command someip-server runs a SOME/IP TCP and UDP echo/request server,
// optionally advertising itself over Service Discovery, with a debug
// HTTP surface for health and metrics.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-someip/someip/internal/config"
	"github.com/go-someip/someip/internal/debughttp"
	"github.com/go-someip/someip/internal/metrics"
	"github.com/go-someip/someip/internal/obslog"
	"github.com/go-someip/someip/sd"
	"github.com/go-someip/someip/someip"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML server config; flags below override it")
	listenAddr := flag.String("listen", "", "override listen_addr")
	debugAddr := flag.String("debug-addr", "", "override debug_addr")
	logLevel := flag.String("log-level", "", "override log_level")
	advertiseServiceID := flag.Int("advertise-service", -1, "if set, offer this service_id over SD")
	flag.Parse()

	cfg := config.DefaultServerConfig()
	if *configPath != "" {
		loaded, err := config.LoadServerConfig(*configPath)
		if err != nil {
			os.Stderr.WriteString("someip-server: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *debugAddr != "" {
		cfg.DebugAddr = *debugAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := obslog.NewStderr(obslog.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Component: "someip-server"})
	metrics.Register(prometheus.DefaultRegisterer)

	router := someip.NewRouter()
	router.RegisterFunc(0x0001, 0x0001, func(req someip.Message) someip.Message {
		return someip.CreateResponse(req).Payload(req.Payload).Build()
	})

	someipCfg := someip.DefaultConfig()
	someipCfg.ReadTimeout = cfg.ReadTimeout()
	someipCfg.MaxMessagePayload = uint32(cfg.MaxMessagePayload)
	someipCfg.MaxDatagramSize = cfg.MaxDatagramSize

	tcpServer, err := someip.ListenTCP(cfg.ListenAddr, router, someipCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("listen tcp")
	}
	defer tcpServer.Close()

	udpServer, err := someip.ListenUDP(cfg.ListenAddr, router, someipCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("listen udp")
	}
	defer udpServer.Close()

	var sdServer *sd.SdServer
	if *advertiseServiceID >= 0 {
		sdServer, err = sd.NewServer(0)
		if err != nil {
			logger.Warn().Err(err).Msg("sd server unavailable, continuing without service discovery")
		} else {
			defer sdServer.Close()
			if err := sdServer.Offer(someip.ServiceID(*advertiseServiceID), 1, 1, 0, uint32(cfg.SDTTLSeconds), nil); err != nil {
				logger.Warn().Err(err).Msg("sd offer failed")
			}
		}
	}

	var debugRegistry debughttp.Registry
	if sdServer != nil {
		debugRegistry = sdServer
	}
	debugSrv := debughttp.New(logger, debugRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", tcpServer.Addr().String()).Msg("tcp server listening")
		if err := tcpServer.Serve(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("tcp server stopped")
		}
	}()

	go func() {
		logger.Info().Str("addr", udpServer.LocalAddr().String()).Msg("udp server listening")
		if err := udpServer.Serve(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("udp server stopped")
		}
	}()

	if sdServer != nil {
		go func() {
			if err := sdServer.Serve(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("sd server stopped")
			}
		}()
	}

	go func() {
		logger.Info().Str("addr", cfg.DebugAddr).Msg("debug http listening")
		if err := debugSrv.ListenAndServe(cfg.DebugAddr); err != nil {
			logger.Error().Err(err).Msg("debug http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}
