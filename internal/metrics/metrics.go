package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "someip"

var (
	registerOnce sync.Once

	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "messages_total",
		Help:      "SOME/IP messages processed, by transport and message_type.",
	}, []string{"transport", "message_type"})

	callDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "call_duration_seconds",
		Help:      "Latency of Call/CallTo from send to correlated response.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"transport"})

	callTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "call_timeouts_total",
		Help:      "Call/CallTo invocations that failed to receive a correlated response in time.",
	}, []string{"transport"})

	tpReassembliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tp",
		Name:      "reassemblies_total",
		Help:      "TP reassembly outcomes: completed, evicted, or rejected by conflicting overlap.",
	}, []string{"outcome"})

	sdOffersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sd",
		Name:      "offers_total",
		Help:      "OfferService entries broadcast, by kind (offer/stop).",
	}, []string{"kind"})

	sdFindsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sd",
		Name:      "finds_total",
		Help:      "FindService entries observed by a SdServer.",
	})
)

// Register installs every collector into reg exactly once across the
// process, so a test or a second server instance calling Register again
// is a no-op rather than a panic.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(messagesTotal, callDuration, callTimeoutsTotal, tpReassembliesTotal, sdOffersTotal, sdFindsTotal)
	})
}

// RecordMessage increments the per-transport, per-message_type counter.
func RecordMessage(transport, messageType string) {
	messagesTotal.WithLabelValues(transport, messageType).Inc()
}

// ObserveCallDuration records how long a Call/CallTo took to resolve.
func ObserveCallDuration(transport string, seconds float64) {
	callDuration.WithLabelValues(transport).Observe(seconds)
}

// RecordCallTimeout increments the per-transport call-timeout counter.
func RecordCallTimeout(transport string) {
	callTimeoutsTotal.WithLabelValues(transport).Inc()
}

// RecordTPReassembly increments the reassembly outcome counter: one of
// "completed", "evicted", or "conflict".
func RecordTPReassembly(outcome string) {
	tpReassembliesTotal.WithLabelValues(outcome).Inc()
}

// RecordSDOffer increments the SD offer counter for "offer" or "stop".
func RecordSDOffer(kind string) {
	sdOffersTotal.WithLabelValues(kind).Inc()
}

// RecordSDFind increments the count of FindService entries observed.
func RecordSDFind() {
	sdFindsTotal.Inc()
}
