package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAndRecordersAreSafe(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	Register(reg)

	RecordMessage("tcp", "REQUEST")
	ObserveCallDuration("tcp", 12*time.Millisecond.Seconds())
	RecordCallTimeout("udp")
	RecordTPReassembly("completed")
	RecordSDOffer("offer")
	RecordSDFind()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected registered collectors to be gatherable, got none")
	}
}
