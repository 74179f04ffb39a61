package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/go-someip/someip/internal/obslog"
)

// Start returns a debug-level logger for t and writes a marker line
// naming the test, so interleaved test output can be attributed back to
// the test that produced it.
func Start(t *testing.T) zerolog.Logger {
	logger := obslog.New(testWriter{t}, obslog.Config{Level: "debug", Component: t.Name()})
	logger.Debug().Str("test", t.Name()).Msg("test start")
	return logger
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}
