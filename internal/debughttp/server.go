package debughttp

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/go-someip/someip/sd"
)

// Registry is the subset of sd.SdServer the debug server needs to render
// a services snapshot, kept narrow so tests can fake it.
type Registry interface {
	Services() []sd.ServiceSnapshot
}

// Server exposes read-only operational endpoints for a running SOME/IP
// server or SD registry: health, Prometheus metrics, and a snapshot of
// currently offered services.
type Server struct {
	engine *gin.Engine
}

// New builds the gin engine with the standard recovery/logging/CORS
// middleware stack and routes. registry may be nil if no SD server is
// running in this process; /sd/services then returns an empty list.
func New(logger zerolog.Logger, registry Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	engine.Use(cors.Default())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.GET("/sd/services", func(c *gin.Context) {
		if registry == nil {
			c.JSON(http.StatusOK, []sd.ServiceSnapshot{})
			return
		}
		c.JSON(http.StatusOK, registry.Services())
	})

	return &Server{engine: engine}
}

// ListenAndServe blocks serving on addr until it fails or is closed.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.engine)
}

// Handler returns the underlying http.Handler, for tests that want to
// drive it with httptest instead of binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}
