// Package api provides the HTTP surface for the event-detection pipeline:
// start/stop/status control, the event log, a live SSE event stream, and
// clip playback.
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/danztee/cctv-eventd/pkg/controlplane"
	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/eventbus"
	"github.com/danztee/cctv-eventd/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cp  *controlplane.ControlPlane
	bus *eventbus.Bus[detection.Persisted]

	outputDir          string
	apiCredential      string
	databaseConfigured bool
}

// NewServer builds a Server wired to cp (the control plane) and bus.
// outputDir is where finalized clips are written (used to validate
// GET /video paths); apiCredential is the vision model API key read from
// process configuration; databaseConfigured reports whether DATABASE_URL
// was set at startup, since POST /start requires persistence to be
// available.
func NewServer(cp *controlplane.ControlPlane, bus *eventbus.Bus[detection.Persisted], outputDir, apiCredential string, databaseConfigured bool) *Server {
	e := echo.New()
	e.HideBanner = true

	s := &Server{
		echo:               e,
		cp:                 cp,
		bus:                bus,
		outputDir:          outputDir,
		apiCredential:      apiCredential,
		databaseConfigured: databaseConfigured,
	}

	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"*"},
		AllowHeaders: []string{"*"},
	}))
	e.Use(securityHeaders())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)

	s.echo.POST("/start", s.startHandler)
	s.echo.POST("/stop", s.stopHandler)
	s.echo.GET("/status", s.statusHandler)

	s.echo.GET("/events", s.listEventsHandler)
	s.echo.GET("/events/id/:id", s.getEventHandler)
	s.echo.GET("/events/stream", s.streamEventsHandler)

	s.echo.GET("/video", s.videoHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, such
// as one bound to a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: version.Full()})
}
