package api

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/domainerr"
)

// startHandler handles POST /start: validates the request body into a
// config.Run and starts the pipeline, rejecting a second start while one is
// already active.
func (s *Server) startHandler(c echo.Context) error {
	if !s.databaseConfigured {
		return mapDomainError(domainerr.New(domainerr.CodeDatabaseNotConfigured, "DATABASE_URL is not configured"))
	}

	var app config.AppConfig
	if err := c.Bind(&app); err != nil {
		return mapDomainError(domainerr.Wrap(domainerr.CodeInvalidConfig, "malformed request body", err))
	}

	run, err := config.Validate(app, s.outputDir, s.apiCredential)
	if err != nil {
		return mapDomainError(err)
	}

	if err := s.cp.StartRun(c.Request().Context(), run); err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, StatusMessageResponse{Status: "Services started successfully"})
}

// stopHandler handles POST /stop.
func (s *Server) stopHandler(c echo.Context) error {
	if err := s.cp.StopRun(); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, StatusMessageResponse{Status: "Services stopped successfully"})
}

// statusHandler handles GET /status.
func (s *Server) statusHandler(c echo.Context) error {
	status := s.cp.Status()
	return c.JSON(http.StatusOK, StatusResponse{
		ServiceActive: status.Active,
		QueueInfo: QueueInfo{
			VideoChunksQueueSize:    status.VideoPathQueueSize,
			EventDetectionQueueSize: status.DetectionQueueSize,
		},
		StreamURL: status.StreamURL,
	})
}
