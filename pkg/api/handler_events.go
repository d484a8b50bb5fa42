package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v4"

	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/domainerr"
)

const defaultEventsLimit = 100

func toEventResponse(p detection.Persisted) EventResponse {
	return EventResponse{
		EventID:                       p.EventID,
		EventTimestamp:                p.EventTimestamp,
		EventCode:                     p.EventCode,
		EventDescription:              p.EventDescription,
		EventDetectionExplanationByAI: p.EventDetectionExplanationByAI,
		EventVideoURL:                 p.EventVideoURL,
	}
}

// listEventsHandler handles GET /events?limit=N, returning the most recent
// events first. limit defaults to 100 when absent or invalid.
func (s *Server) listEventsHandler(c echo.Context) error {
	limit := defaultEventsLimit
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.cp.ListEvents(c.Request().Context(), limit)
	if err != nil {
		return mapDomainError(err)
	}

	responses := make([]EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toEventResponse(e))
	}
	return c.JSON(http.StatusOK, EventListResponse{Events: responses})
}

// getEventHandler handles GET /events/id/:id.
func (s *Server) getEventHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return mapDomainError(domainerr.New(domainerr.CodeEventNotFound, "invalid event id"))
	}

	event, err := s.cp.GetEvent(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(event))
}

// streamEventsHandler handles GET /events/stream: a raw Server-Sent Events
// feed of every newly persisted event, one JSON object per "data:" line.
// It runs until the client disconnects.
func (s *Server) streamEventsHandler(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	handle := s.bus.Subscribe()
	defer s.bus.Unsubscribe(handle)

	ctx := c.Request().Context()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			s.bus.Unsubscribe(handle)
		case <-watchDone:
		}
	}()

	for {
		event, ok := handle.Next()
		if !ok {
			return nil
		}

		payload, err := json.Marshal(toEventResponse(event))
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
			return nil
		}
		res.Flush()
	}
}
