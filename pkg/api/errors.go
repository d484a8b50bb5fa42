package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/danztee/cctv-eventd/pkg/domainerr"
	"github.com/danztee/cctv-eventd/pkg/persistence"
)

// mapDomainError maps a domain error to an HTTP status and body. Unmapped
// errors are logged and turned into a generic 500 so that an internal
// failure reason is never leaked to the client.
func mapDomainError(err error) *echo.HTTPError {
	var domainErr *domainerr.Error
	if errors.As(err, &domainErr) {
		status := statusForCode(domainErr.Code)
		return echo.NewHTTPError(status, ErrorResponse{
			ErrorCode: string(domainErr.Code),
			Message:   domainErr.Message,
		})
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, ErrorResponse{
			ErrorCode: string(domainerr.CodeEventNotFound),
			Message:   "event not found",
		})
	}

	slog.Error("unexpected error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, ErrorResponse{
		ErrorCode: "INTERNAL_ERROR",
		Message:   "internal server error",
	})
}

func statusForCode(code domainerr.Code) int {
	switch code {
	case domainerr.CodeServiceAlreadyRunning:
		return http.StatusConflict
	case domainerr.CodeServiceNotRunning:
		return http.StatusConflict
	case domainerr.CodeInvalidConfig:
		return http.StatusBadRequest
	case domainerr.CodeDatabaseNotConfigured:
		return http.StatusBadRequest
	case domainerr.CodeEventNotFound, domainerr.CodeInvalidVideoPath:
		return http.StatusNotFound
	case domainerr.CodeVideoProcessingFailed, domainerr.CodeFrameExtractionFailed, domainerr.CodeAIDetectionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
