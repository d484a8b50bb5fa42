package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danztee/cctv-eventd/pkg/chunker"
	"github.com/danztee/cctv-eventd/pkg/controlplane"
	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/detector"
	"github.com/danztee/cctv-eventd/pkg/eventbus"
	"github.com/danztee/cctv-eventd/pkg/persistence"
	"github.com/danztee/cctv-eventd/pkg/pipeline"
)

func testServer(t *testing.T, databaseConfigured bool) *Server {
	t.Helper()
	fake := chunker.NewFakeSource(30, 640, 480)
	for i := 0; i < 50; i++ {
		fake.ScriptFrame(make([]byte, 16))
	}

	orchestrator := pipeline.New(eventbus.New[detection.Persisted](), &detector.StubAdapter{}, persistence.NewMemoryStore()).
		WithChunkerOverrides(func(string, bool) chunker.FrameSource { return fake }, chunker.NewFakeClipWriterFactory())
	cp := controlplane.New(orchestrator, persistence.NewMemoryStore())

	return NewServer(cp, eventbus.New[detection.Persisted](), t.TempDir(), "test-api-key", databaseConfigured)
}

func TestStartHandlerRejectsMissingDatabaseConfig(t *testing.T) {
	e := echo.New()
	s := testServer(t, false)

	body := `{"model":"gemini-test","rtsp_url":"rtsp://camera.local/stream","chunk_duration":30,"context":"back entrance","events":[{"event_code":"A","event_description":"person"}]}`
	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.startHandler(c)
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestStartHandlerRejectsInvalidBody(t *testing.T) {
	e := echo.New()
	s := testServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`{"model":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.startHandler(c)
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestStartThenStopHandlerSucceeds(t *testing.T) {
	e := echo.New()
	s := testServer(t, true)

	body := `{"model":"gemini-test","rtsp_url":"rtsp://camera.local/stream","chunk_duration":30,"context":"back entrance","events":[{"event_code":"A","event_description":"person"}]}`
	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, s.startHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	statusReq := httptest.NewRequest(http.MethodGet, "/status", nil)
	statusRec := httptest.NewRecorder()
	statusCtx := e.NewContext(statusReq, statusRec)
	require.NoError(t, s.statusHandler(statusCtx))
	assert.Contains(t, statusRec.Body.String(), `"service_active":true`)

	stopReq := httptest.NewRequest(http.MethodPost, "/stop", nil)
	stopRec := httptest.NewRecorder()
	stopCtx := e.NewContext(stopReq, stopRec)
	require.NoError(t, s.stopHandler(stopCtx))
	assert.Equal(t, http.StatusOK, stopRec.Code)
}

func TestStopHandlerWhenNotRunningReturnsConflict(t *testing.T) {
	e := echo.New()
	s := testServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/stop", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.stopHandler(c)
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
}
