// Package config validates the externally supplied AppConfig into an
// immutable Run ready to hand to the pipeline orchestrator.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/danztee/cctv-eventd/pkg/domainerr"
)

// EventDefinition is one entry of the user-supplied event catalog.
type EventDefinition struct {
	Code                string `json:"event_code"`
	Description         string `json:"event_description"`
	DetectionGuidelines string `json:"detection_guidelines"`
}

// AppConfig is the JSON body accepted by POST /start.
type AppConfig struct {
	Model         string            `json:"model"`
	RTSPURL       string            `json:"rtsp_url"`
	ChunkDuration int               `json:"chunk_duration"`
	Context       string            `json:"context"`
	Events        []EventDefinition `json:"events"`
}

// Run is the validated, immutable configuration of one pipeline run.
type Run struct {
	StreamURL       string
	ChunkDuration   time.Duration
	ModelIdentifier string
	Context         string
	Events          []EventDefinition
	OutputDirectory string
	APICredential   string
}

// Validate checks app for the required fields named in the spec and
// returns an immutable Run. outputDir and apiCredential come from process
// configuration, not the request body.
func Validate(app AppConfig, outputDir, apiCredential string) (Run, error) {
	if strings.TrimSpace(app.RTSPURL) == "" {
		return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "rtsp_url is required")
	}
	if strings.TrimSpace(app.Model) == "" {
		return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "model is required")
	}
	if strings.TrimSpace(app.Context) == "" {
		return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "context is required")
	}
	if len(app.Events) == 0 {
		return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "events catalog must not be empty")
	}
	if app.ChunkDuration <= 0 {
		return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "chunk_duration must be positive")
	}
	if !hasSupportedScheme(app.RTSPURL) {
		return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "rtsp_url must use rtsp://, http:// or https://")
	}
	for i, ev := range app.Events {
		if strings.TrimSpace(ev.Code) == "" {
			return Run{}, domainerr.New(domainerr.CodeInvalidConfig, "events["+strconv.Itoa(i)+"].event_code is required")
		}
	}

	return Run{
		StreamURL:       app.RTSPURL,
		ChunkDuration:   time.Duration(app.ChunkDuration) * time.Second,
		ModelIdentifier: app.Model,
		Context:         app.Context,
		Events:          app.Events,
		OutputDirectory: outputDir,
		APICredential:   apiCredential,
	}, nil
}

func hasSupportedScheme(url string) bool {
	for _, scheme := range []string{"rtsp://", "http://", "https://"} {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

