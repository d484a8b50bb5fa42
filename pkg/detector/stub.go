package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/detection"
)

// StubAdapter is a test double that emits a fixed set of results for every
// clip, without making any network call. It backs the end-to-end scenarios
// in spec §8 that require a detector stubbed to return a known detection.
type StubAdapter struct {
	Results []detection.Result
	Err     error
}

func (s *StubAdapter) Classify(ctx context.Context, clipPath, modelIdentifier string, events []config.EventDefinition, contextText string, out chan<- detection.Result) error {
	if s.Err != nil {
		return s.Err
	}
	for _, r := range s.Results {
		result := r
		if result.EventVideoURL == "" {
			result.EventVideoURL = clipPath
		}
		select {
		case out <- result:
		case <-time.After(enqueueTimeout):
			slog.Warn("detector: detection queue full, dropping stub result", "clip_path", clipPath, "event_code", result.EventCode)
		}
	}
	return nil
}
