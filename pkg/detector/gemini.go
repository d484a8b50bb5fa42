package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/detection"
)

// GeminiAdapter talks to Google's Gemini multimodal API via the first-party
// genai Go SDK. It holds no per-call state beyond the authenticated client,
// since the model identifier is chosen per run and supplied to Classify.
type GeminiAdapter struct {
	client *genai.Client
}

// NewGeminiAdapter builds an adapter authenticated with apiKey.
func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiAdapter{client: client}, nil
}

// Classify uploads clipPath inline, asks modelIdentifier to classify it
// against events, and enqueues each parsed detection onto out with a
// bounded wait.
func (a *GeminiAdapter) Classify(ctx context.Context, clipPath, modelIdentifier string, events []config.EventDefinition, contextText string, out chan<- detection.Result) error {
	videoBytes, err := os.ReadFile(clipPath)
	if err != nil {
		return fmt.Errorf("read clip: %w", err)
	}

	prompt := buildPrompt(contextText, events)
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(videoBytes, "video/mp4"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := a.client.Models.GenerateContent(ctx, modelIdentifier, contents, nil)
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}

	envelopes, err := parseEnvelopes(resp.Text())
	if err != nil {
		return fmt.Errorf("parse model response: %w", err)
	}

	for _, env := range envelopes {
		result := normalize(env, clipPath)
		select {
		case out <- result:
		case <-time.After(enqueueTimeout):
			slog.Warn("detector: detection queue full, dropping result", "clip_path", clipPath, "event_code", result.EventCode)
		}
	}

	return nil
}

func parseEnvelopes(raw string) ([]detectionEnvelope, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" {
		return nil, nil
	}

	var envelopes []detectionEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelopes); err != nil {
		return nil, err
	}
	return envelopes, nil
}

// normalize converts one parsed envelope into a detection.Result, filling in
// the default code, a UTC timestamp and the clip path. The description is
// left empty so the collection worker can look it up in the event catalog.
func normalize(env detectionEnvelope, clipPath string) detection.Result {
	code := env.EventCode
	if code == "" {
		code = detection.DefaultEventCode
	}

	ts := time.Now().UTC()
	if env.EventTimestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, env.EventTimestamp); err == nil {
			ts = parsed.UTC()
		}
	}

	return detection.Result{
		EventTimestamp:                ts,
		EventCode:                     code,
		EventDetectionExplanationByAI: env.EventDetectionExplanationByAI,
		EventVideoURL:                 clipPath,
	}
}
