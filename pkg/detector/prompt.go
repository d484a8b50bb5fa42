package detector

import (
	"fmt"
	"strings"

	"github.com/danztee/cctv-eventd/pkg/config"
)

// detectionEnvelope is the JSON shape the prompt instructs the model to
// reply with: a bare array of detections, one per matched event.
type detectionEnvelope struct {
	EventCode                    string `json:"event_code"`
	EventTimestamp               string `json:"event_timestamp"`
	EventDetectionExplanationByAI string `json:"event_detection_explanation_by_ai"`
}

// buildPrompt embeds the context and the ordered events catalog, and
// instructs the model to emit a JSON array of detectionEnvelope records.
// The exact schema is an implementation choice (spec.md leaves it open);
// this one keeps the fields the collection worker needs and nothing else.
func buildPrompt(contextText string, events []config.EventDefinition) string {
	var b strings.Builder

	b.WriteString("You are monitoring a security camera clip. Context: ")
	b.WriteString(contextText)
	b.WriteString("\n\nWatch the attached video clip and decide whether any of the following events occurred. ")
	b.WriteString("Only report events from this catalog; ignore everything else.\n\n")

	for _, ev := range events {
		fmt.Fprintf(&b, "- code: %q\n  description: %s\n  guidelines: %s\n", ev.Code, ev.Description, ev.DetectionGuidelines)
	}

	b.WriteString("\nRespond with ONLY a JSON array (no markdown fences, no prose). ")
	b.WriteString("Each element must have exactly these fields: ")
	b.WriteString(`"event_code" (one of the catalog codes above), `)
	b.WriteString(`"event_timestamp" (RFC3339 UTC timestamp within the clip, your best estimate), `)
	b.WriteString(`"event_detection_explanation_by_ai" (one sentence explaining what you saw). `)
	b.WriteString("If nothing in the catalog occurred, respond with an empty array: []")

	return b.String()
}
