package notify

import (
	"fmt"

	goslack "github.com/slack-go/slack"

	"github.com/danztee/cctv-eventd/pkg/detection"
)

// buildEventMessage renders one detected event as a small Slack Block Kit
// message: a header line plus the event description and, when present, the
// AI's explanation.
func buildEventMessage(event detection.Persisted) []goslack.Block {
	header := fmt.Sprintf("*%s* detected at %s", event.EventCode, event.EventTimestamp.Format("2006-01-02 15:04:05 MST"))

	text := event.EventDescription
	if event.EventDetectionExplanationByAI != "" {
		text = fmt.Sprintf("%s\n%s", text, event.EventDetectionExplanationByAI)
	}

	return []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, header, false, false), nil, nil),
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil),
	}
}
