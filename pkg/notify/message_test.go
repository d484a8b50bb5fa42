package notify

import (
	"testing"
	"time"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danztee/cctv-eventd/pkg/detection"
)

func TestBuildEventMessageIncludesCodeAndExplanation(t *testing.T) {
	event := detection.Persisted{
		EventID: 7,
		Result: detection.Result{
			EventCode:                     "A",
			EventDescription:              "person detected",
			EventDetectionExplanationByAI: "a person walked past the camera",
			EventTimestamp:                time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	blocks := buildEventMessage(event)
	require.Len(t, blocks, 2)

	header, ok := blocks[0].(*goslack.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, header.Text.Text, "*A*")

	body, ok := blocks[1].(*goslack.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, body.Text.Text, "a person walked past the camera")
}
