package notify

import (
	"context"
	"time"

	"github.com/danztee/cctv-eventd/pkg/detection"
	"github.com/danztee/cctv-eventd/pkg/eventbus"
)

const postTimeout = 10 * time.Second

// Notifier subscribes to the event bus like any other subscriber and posts
// one Slack message per detected event. Nil-safe: every method is a no-op
// on a nil *Notifier, so callers can wire it unconditionally.
type Notifier struct {
	client *Client
}

// New returns a Notifier posting to channelID with token, or nil if either
// is empty — Slack notifications are opt-in.
func New(token, channelID string) *Notifier {
	if token == "" || channelID == "" {
		return nil
	}
	return &Notifier{client: NewClient(token, channelID)}
}

// Run subscribes to bus and posts messages until ctx is cancelled. It is
// meant to be run in its own goroutine by the caller.
func (n *Notifier) Run(ctx context.Context, bus *eventbus.Bus[detection.Persisted]) {
	if n == nil {
		return
	}

	handle := bus.Subscribe()

	// Next() blocks on the subscriber's channel; unsubscribing on context
	// cancellation closes that channel so the blocked read wakes up.
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			bus.Unsubscribe(handle)
		case <-stopWatch:
		}
	}()
	defer bus.Unsubscribe(handle)

	for {
		event, ok := handle.Next()
		if !ok {
			return
		}

		blocks := buildEventMessage(event)
		if err := n.client.PostMessage(ctx, blocks, postTimeout); err != nil {
			logger.Warn("failed to post Slack notification", "error", err, "event_code", event.EventCode)
		}
	}
}
