// Package notify adds a best-effort secondary notification sink on top of
// the event bus: a Slack message per detected event. This is additive to
// spec.md — it is just another bus subscriber, subject to the same
// drop-on-full semantics as any other, and never affects pipeline timing.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// Client is a thin wrapper around the slack-go SDK's message-posting call.
type Client struct {
	api       *goslack.Client
	channelID string
}

// NewClient builds a Client posting to channelID with token.
func NewClient(token, channelID string) *Client {
	return &Client{api: goslack.New(token), channelID: channelID}
}

// PostMessage sends blocks to the configured channel within timeout.
func (c *Client) PostMessage(ctx context.Context, blocks []goslack.Block, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, _, err := c.api.PostMessageContext(ctx, c.channelID, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return nil
}

// logger is the package-level logger used by Notifier; kept as a var so
// tests can swap it if ever needed.
var logger = slog.Default().With("component", "notify")
