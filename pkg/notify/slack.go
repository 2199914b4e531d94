package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
)

// SlackSink posts Notifications to a single Slack channel. It is a thin
// wrapper around the slack-go SDK, same shape as the client this runtime
// was adapted from: one channel, one token, Block Kit messages.
type SlackSink struct {
	api       *goslack.Client
	channelID string
	timeout   time.Duration
}

// NewSlackSink creates a Sink posting to channelID using token.
func NewSlackSink(token, channelID string) *SlackSink {
	return &SlackSink{
		api:       goslack.New(token),
		channelID: channelID,
		timeout:   5 * time.Second,
	}
}

// NewSlackSinkWithAPIURL targets a custom API URL, for testing against a
// mock server.
func NewSlackSinkWithAPIURL(token, channelID, apiURL string) *SlackSink {
	return &SlackSink{
		api:       goslack.New(token, goslack.OptionAPIURL(apiURL)),
		channelID: channelID,
		timeout:   5 * time.Second,
	}
}

// Notify posts n to the configured channel as a single Block Kit message.
func (s *SlackSink) Notify(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	blocks := buildBlocks(n)
	_, _, err := s.api.PostMessageContext(ctx, s.channelID, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return nil
}

func buildBlocks(n Notification) []goslack.Block {
	var sb strings.Builder
	sb.WriteString("*" + n.Title + "*")
	if n.Body != "" {
		sb.WriteString("\n" + n.Body)
	}
	if len(n.Fields) > 0 {
		keys := make([]string, 0, len(n.Fields))
		for k := range n.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("\n*%s:* %s", k, n.Fields[k]))
		}
	}

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, sb.String(), false, false),
			nil, nil,
		),
	}
}
