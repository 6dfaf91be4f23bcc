// Package slack delivers the report to a Slack channel.
package slack

import (
	"context"
	"fmt"

	"critreport/internal/domain"

	"github.com/slack-go/slack"
)

const channelName = "slack"

// Poster is the part of *slack.Client the sender needs.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type Sender struct {
	API       Poster
	ChannelID string
}

// New builds a Sender backed by the Slack Web API.
func New(token, channelID string, options ...slack.Option) *Sender {
	return &Sender{API: slack.New(token, options...), ChannelID: channelID}
}

func (s *Sender) Name() string { return channelName }

func (s *Sender) Deliver(ctx context.Context, text string) error {
	if s.API == nil || s.ChannelID == "" {
		return &domain.DeliveryError{Channel: channelName, Err: fmt.Errorf("slack_bot_token and slack_channel_id are required")}
	}
	if _, _, err := s.API.PostMessageContext(ctx, s.ChannelID, slack.MsgOptionText(text, false)); err != nil {
		return &domain.DeliveryError{Channel: channelName, Err: err}
	}
	return nil
}
