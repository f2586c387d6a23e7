package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
)

// SlackClient is the subset of *slack.Client this package calls, narrowed
// so tests can substitute a fake instead of hitting the Slack API.
type SlackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts an interactive Block Kit message with Approve/Edit/
// Reject buttons whenever R5 needs a human in the loop. Nothing in this
// repository receives the button callbacks: cmd/robobrain has no Slack
// interactivity endpoint, and a session resumes only through its HTTP
// approval route or the CLI's /approve and /reject commands.
type SlackNotifier struct {
	Client  SlackClient
	Channel string
}

// NewSlackNotifier builds a notifier from a bot token and target channel.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{Client: slack.New(token), Channel: channel}
}

func (n *SlackNotifier) NotifyApprovalRequired(ctx context.Context, sessionID string, payload map[string]interface{}) error {
	skill, _ := payload["skill"].(string)
	reason, _ := payload["reason"].(string)

	header := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(
			":robot_face: *Approval needed* for session `%s`\n*Skill:* %s\n*Reason:* %s",
			sessionID, orDefault(skill, "unknown"), orDefault(reason, "high-risk operation"),
		), false, false),
		nil, nil,
	)

	actions := slack.NewActionBlock("approval_"+sessionID,
		slack.NewButtonBlockElement("approve", sessionID, slack.NewTextBlockObject(slack.PlainTextType, "Approve", true, false)).WithStyle(slack.StylePrimary),
		slack.NewButtonBlockElement("edit", sessionID, slack.NewTextBlockObject(slack.PlainTextType, "Edit", true, false)),
		slack.NewButtonBlockElement("reject", sessionID, slack.NewTextBlockObject(slack.PlainTextType, "Reject", true, false)).WithStyle(slack.StyleDanger),
	)

	_, _, err := n.Client.PostMessageContext(ctx, n.Channel, slack.MsgOptionBlocks(header, actions))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeNetwork, "failed to post slack approval message")
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
