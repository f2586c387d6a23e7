package notify_test

import (
	"context"
	"errors"

	"github.com/slack-go/slack"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/corvid-robotics/robobrain/pkg/notify"
)

type fakeSlackClient struct {
	channel string
	options []slack.MsgOption
	err     error
	calls   int
}

func (f *fakeSlackClient) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.calls++
	f.channel = channelID
	f.options = options
	return "C123", "1700000000.000100", f.err
}

var _ = Describe("SlackNotifier", func() {
	It("posts an interactive message to the configured channel", func() {
		fake := &fakeSlackClient{}
		n := &notify.SlackNotifier{Client: fake, Channel: "#robot-ops"}

		err := n.NotifyApprovalRequired(context.Background(), "sess-1", map[string]interface{}{
			"skill":  "manipulate",
			"reason": "high-risk operation",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.calls).To(Equal(1))
		Expect(fake.channel).To(Equal("#robot-ops"))
		Expect(fake.options).NotTo(BeEmpty())
	})

	It("wraps a post error", func() {
		fake := &fakeSlackClient{err: errors.New("rate limited")}
		n := &notify.SlackNotifier{Client: fake, Channel: "#robot-ops"}

		err := n.NotifyApprovalRequired(context.Background(), "sess-1", map[string]interface{}{})
		Expect(err).To(HaveOccurred())
	})

	It("falls back to default text when skill/reason are absent", func() {
		fake := &fakeSlackClient{}
		n := &notify.SlackNotifier{Client: fake, Channel: "#robot-ops"}

		err := n.NotifyApprovalRequired(context.Background(), "sess-1", nil)
		Expect(err).NotTo(HaveOccurred())
	})
})
