// Package notify posts ops notifications to Slack. Notifications are
// best-effort: failures are logged and never propagate to the caller.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// Notifier posts messages to a single ops channel. A nil Notifier is valid
// and drops every message, so callers never need to gate on configuration.
type Notifier struct {
	client  *slack.Client
	channel string
}

// New creates a Notifier, or nil when no bot token is configured.
func New(botToken, channel string) *Notifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &Notifier{client: slack.New(botToken), channel: channel}
}

func (n *Notifier) post(text string) {
	if n == nil {
		return
	}
	if _, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("notify: post to %s: %v", n.channel, err)
	}
}

// AutomationCompleted reports the outcome of a dealer-outreach run.
func (n *Notifier) AutomationCompleted(briefID string, sent, failed int) {
	n.post(fmt.Sprintf("Outreach for brief %s finished: %d sent, %d failed", briefID, sent, failed))
}

// AutomationFailed reports a run that could not contact any dealers.
func (n *Notifier) AutomationFailed(briefID string, err error) {
	n.post(fmt.Sprintf("Outreach for brief %s failed: %v", briefID, err))
}

// QuoteReceived reports an inbound dealer quote awaiting ops review.
func (n *Notifier) QuoteReceived(briefID, dealerName string, otd int64) {
	if otd > 0 {
		n.post(fmt.Sprintf("Quote received on brief %s from %s: $%d OTD", briefID, dealerName, otd))
		return
	}
	n.post(fmt.Sprintf("Quote received on brief %s from %s (no price parsed)", briefID, dealerName))
}

// RoundAdvanced reports a negotiation round going out.
func (n *Notifier) RoundAdvanced(briefID, round string, dealers int) {
	n.post(fmt.Sprintf("Brief %s advanced to %s round, %d dealers messaged", briefID, round, dealers))
}
