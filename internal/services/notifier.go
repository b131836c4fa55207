package services

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"eventease/utils"
)

// Notifier pushes per-user events (booking created, payment confirmed,
// reservation expired) over PubNub. Publishes are best effort and go through
// a circuit breaker so a broker outage cannot slow the booking path down.
type Notifier struct {
	pn      *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		pn:      pn,
		breaker: utils.NewCircuitBreaker("pubnub-publish"),
	}
}

func (n *Notifier) NotifyUser(userID string, message map[string]any) {
	if n == nil || n.pn == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", userID)
	err := n.breaker.Execute(func() error {
		_, _, err := n.pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	})
	if err != nil {
		slog.Warn("user notification dropped", "channel", channel, "error", err)
	}
}
