// Package notify delivers redemption notifications after the redemption has
// been committed. Delivery is best effort: failures are logged and never reach
// the caller that triggered them.
package notify

import (
	"context"
)

// Kind identifies the template the delivery side renders.
type Kind string

const (
	// KindReferralRewardReady tells a referrer that a friend used their code.
	KindReferralRewardReady Kind = "referral_reward_ready"
	// KindSalonReferralUsed tells a partner salon that a client used its code.
	KindSalonReferralUsed Kind = "salon_referral_used"
)

// Message is a fully formed notification.
type Message struct {
	Kind Kind              `json:"kind"`
	To   string            `json:"to"`
	Vars map[string]string `json:"vars"`
}

// Notifier sends a single message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
