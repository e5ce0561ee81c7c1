package notifier

import (
	"context"
	"encoding/json"

	"gocloud.dev/pubsub"
	"golang.org/x/time/rate"

	apperrors "github.com/medvault/grants/internal/errors"
)

// PubSubNotifier publishes grant lifecycle events to a gocloud.dev pubsub
// topic. Publishing is throttled so a large expiry sweep cannot flood the
// downstream delivery channel.
type PubSubNotifier struct {
	topic   *pubsub.Topic
	limiter *rate.Limiter
}

// NewPubSubNotifier creates a new PubSubNotifier. ratePerSec and burst
// bound how fast events are published; zero values disable throttling.
func NewPubSubNotifier(topic *pubsub.Topic, ratePerSec float64, burst int) *PubSubNotifier {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	if burst <= 0 {
		burst = 1
	}
	return &PubSubNotifier{
		topic:   topic,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Notify publishes the event as a JSON message with the event type in the
// message metadata so subscribers can route without decoding the body.
func (n *PubSubNotifier) Notify(ctx context.Context, event Event) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return apperrors.Wrap(err, "failed to wait for notifier rate limit")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal notification event")
	}

	message := &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			"event_type": string(event.Type),
			"grant_id":   event.GrantID.String(),
		},
	}
	if err := n.topic.Send(ctx, message); err != nil {
		return apperrors.Wrap(err, "failed to publish notification event")
	}

	return nil
}
