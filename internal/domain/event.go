package domain

import (
	"context"
	"encoding/json"

	"github.com/boxraffle/backend/pkg/pubsub"
	"github.com/boxraffle/backend/pkg/xcontext"
)

// publishEvent pushes a lifecycle event to the fan-out topic. Delivery is
// best-effort: the core never blocks on it, never retries, and a failure is
// only logged.
func publishEvent(ctx context.Context, publisher pubsub.Publisher, key string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal event %T: %v", payload, err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.EventTopic
	err = publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: b})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish event %T: %v", payload, err)
	}
}
