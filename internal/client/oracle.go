package client

import (
	"context"
	"encoding/json"

	"github.com/boxraffle/backend/internal/model"
	"github.com/boxraffle/backend/pkg/pubsub"
	"github.com/boxraffle/backend/pkg/xcontext"
)

// kafkaOracle forwards randomness requests to the oracle service over its
// request topic. Outputs come back on the fulfillment topic, keyed by the
// correlation id.
type kafkaOracle struct {
	publisher pubsub.Publisher
}

func NewKafkaOracle(publisher pubsub.Publisher) *kafkaOracle {
	return &kafkaOracle{publisher: publisher}
}

func (o *kafkaOracle) Request(ctx context.Context, correlationID, raffleID string) error {
	b, err := json.Marshal(model.OracleRequestEvent{
		CorrelationID: correlationID,
		RaffleID:      raffleID,
	})
	if err != nil {
		return err
	}

	topic := xcontext.Configs(ctx).Oracle.RequestTopic
	return o.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(raffleID), Msg: b})
}
