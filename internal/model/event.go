package model

// Lifecycle events published for fan-out to live clients. Delivery is
// best-effort, the core never blocks on it.

type BoxesPurchasedEvent struct {
	RaffleID   string `json:"raffle_id" mapstructure:"raffle_id"`
	UserID     string `json:"user_id" mapstructure:"user_id"`
	BoxNumbers []int  `json:"box_numbers" mapstructure:"box_numbers"`
	SoldBoxes  int    `json:"sold_boxes" mapstructure:"sold_boxes"`
}

type RaffleFullEvent struct {
	RaffleID string `json:"raffle_id" mapstructure:"raffle_id"`
}

type WinnerSelectedEvent struct {
	RaffleID       string   `json:"raffle_id" mapstructure:"raffle_id"`
	WinningBoxes   []int    `json:"winning_boxes" mapstructure:"winning_boxes"`
	WinnerOwnerIDs []string `json:"winner_owner_ids" mapstructure:"winner_owner_ids"`
}

type RaffleCancelledEvent struct {
	RaffleID string `json:"raffle_id" mapstructure:"raffle_id"`
}

// Oracle topics.

type OracleRequestEvent struct {
	CorrelationID string `json:"correlation_id" mapstructure:"correlation_id"`
	RaffleID      string `json:"raffle_id" mapstructure:"raffle_id"`
}

type OracleFulfillmentEvent struct {
	CorrelationID string `json:"correlation_id" mapstructure:"correlation_id"`

	// RandomValue is the hex encoded verifiable random output.
	RandomValue string `json:"random_value" mapstructure:"random_value"`

	// Sequence increases monotonically across fulfillments and drives the
	// consumer checkpoint.
	Sequence int64 `json:"sequence" mapstructure:"sequence"`
}
