package entity

import (
	"database/sql"
	"time"
)

// RandomnessRequest is one attempt to obtain a verifiable random value from
// the oracle for one raffle. The row id doubles as the correlation id on the
// oracle topics; fulfillment is idempotent on it.
type RandomnessRequest struct {
	Base

	RaffleID string `gorm:"uniqueIndex:idx_raffle_attempt"`
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	Attempt int `gorm:"uniqueIndex:idx_raffle_attempt"`

	RequestedAt time.Time
	Fulfilled   bool

	// RandomValue is the hex encoded oracle output, set on fulfillment.
	RandomValue string
	FulfilledAt sql.NullTime

	// Abandoned marks a request that timed out after the attempt cap was
	// reached. The raffle is then waiting for manual intervention.
	Abandoned bool
}
