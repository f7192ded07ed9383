package model

import "time"

type Raffle struct {
	ID           string `json:"id"`
	ItemID       string `json:"item_id"`
	CreatedBy    string `json:"created_by"`
	TotalBoxes   int    `json:"total_boxes"`
	BoxPrice     int64  `json:"box_price"`
	SoldBoxes    int    `json:"sold_boxes"`
	TotalWinners int    `json:"total_winners"`
	GridRows     int    `json:"grid_rows"`
	GridCols     int    `json:"grid_cols"`
	Status       string `json:"status"`

	WinnerOwnerIDs []string `json:"winner_owner_ids,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Boxes []Box `json:"boxes,omitempty"`
}

// Box is one cell of the raffle grid: unsold boxes have an empty owner.
type Box struct {
	Number  int    `json:"number"`
	OwnerID string `json:"owner_id,omitempty"`
}

type BoxPurchase struct {
	ID        int64     `json:"id"`
	RaffleID  string    `json:"raffle_id"`
	BoxNumber int       `json:"box_number"`
	UserID    string    `json:"user_id"`
	PricePaid int64     `json:"price_paid"`
	CreatedAt time.Time `json:"created_at"`
}

type CreditGrant struct {
	ID        string     `json:"id"`
	Amount    int64      `json:"amount"`
	Source    string     `json:"source"`
	ItemID    string     `json:"item_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Consumed  bool       `json:"consumed"`
	CreatedAt time.Time  `json:"created_at"`
}
