package entity

import (
	"database/sql"
	"time"

	"github.com/boxraffle/backend/pkg/enum"
)

type RaffleStatus string

var (
	RaffleOpen      = enum.New(RaffleStatus("open"))
	RaffleFull      = enum.New(RaffleStatus("full"))
	RaffleDrawing   = enum.New(RaffleStatus("drawing"))
	RaffleCompleted = enum.New(RaffleStatus("completed"))
	RaffleCancelled = enum.New(RaffleStatus("cancelled"))
)

// IsTerminal reports whether no further transition is allowed from s.
func (s RaffleStatus) IsTerminal() bool {
	return s == RaffleCompleted || s == RaffleCancelled
}

type Raffle struct {
	Base

	ItemID string
	Item   Item `gorm:"foreignKey:ItemID"`

	CreatedBy string
	Creator   User `gorm:"foreignKey:CreatedBy"`

	TotalBoxes   int
	BoxPrice     int64
	SoldBoxes    int
	TotalWinners int
	GridRows     int
	GridCols     int

	Status RaffleStatus `gorm:"index"`

	// WinnerOwnerIDs is empty until the raffle completes, then holds exactly
	// TotalWinners entries.
	WinnerOwnerIDs Array[string]

	StartedAt   time.Time
	CompletedAt sql.NullTime
	CancelledAt sql.NullTime

	// RefundedAt is the cancellation-refund marker. Refund issuing is
	// idempotent on it.
	RefundedAt sql.NullTime
}
