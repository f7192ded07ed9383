package entity

// BoxPurchase records the ownership of one box of one raffle. The composite
// unique index on (raffle_id, box_number) is the race arbiter for box
// allocation: exactly one owner per box, ever. Rows are immutable and never
// deleted, cancellation refunds money without erasing history.
type BoxPurchase struct {
	SnowFlakeBase

	RaffleID string `gorm:"uniqueIndex:idx_raffle_box"`
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	BoxNumber int `gorm:"uniqueIndex:idx_raffle_box"`

	UserID string `gorm:"index"`
	User   User   `gorm:"foreignKey:UserID"`

	PricePaid int64

	SpendRecordID int64
}
