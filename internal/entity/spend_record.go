package entity

// SpendItem is the amount drawn from a single grant within one spend.
type SpendItem struct {
	GrantID string `json:"grant_id"`
	Amount  int64  `json:"amount"`

	// Scope is the item id the consumed grant was restricted to, empty for
	// general grants. Refunds are re-issued with the same scope.
	Scope string `json:"scope"`
}

// SpendRecord is the audit link between one purchase transaction and the
// credit grants consumed to pay for it. One record may cover several boxes.
type SpendRecord struct {
	SnowFlakeBase

	UserID string `gorm:"index"`
	User   User   `gorm:"foreignKey:UserID"`

	RaffleID string `gorm:"index"`
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	TotalAmount int64
	Items       Array[SpendItem]
}
