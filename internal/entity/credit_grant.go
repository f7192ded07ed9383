package entity

import (
	"database/sql"

	"github.com/boxraffle/backend/pkg/enum"
)

type CreditSource string

var (
	CreditSourceDeposit = enum.New(CreditSource("deposit"))
	CreditSourceRebate  = enum.New(CreditSource("rebate"))
	CreditSourceRefund  = enum.New(CreditSource("refund"))
	CreditSourceBonus   = enum.New(CreditSource("bonus"))
)

// CreditGrant is one unit of spendable balance. Grants are never deleted:
// spending marks them consumed, a partial spend splits off a remainder
// grant, and the full history forms the audit trail.
type CreditGrant struct {
	Base

	UserID string `gorm:"index"`
	User   User   `gorm:"foreignKey:UserID"`

	Amount int64
	Source CreditSource

	// ItemID restricts the grant to raffles of one item. Invalid (NULL)
	// means the grant is general-purpose.
	ItemID sql.NullString

	ExpiresAt sql.NullTime
	Consumed  bool
}

// Scope returns the item id the grant is restricted to, or an empty string
// for general grants.
func (g CreditGrant) Scope() string {
	if g.ItemID.Valid {
		return g.ItemID.String
	}

	return ""
}
