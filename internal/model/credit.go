package model

import "time"

// DepositRequest arrives from the payment collaborator after an external
// checkout completed. The amount is trusted as already-verified money-in.
type DepositRequest struct {
	UserID    string     `json:"user_id"`
	Amount    int64      `json:"amount"`
	ItemID    string     `json:"item_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type DepositResponse struct {
	Grant CreditGrant `json:"grant"`
}

type GetBalanceRequest struct {
	ItemID string `json:"item_id"`
}

type GetBalanceResponse struct {
	Balance int64 `json:"balance"`
}

type GetMyGrantsRequest struct{}

type GetMyGrantsResponse struct {
	Grants []CreditGrant `json:"grants"`
}
