package model

type CreateRaffleRequest struct {
	ItemID       string `json:"item_id"`
	TotalBoxes   int    `json:"total_boxes"`
	BoxPrice     int64  `json:"box_price"`
	TotalWinners int    `json:"total_winners"`
	GridRows     int    `json:"grid_rows"`
	GridCols     int    `json:"grid_cols"`
}

type CreateRaffleResponse struct {
	Raffle Raffle `json:"raffle"`
}

type GetRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type GetRaffleResponse struct {
	Raffle Raffle `json:"raffle"`
}

type PurchaseBoxesRequest struct {
	RaffleID   string `json:"raffle_id"`
	BoxNumbers []int  `json:"box_numbers"`
}

type PurchaseBoxesResponse struct {
	Purchases []BoxPurchase `json:"purchases"`
	SoldBoxes int           `json:"sold_boxes"`
}

type CancelRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type CancelRaffleResponse struct{}
