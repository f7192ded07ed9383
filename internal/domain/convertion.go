package domain

import (
	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/model"
)

func convertRaffle(raffle *entity.Raffle, boxes []model.Box) model.Raffle {
	result := model.Raffle{
		ID:             raffle.ID,
		ItemID:         raffle.ItemID,
		CreatedBy:      raffle.CreatedBy,
		TotalBoxes:     raffle.TotalBoxes,
		BoxPrice:       raffle.BoxPrice,
		SoldBoxes:      raffle.SoldBoxes,
		TotalWinners:   raffle.TotalWinners,
		GridRows:       raffle.GridRows,
		GridCols:       raffle.GridCols,
		Status:         string(raffle.Status),
		WinnerOwnerIDs: raffle.WinnerOwnerIDs,
		StartedAt:      raffle.StartedAt,
		Boxes:          boxes,
	}

	if raffle.CompletedAt.Valid {
		result.CompletedAt = &raffle.CompletedAt.Time
	}

	if raffle.CancelledAt.Valid {
		result.CancelledAt = &raffle.CancelledAt.Time
	}

	return result
}

func convertBoxPurchase(purchase *entity.BoxPurchase) model.BoxPurchase {
	return model.BoxPurchase{
		ID:        purchase.ID,
		RaffleID:  purchase.RaffleID,
		BoxNumber: purchase.BoxNumber,
		UserID:    purchase.UserID,
		PricePaid: purchase.PricePaid,
		CreatedAt: purchase.CreatedAt,
	}
}

func convertCreditGrant(grant *entity.CreditGrant) model.CreditGrant {
	result := model.CreditGrant{
		ID:        grant.ID,
		Amount:    grant.Amount,
		Source:    string(grant.Source),
		Consumed:  grant.Consumed,
		CreatedAt: grant.CreatedAt,
	}

	if grant.ItemID.Valid {
		result.ItemID = grant.ItemID.String
	}

	if grant.ExpiresAt.Valid {
		result.ExpiresAt = &grant.ExpiresAt.Time
	}

	return result
}
