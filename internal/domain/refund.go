package domain

import (
	"context"
	"errors"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// RefundIssuer returns spent credits to buyers after a cancellation. The
// refunded_at marker on the raffle makes issuing idempotent: the marker is
// claimed with a guarded update before any grant is created, so a raffle can
// be refunded at most once no matter how often Refund is called.
type RefundIssuer struct {
	raffleRepo      repository.RaffleRepository
	spendRecordRepo repository.SpendRecordRepository
	ledger          *CreditLedger
}

func NewRefundIssuer(
	raffleRepo repository.RaffleRepository,
	spendRecordRepo repository.SpendRecordRepository,
	ledger *CreditLedger,
) *RefundIssuer {
	return &RefundIssuer{
		raffleRepo:      raffleRepo,
		spendRecordRepo: spendRecordRepo,
		ledger:          ledger,
	}
}

// Refund issues one refund grant per spend-record scope bucket. It must run
// inside the cancellation transaction: the marker claim and the grants commit
// or roll back together.
func (issuer *RefundIssuer) Refund(ctx context.Context, raffle *entity.Raffle) error {
	if err := issuer.raffleRepo.MarkRefunded(ctx, raffle.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.RefundAlreadyIssued,
				"Raffle %s was already refunded", raffle.ID)
		}

		xcontext.Logger(ctx).Errorf("Cannot mark raffle as refunded: %v", err)
		return errorx.Unknown
	}

	records, err := issuer.spendRecordRepo.GetByRaffleID(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get spend records: %v", err)
		return errorx.Unknown
	}

	for _, record := range records {
		// The original grants stay consumed. Refunds are fresh grants, one per
		// scope the buyer paid from, so an item-restricted credit comes back
		// item-restricted and a general credit comes back general.
		scopeOrder := []string{}
		amountByScope := map[string]int64{}
		for _, item := range record.Items {
			if _, ok := amountByScope[item.Scope]; !ok {
				scopeOrder = append(scopeOrder, item.Scope)
			}

			amountByScope[item.Scope] += item.Amount
		}

		for _, scope := range scopeOrder {
			_, err := issuer.ledger.Credit(
				ctx, record.UserID, amountByScope[scope], entity.CreditSourceRefund, scope, nil)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
