package domain

import (
	"testing"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/testutil"
	"github.com/boxraffle/backend/pkg/xcontext"

	"github.com/stretchr/testify/require"
)

func Test_RefundIssuer_scopeBuckets(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	spendRecordRepo := repository.NewSpendRecordRepository()
	ledger := NewCreditLedger(repository.NewCreditGrantRepository())
	issuer := NewRefundIssuer(repository.NewRaffleRepository(), spendRecordRepo, ledger)

	raffle := insertRaffleWithStatus(t, ctx, entity.RaffleCancelled)

	// One purchase paid from a scoped grant and a general one.
	require.NoError(t, spendRecordRepo.Create(ctx, &entity.SpendRecord{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		UserID:        "user2",
		RaffleID:      raffle.ID,
		TotalAmount:   30,
		Items: entity.Array[entity.SpendItem]{
			{GrantID: "g1", Amount: 20, Scope: "item1"},
			{GrantID: "g2", Amount: 10, Scope: ""},
		},
	}))

	require.NoError(t, issuer.Refund(ctx, raffle))

	var grants []entity.CreditGrant
	tx := xcontext.DB(ctx).Where("user_id=?", "user2").Find(&grants)
	require.NoError(t, tx.Error)
	require.Len(t, grants, 2)

	amountByScope := map[string]int64{}
	for _, grant := range grants {
		require.Equal(t, entity.CreditSourceRefund, grant.Source)
		require.False(t, grant.Consumed)
		require.False(t, grant.ExpiresAt.Valid)
		amountByScope[grant.Scope()] = grant.Amount
	}

	require.Equal(t, int64(20), amountByScope["item1"])
	require.Equal(t, int64(10), amountByScope[""])
}

func Test_RefundIssuer_idempotent(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	spendRecordRepo := repository.NewSpendRecordRepository()
	ledger := NewCreditLedger(repository.NewCreditGrantRepository())
	issuer := NewRefundIssuer(repository.NewRaffleRepository(), spendRecordRepo, ledger)

	raffle := insertRaffleWithStatus(t, ctx, entity.RaffleCancelled)
	require.NoError(t, spendRecordRepo.Create(ctx, &entity.SpendRecord{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		UserID:        "user2",
		RaffleID:      raffle.ID,
		TotalAmount:   10,
		Items: entity.Array[entity.SpendItem]{
			{GrantID: "g1", Amount: 10, Scope: ""},
		},
	}))

	require.NoError(t, issuer.Refund(ctx, raffle))

	err := issuer.Refund(ctx, raffle)
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, uint64(errorx.RefundAlreadyIssued), errx.Code)

	// Still a single refund grant.
	balance, err := ledger.Balance(ctx, "user2", "")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)
}

func Test_RefundIssuer_requiresCancelledRaffle(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	ledger := NewCreditLedger(repository.NewCreditGrantRepository())
	issuer := NewRefundIssuer(
		repository.NewRaffleRepository(), repository.NewSpendRecordRepository(), ledger)

	raffle := insertRaffleWithStatus(t, ctx, entity.RaffleOpen)

	err := issuer.Refund(ctx, raffle)
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, uint64(errorx.RefundAlreadyIssued), errx.Code)
}
