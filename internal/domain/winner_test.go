package domain

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/model"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/crypto"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/testutil"
	"github.com/boxraffle/backend/pkg/xcontext"

	"github.com/stretchr/testify/require"
)

func Test_DeriveWinningBoxes(t *testing.T) {
	seed := crypto.RandBytes(32)
	sold := []int{1, 2, 3, 4, 5, 6, 7, 8}

	winners := DeriveWinningBoxes(seed, sold, 3)
	require.Len(t, winners, 3)

	// Distinct and drawn from the sold boxes.
	seen := map[int]bool{}
	for _, box := range winners {
		require.False(t, seen[box])
		require.Contains(t, sold, box)
		seen[box] = true
	}

	// Fully determined by the seed.
	require.Equal(t, winners, DeriveWinningBoxes(seed, sold, 3))

	// Independent of the input order of the sold boxes.
	shuffled := []int{5, 1, 8, 3, 7, 2, 6, 4}
	require.Equal(t, winners, DeriveWinningBoxes(seed, shuffled, 3))
}

func Test_DeriveWinningBoxes_allBoxes(t *testing.T) {
	seed := []byte("seed")
	sold := []int{4, 9, 2}

	winners := DeriveWinningBoxes(seed, sold, 3)
	require.Equal(t, []int{2, 4, 9}, winners)
}

func newTestWinnerEngine(publisher *testutil.MockPublisher, oracle *testutil.MockOracle) *WinnerEngine {
	raffleRepo := repository.NewRaffleRepository()
	return NewWinnerEngine(
		raffleRepo,
		repository.NewBoxPurchaseRepository(),
		repository.NewRandomnessRepository(),
		repository.NewCheckpointRepository(),
		NewRaffleStateMachine(raffleRepo),
		oracle,
		&testutil.MockRedisClient{},
		publisher,
	)
}

// fullTestRaffle creates a raffle and buys every box so the raffle sits in
// the full status.
func fullTestRaffle(t *testing.T, ctx context.Context, deps *raffleTestDeps, totalBoxes int) string {
	raffleID := createTestRaffle(t, ctx, deps, totalBoxes)

	_, err := deps.ledger.Credit(ctx, "user1", 1000, entity.CreditSourceDeposit, "", nil)
	require.NoError(t, err)

	boxes := []int{}
	for i := 1; i <= totalBoxes; i++ {
		boxes = append(boxes, i)
	}

	_, err = deps.raffleDomain.PurchaseBoxes(ctx, &model.PurchaseBoxesRequest{
		RaffleID:   raffleID,
		BoxNumbers: boxes,
	})
	require.NoError(t, err)

	return raffleID
}

func Test_WinnerEngine_Tick_beginsDrawing(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	testutil.CreateFixtureDb(ctx)
	deps := newRaffleTestDeps()
	raffleID := fullTestRaffle(t, ctx, deps, 3)

	oracle := &testutil.MockOracle{}
	engine := newTestWinnerEngine(&testutil.MockPublisher{}, oracle)
	engine.Tick(ctx)

	raffle, err := deps.raffleRepo.GetByID(ctx, raffleID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleDrawing, raffle.Status)

	require.Len(t, oracle.Requests, 1)
	require.Equal(t, raffleID, oracle.Requests[0].RaffleID)

	var request entity.RandomnessRequest
	tx := xcontext.DB(ctx).Take(&request, "raffle_id=?", raffleID)
	require.NoError(t, tx.Error)
	require.Equal(t, oracle.Requests[0].CorrelationID, request.ID)
	require.Equal(t, 1, request.Attempt)
	require.False(t, request.Fulfilled)

	// Another tick does not request again while the drawing is pending.
	engine.Tick(ctx)
	require.Len(t, oracle.Requests, 1)

	// Neither can the creator cancel under a pending drawing.
	_, err = deps.raffleDomain.Cancel(ctx, &model.CancelRaffleRequest{RaffleID: raffleID})
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, uint64(errorx.OracleTimeout), errx.Code)
}

func Test_WinnerEngine_Fulfill(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	testutil.CreateFixtureDb(ctx)
	deps := newRaffleTestDeps()
	raffleID := fullTestRaffle(t, ctx, deps, 4)

	oracle := &testutil.MockOracle{}
	publisher := &testutil.MockPublisher{}
	engine := newTestWinnerEngine(publisher, oracle)
	engine.Tick(ctx)
	require.Len(t, oracle.Requests, 1)

	event := &model.OracleFulfillmentEvent{
		CorrelationID: oracle.Requests[0].CorrelationID,
		RandomValue:   hex.EncodeToString(crypto.RandBytes(32)),
		Sequence:      1,
	}
	require.NoError(t, engine.Fulfill(ctx, event))

	raffle, err := deps.raffleRepo.GetByID(ctx, raffleID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleCompleted, raffle.Status)
	require.Len(t, raffle.WinnerOwnerIDs, 1)
	require.Equal(t, "user1", raffle.WinnerOwnerIDs[0])
	require.True(t, raffle.CompletedAt.Valid)

	require.Len(t, publisher.Published, 1)

	checkpointRepo := repository.NewCheckpointRepository()
	checkpoint, err := checkpointRepo.Get(ctx, WinnerCheckpointName)
	require.NoError(t, err)
	require.Equal(t, int64(1), checkpoint.Position)

	// A redelivered fulfillment is a no-op.
	require.NoError(t, engine.Fulfill(ctx, event))
	require.Len(t, publisher.Published, 1)
}

func Test_WinnerEngine_timeoutRollsBackForAnotherAttempt(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	testutil.CreateFixtureDb(ctx)
	deps := newRaffleTestDeps()
	raffleID := fullTestRaffle(t, ctx, deps, 2)

	oracle := &testutil.MockOracle{}
	engine := newTestWinnerEngine(&testutil.MockPublisher{}, oracle)
	engine.Tick(ctx)
	require.Len(t, oracle.Requests, 1)

	// Age the request past the oracle timeout.
	tx := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
		Where("raffle_id=?", raffleID).
		Update("requested_at", time.Now().Add(-time.Hour))
	require.NoError(t, tx.Error)

	engine.Tick(ctx)

	raffle, err := deps.raffleRepo.GetByID(ctx, raffleID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleDrawing, raffle.Status)

	// The expired request was abandoned and the raffle went through full to a
	// second attempt.
	require.Len(t, oracle.Requests, 2)

	var requests []entity.RandomnessRequest
	tx = xcontext.DB(ctx).Where("raffle_id=?", raffleID).Order("attempt ASC").Find(&requests)
	require.NoError(t, tx.Error)
	require.Len(t, requests, 2)
	require.True(t, requests[0].Abandoned)
	require.False(t, requests[1].Abandoned)
	require.Equal(t, 2, requests[1].Attempt)
}

func Test_WinnerEngine_attemptCapParksRaffle(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	testutil.CreateFixtureDb(ctx)
	deps := newRaffleTestDeps()
	raffleID := fullTestRaffle(t, ctx, deps, 2)

	oracle := &testutil.MockOracle{}
	engine := newTestWinnerEngine(&testutil.MockPublisher{}, oracle)

	// Burn through every attempt.
	maxAttempts := xcontext.Configs(ctx).Oracle.MaxAttempts
	for i := 0; i < maxAttempts; i++ {
		engine.Tick(ctx)
		tx := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
			Where("raffle_id=?", raffleID).
			Update("requested_at", time.Now().Add(-time.Hour))
		require.NoError(t, tx.Error)
		engine.Tick(ctx)
	}

	require.Len(t, oracle.Requests, maxAttempts)

	raffle, err := deps.raffleRepo.GetByID(ctx, raffleID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleDrawing, raffle.Status)

	randomnessRepo := repository.NewRandomnessRepository()
	latest, err := randomnessRepo.GetLatestByRaffleID(ctx, raffleID)
	require.NoError(t, err)
	require.True(t, latest.Abandoned)

	// A parked raffle can finally be cancelled by its creator, refunding the
	// buyers.
	_, err = deps.raffleDomain.Cancel(ctx, &model.CancelRaffleRequest{RaffleID: raffleID})
	require.NoError(t, err)

	raffle, err = deps.raffleRepo.GetByID(ctx, raffleID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleCancelled, raffle.Status)

	balance, err := deps.ledger.Balance(ctx, "user1", "")
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance)
}
