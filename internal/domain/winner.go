package domain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/model"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/crypto"
	"github.com/boxraffle/backend/pkg/pubsub"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/boxraffle/backend/pkg/xredis"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// WinnerCheckpointName is the consumer checkpoint of the oracle fulfillment
// topic.
const WinnerCheckpointName = "winner_fulfillment"

// RandomnessOracle requests a verifiable random value for a raffle. The
// output arrives asynchronously on the fulfillment topic, correlated by the
// request id.
type RandomnessOracle interface {
	Request(ctx context.Context, correlationID, raffleID string) error
}

// WinnerEngine drives full raffles through the drawing. It polls for full
// raffles, requests randomness from the oracle, rolls back timed-out
// drawings for another attempt, and resolves winners when a fulfillment
// arrives.
type WinnerEngine struct {
	raffleRepo      repository.RaffleRepository
	boxPurchaseRepo repository.BoxPurchaseRepository
	randomnessRepo  repository.RandomnessRepository
	checkpointRepo  repository.CheckpointRepository
	stateMachine    *RaffleStateMachine
	oracle          RandomnessOracle
	redisClient     xredis.Client
	publisher       pubsub.Publisher
}

func NewWinnerEngine(
	raffleRepo repository.RaffleRepository,
	boxPurchaseRepo repository.BoxPurchaseRepository,
	randomnessRepo repository.RandomnessRepository,
	checkpointRepo repository.CheckpointRepository,
	stateMachine *RaffleStateMachine,
	oracle RandomnessOracle,
	redisClient xredis.Client,
	publisher pubsub.Publisher,
) *WinnerEngine {
	return &WinnerEngine{
		raffleRepo:      raffleRepo,
		boxPurchaseRepo: boxPurchaseRepo,
		randomnessRepo:  randomnessRepo,
		checkpointRepo:  checkpointRepo,
		stateMachine:    stateMachine,
		oracle:          oracle,
		redisClient:     redisClient,
		publisher:       publisher,
	}
}

// Start runs the polling loop until the context is cancelled.
func (e *WinnerEngine) Start(ctx context.Context) {
	ticker := time.NewTicker(xcontext.Configs(ctx).Oracle.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one round of the engine: new drawings for full raffles, then the
// timeout sweep over raffles already drawing.
func (e *WinnerEngine) Tick(ctx context.Context) {
	e.requestFullRaffles(ctx)
	e.expireRequests(ctx)
}

func (e *WinnerEngine) requestFullRaffles(ctx context.Context) {
	raffles, err := e.raffleRepo.GetByStatus(ctx, entity.RaffleFull)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get full raffles: %v", err)
		return
	}

	var g errgroup.Group
	for i := range raffles {
		raffle := raffles[i]
		g.Go(func() error {
			return e.beginDrawing(ctx, &raffle)
		})
	}

	if err := g.Wait(); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot begin drawing: %v", err)
	}
}

// beginDrawing records a randomness request and flips the raffle to drawing
// in one transaction. The oracle call happens strictly after the commit, so
// a fulfillment can never arrive for a request that was rolled back.
func (e *WinnerEngine) beginDrawing(ctx context.Context, raffle *entity.Raffle) error {
	attempts, err := e.randomnessRepo.CountByRaffleID(ctx, raffle.ID)
	if err != nil {
		return err
	}

	if attempts >= int64(xcontext.Configs(ctx).Oracle.MaxAttempts) {
		return nil
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	request := &entity.RandomnessRequest{
		Base:        entity.Base{ID: uuid.NewString()},
		RaffleID:    raffle.ID,
		Attempt:     int(attempts) + 1,
		RequestedAt: time.Now(),
	}

	if err := e.randomnessRepo.Create(ctx, request); err != nil {
		if repository.IsDuplicateKeyError(err) {
			// Another worker claimed this attempt first.
			return nil
		}

		return err
	}

	if err := e.stateMachine.Transition(ctx, raffle, entity.RaffleDrawing); err != nil {
		xcontext.Logger(ctx).Debugf("Lost the drawing transition of raffle %s: %v", raffle.ID, err)
		return nil
	}

	ctx = xcontext.WithCommitDBTransaction(ctx)

	if err := e.oracle.Request(ctx, request.ID, raffle.ID); err != nil {
		// The timeout sweep rolls the raffle back for another attempt.
		xcontext.Logger(ctx).Warnf("Cannot request randomness for raffle %s: %v", raffle.ID, err)
	}

	return nil
}

// expireRequests abandons randomness requests that stayed unfulfilled past
// the oracle timeout. Below the attempt cap the raffle rolls back to full so
// the next tick requests again; at the cap it stays parked in drawing until
// someone intervenes.
func (e *WinnerEngine) expireRequests(ctx context.Context) {
	raffles, err := e.raffleRepo.GetByStatus(ctx, entity.RaffleDrawing)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get drawing raffles: %v", err)
		return
	}

	oracleCfg := xcontext.Configs(ctx).Oracle
	for i := range raffles {
		raffle := raffles[i]
		request, err := e.randomnessRepo.GetLatestByRaffleID(ctx, raffle.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A drawing raffle without any request is inconsistent state,
				// roll it back so the drawing restarts cleanly.
				xcontext.Logger(ctx).Warnf(
					"Raffle %s is drawing without a randomness request", raffle.ID)
				if err := e.stateMachine.Transition(ctx, &raffle, entity.RaffleFull); err != nil {
					xcontext.Logger(ctx).Errorf("Cannot roll back raffle %s: %v", raffle.ID, err)
				}
			} else {
				xcontext.Logger(ctx).Errorf("Cannot get randomness request: %v", err)
			}

			continue
		}

		if request.Fulfilled || request.Abandoned {
			continue
		}

		if time.Since(request.RequestedAt) < oracleCfg.Timeout {
			continue
		}

		if err := e.expireRequest(ctx, &raffle, request); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot expire randomness request %s: %v", request.ID, err)
		}
	}
}

func (e *WinnerEngine) expireRequest(
	ctx context.Context, raffle *entity.Raffle, request *entity.RandomnessRequest,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := e.randomnessRepo.MarkAbandoned(ctx, request.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A fulfillment landed between our read and now.
			return nil
		}

		return err
	}

	if request.Attempt >= xcontext.Configs(ctx).Oracle.MaxAttempts {
		xcontext.Logger(ctx).Errorf(
			"Oracle gave up on raffle %s after %d attempts, manual intervention required",
			raffle.ID, request.Attempt)
	} else {
		if err := e.stateMachine.Transition(ctx, raffle, entity.RaffleFull); err != nil {
			return err
		}
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

// HandleFulfillment is the subscriber callback of the oracle fulfillment
// topic.
func (e *WinnerEngine) HandleFulfillment(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var event model.OracleFulfillmentEvent
	if err := json.Unmarshal(pack.Msg, &event); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal oracle fulfillment: %v", err)
		return
	}

	if err := e.Fulfill(ctx, &event); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot process oracle fulfillment %s: %v",
			event.CorrelationID, err)
	}
}

// Fulfill resolves the winners of the raffle the fulfillment correlates to.
// It is idempotent: redelivered or replayed fulfillments fall out on the
// checkpoint or on the guarded request update.
func (e *WinnerEngine) Fulfill(ctx context.Context, event *model.OracleFulfillmentEvent) error {
	checkpoint, err := e.checkpointRepo.Get(ctx, WinnerCheckpointName)
	if err != nil {
		return err
	}

	if event.Sequence > 0 && event.Sequence <= checkpoint.Position {
		// Already processed before the consumer restarted.
		return nil
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(event.RandomValue, "0x"))
	if err != nil || len(seed) == 0 {
		xcontext.Logger(ctx).Errorf("Invalid random value in fulfillment %s", event.CorrelationID)
		return e.advanceCheckpoint(ctx, checkpoint, event.Sequence)
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	request, err := e.randomnessRepo.GetByID(ctx, event.CorrelationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Warnf("Unknown fulfillment correlation id %s", event.CorrelationID)
			return e.skipFulfillment(ctx, checkpoint, event.Sequence)
		}

		return err
	}

	if request.Fulfilled || request.Abandoned {
		return e.skipFulfillment(ctx, checkpoint, event.Sequence)
	}

	if err := e.randomnessRepo.Fulfill(ctx, request.ID, event.RandomValue); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Another worker is fulfilling the same request.
			return nil
		}

		return err
	}

	raffle, err := e.raffleRepo.GetByID(ctx, request.RaffleID)
	if err != nil {
		return err
	}

	purchases, err := e.boxPurchaseRepo.GetByRaffleID(ctx, raffle.ID)
	if err != nil {
		return err
	}

	soldBoxes := make([]int, 0, len(purchases))
	ownerByBox := map[int]string{}
	for _, p := range purchases {
		soldBoxes = append(soldBoxes, p.BoxNumber)
		ownerByBox[p.BoxNumber] = p.UserID
	}

	winningBoxes := DeriveWinningBoxes(seed, soldBoxes, raffle.TotalWinners)
	ownerIDs := make([]string, 0, len(winningBoxes))
	for _, box := range winningBoxes {
		ownerIDs = append(ownerIDs, ownerByBox[box])
	}

	if err := e.stateMachine.CompleteWithWinners(ctx, raffle, ownerIDs); err != nil {
		return err
	}

	if err := e.advanceCheckpoint(ctx, checkpoint, event.Sequence); err != nil {
		return err
	}

	ctx = xcontext.WithCommitDBTransaction(ctx)

	if err := e.redisClient.Del(ctx, keyOfRaffleGrid(raffle.ID)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate raffle grid cache: %v", err)
	}

	publishEvent(ctx, e.publisher, raffle.ID, model.WinnerSelectedEvent{
		RaffleID:       raffle.ID,
		WinningBoxes:   winningBoxes,
		WinnerOwnerIDs: ownerIDs,
	})

	return nil
}

// skipFulfillment moves the checkpoint past a fulfillment that needs no
// processing, committing the open transaction so the advance sticks.
func (e *WinnerEngine) skipFulfillment(
	ctx context.Context, checkpoint *entity.Checkpoint, sequence int64,
) error {
	if err := e.advanceCheckpoint(ctx, checkpoint, sequence); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

func (e *WinnerEngine) advanceCheckpoint(
	ctx context.Context, checkpoint *entity.Checkpoint, sequence int64,
) error {
	if sequence <= checkpoint.Position {
		return nil
	}

	err := e.checkpointRepo.Advance(ctx, WinnerCheckpointName, checkpoint.Position, sequence)
	if errors.Is(err, repository.ErrStaleCheckpoint) {
		// Another worker advanced past us, its fulfillment already landed.
		xcontext.Logger(ctx).Debugf("Checkpoint %s advanced concurrently", WinnerCheckpointName)
		return nil
	}

	return err
}

// DeriveWinningBoxes selects n distinct winning boxes from the sold boxes,
// fully determined by the random seed. The seed is stretched with a counter
// into a stream of 256-bit words; each word picks one remaining box by
// modular reduction, with values past the largest unbiased multiple rejected
// so every box keeps an equal chance. The result is sorted ascending.
func DeriveWinningBoxes(seed []byte, soldBoxes []int, n int) []int {
	pool := append([]int{}, soldBoxes...)
	sort.Ints(pool)

	if n > len(pool) {
		n = len(pool)
	}

	winners := make([]int, 0, n)
	var counter uint64
	for len(winners) < n {
		size := big.NewInt(int64(len(pool)))
		limit := new(big.Int).Lsh(big.NewInt(1), 256)
		limit.Sub(limit, new(big.Int).Mod(limit, size))

		value := crypto.ExpandSeed(seed, counter)
		counter++

		if value.Cmp(limit) >= 0 {
			continue
		}

		index := int(new(big.Int).Mod(value, size).Int64())
		winners = append(winners, pool[index])
		pool = append(pool[:index], pool[index+1:]...)
	}

	sort.Ints(winners)
	return winners
}
