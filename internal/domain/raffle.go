package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/model"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/pubsub"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/boxraffle/backend/pkg/xredis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RaffleDomain interface {
	Create(context.Context, *model.CreateRaffleRequest) (*model.CreateRaffleResponse, error)
	Get(context.Context, *model.GetRaffleRequest) (*model.GetRaffleResponse, error)
	PurchaseBoxes(context.Context, *model.PurchaseBoxesRequest) (*model.PurchaseBoxesResponse, error)
	Cancel(context.Context, *model.CancelRaffleRequest) (*model.CancelRaffleResponse, error)
}

type raffleDomain struct {
	raffleRepo      repository.RaffleRepository
	boxPurchaseRepo repository.BoxPurchaseRepository
	spendRecordRepo repository.SpendRecordRepository
	randomnessRepo  repository.RandomnessRepository
	itemRepo        repository.ItemRepository
	ledger          *CreditLedger
	stateMachine    *RaffleStateMachine
	refundIssuer    *RefundIssuer
	redisClient     xredis.Client
	publisher       pubsub.Publisher
}

func NewRaffleDomain(
	raffleRepo repository.RaffleRepository,
	boxPurchaseRepo repository.BoxPurchaseRepository,
	spendRecordRepo repository.SpendRecordRepository,
	randomnessRepo repository.RandomnessRepository,
	itemRepo repository.ItemRepository,
	ledger *CreditLedger,
	stateMachine *RaffleStateMachine,
	refundIssuer *RefundIssuer,
	redisClient xredis.Client,
	publisher pubsub.Publisher,
) *raffleDomain {
	return &raffleDomain{
		raffleRepo:      raffleRepo,
		boxPurchaseRepo: boxPurchaseRepo,
		spendRecordRepo: spendRecordRepo,
		randomnessRepo:  randomnessRepo,
		itemRepo:        itemRepo,
		ledger:          ledger,
		stateMachine:    stateMachine,
		refundIssuer:    refundIssuer,
		redisClient:     redisClient,
		publisher:       publisher,
	}
}

func keyOfRaffleGrid(raffleID string) string {
	return fmt.Sprintf("raffle_grid:%s", raffleID)
}

func (d *raffleDomain) Create(
	ctx context.Context, req *model.CreateRaffleRequest,
) (*model.CreateRaffleResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Require authentication")
	}

	if req.TotalBoxes <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Total boxes must be a positive number")
	}

	if req.BoxPrice <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Box price must be a positive number")
	}

	if req.TotalWinners <= 0 || req.TotalWinners > req.TotalBoxes {
		return nil, errorx.New(errorx.BadRequest,
			"Total winners must be between 1 and %d", req.TotalBoxes)
	}

	if req.GridRows <= 0 || req.GridCols <= 0 || req.GridRows*req.GridCols < req.TotalBoxes {
		return nil, errorx.New(errorx.BadRequest,
			"Grid of %dx%d cannot hold %d boxes", req.GridRows, req.GridCols, req.TotalBoxes)
	}

	if _, err := d.itemRepo.GetByID(ctx, req.ItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found item")
		}

		xcontext.Logger(ctx).Errorf("Cannot get item: %v", err)
		return nil, errorx.Unknown
	}

	raffle := &entity.Raffle{
		Base:         entity.Base{ID: uuid.NewString()},
		ItemID:       req.ItemID,
		CreatedBy:    userID,
		TotalBoxes:   req.TotalBoxes,
		BoxPrice:     req.BoxPrice,
		TotalWinners: req.TotalWinners,
		GridRows:     req.GridRows,
		GridCols:     req.GridCols,
		Status:       entity.RaffleOpen,
		StartedAt:    time.Now(),
	}

	if err := d.raffleRepo.Create(ctx, raffle); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateRaffleResponse{Raffle: convertRaffle(raffle, nil)}, nil
}

func (d *raffleDomain) Get(
	ctx context.Context, req *model.GetRaffleRequest,
) (*model.GetRaffleResponse, error) {
	var cached model.Raffle
	err := d.redisClient.GetObj(ctx, keyOfRaffleGrid(req.RaffleID), &cached)
	if err == nil {
		return &model.GetRaffleResponse{Raffle: cached}, nil
	}

	if !xredis.IsNil(err) {
		xcontext.Logger(ctx).Warnf("Cannot get raffle grid cache: %v", err)
	}

	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	purchases, err := d.boxPurchaseRepo.GetByRaffleID(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get box purchases: %v", err)
		return nil, errorx.Unknown
	}

	ownerByBox := map[int]string{}
	for _, p := range purchases {
		ownerByBox[p.BoxNumber] = p.UserID
	}

	boxes := make([]model.Box, 0, raffle.TotalBoxes)
	for number := 1; number <= raffle.TotalBoxes; number++ {
		boxes = append(boxes, model.Box{Number: number, OwnerID: ownerByBox[number]})
	}

	result := convertRaffle(raffle, boxes)
	ttl := xcontext.Configs(ctx).Raffle.GridCacheTTL
	if err := d.redisClient.SetObj(ctx, keyOfRaffleGrid(raffle.ID), result, ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot set raffle grid cache: %v", err)
	}

	return &model.GetRaffleResponse{Raffle: result}, nil
}

// isRetryablePurchaseError reports whether the failed purchase attempt lost a
// transient race and should be re-run against fresh state.
func isRetryablePurchaseError(err error) bool {
	return errors.Is(err, errGrantConflict) || repository.IsWriteConflictError(err)
}

func (d *raffleDomain) PurchaseBoxes(
	ctx context.Context, req *model.PurchaseBoxesRequest,
) (*model.PurchaseBoxesResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Require authentication")
	}

	if len(req.BoxNumbers) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Require at least one box")
	}

	raffleCfg := xcontext.Configs(ctx).Raffle
	if len(req.BoxNumbers) > raffleCfg.MaxBatchSize {
		return nil, errorx.New(errorx.BadRequest,
			"Cannot purchase more than %d boxes at once", raffleCfg.MaxBatchSize)
	}

	seen := map[int]bool{}
	for _, number := range req.BoxNumbers {
		if seen[number] {
			return nil, errorx.New(errorx.BadRequest, "Duplicated box number %d", number)
		}
		seen[number] = true
	}

	// Transient losses (deadlocks, a grant consumed under us) re-run the whole
	// attempt against fresh state. Deterministic failures and the retry cap
	// surface to the caller immediately.
	for i := 0; i < raffleCfg.MaxPurchaseRetry; i++ {
		resp, err := d.purchaseOnce(ctx, userID, req)
		if err == nil {
			return resp, nil
		}

		if !isRetryablePurchaseError(err) {
			return nil, err
		}

		xcontext.Logger(ctx).Debugf("Retry purchase of raffle %s: %v", req.RaffleID, err)
	}

	return nil, errorx.New(errorx.Contention,
		"Too much contention on raffle %s, please try again", req.RaffleID)
}

func (d *raffleDomain) purchaseOnce(
	ctx context.Context, userID string, req *model.PurchaseBoxesRequest,
) (*model.PurchaseBoxesResponse, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	if raffle.Status != entity.RaffleOpen {
		return nil, errorx.New(errorx.RaffleNotOpen, "Raffle is %s", raffle.Status)
	}

	for _, number := range req.BoxNumbers {
		if number < 1 || number > raffle.TotalBoxes {
			return nil, errorx.New(errorx.BadRequest,
				"Box number %d is out of range 1..%d", number, raffle.TotalBoxes)
		}
	}

	// The spend record id is generated up front so every box row of the batch
	// can point at it before the record itself is written.
	recordID := xcontext.SnowFlake(ctx).Generate().Int64()

	purchases := []entity.BoxPurchase{}
	for _, number := range req.BoxNumbers {
		purchase := entity.BoxPurchase{
			SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
			RaffleID:      raffle.ID,
			BoxNumber:     number,
			UserID:        userID,
			PricePaid:     raffle.BoxPrice,
			SpendRecordID: recordID,
		}

		if err := d.boxPurchaseRepo.Create(ctx, &purchase); err != nil {
			// The unique index on (raffle_id, box_number) is the arbiter: the
			// first insert to commit owns the box, everyone else fails here.
			if repository.IsDuplicateKeyError(err) {
				return nil, errorx.New(errorx.BoxAlreadySold,
					"Box %d was already sold", number)
			}

			if repository.IsWriteConflictError(err) {
				return nil, err
			}

			xcontext.Logger(ctx).Errorf("Cannot create box purchase: %v", err)
			return nil, errorx.Unknown
		}

		purchases = append(purchases, purchase)
	}

	totalPrice := raffle.BoxPrice * int64(len(req.BoxNumbers))
	spendItems, err := d.ledger.Debit(ctx, userID, totalPrice, raffle.ItemID)
	if err != nil {
		return nil, err
	}

	record := &entity.SpendRecord{
		SnowFlakeBase: entity.SnowFlakeBase{ID: recordID},
		UserID:        userID,
		RaffleID:      raffle.ID,
		TotalAmount:   totalPrice,
		Items:         spendItems,
	}

	if err := d.spendRecordRepo.Create(ctx, record); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create spend record: %v", err)
		return nil, errorx.Unknown
	}

	// The count after the increment comes from the repository, not from the
	// raffle snapshot read at the start of the transaction: a disjoint batch
	// committed since that read is invisible to the snapshot, and the buyer
	// of the last box must see the true count to flip the raffle to full.
	soldBoxes, err := d.raffleRepo.IncreaseSoldBoxes(ctx, raffle.ID, len(req.BoxNumbers))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The raffle left the open status after our read.
			return nil, errorx.New(errorx.RaffleNotOpen, "Raffle is no longer open")
		}

		xcontext.Logger(ctx).Errorf("Cannot increase sold boxes: %v", err)
		return nil, errorx.Unknown
	}

	becameFull := soldBoxes == raffle.TotalBoxes
	if becameFull {
		// The buyer of the last box flips the raffle to full inside the same
		// transaction, so the raffle can never be observed both open and sold
		// out. The guarded transition makes the flip happen exactly once.
		if err := d.stateMachine.Transition(ctx, raffle, entity.RaffleFull); err != nil {
			return nil, err
		}
	}

	ctx = xcontext.WithCommitDBTransaction(ctx)

	d.invalidateGridCache(ctx, raffle.ID)
	publishEvent(ctx, d.publisher, raffle.ID, model.BoxesPurchasedEvent{
		RaffleID:   raffle.ID,
		UserID:     userID,
		BoxNumbers: req.BoxNumbers,
		SoldBoxes:  soldBoxes,
	})

	if becameFull {
		publishEvent(ctx, d.publisher, raffle.ID, model.RaffleFullEvent{RaffleID: raffle.ID})
	}

	clientPurchases := []model.BoxPurchase{}
	for i := range purchases {
		clientPurchases = append(clientPurchases, convertBoxPurchase(&purchases[i]))
	}

	return &model.PurchaseBoxesResponse{Purchases: clientPurchases, SoldBoxes: soldBoxes}, nil
}

func (d *raffleDomain) Cancel(
	ctx context.Context, req *model.CancelRaffleRequest,
) (*model.CancelRaffleResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Require authentication")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	if raffle.CreatedBy != userID {
		return nil, errorx.New(errorx.PermissionDenied,
			"Only the creator can cancel the raffle")
	}

	if raffle.Status.IsTerminal() {
		return nil, errorx.New(errorx.RaffleTerminal, "Raffle is already %s", raffle.Status)
	}

	if raffle.Status == entity.RaffleDrawing {
		// A raffle stuck in drawing can only be cancelled after the oracle
		// gave up for good. Anything else must wait for the fulfillment or
		// the timeout rollback.
		request, err := d.randomnessRepo.GetLatestByRaffleID(ctx, raffle.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get randomness request: %v", err)
			return nil, errorx.Unknown
		}

		if !request.Abandoned {
			return nil, errorx.New(errorx.OracleTimeout,
				"The drawing is still waiting for the oracle")
		}

		if err := d.stateMachine.Transition(ctx, raffle, entity.RaffleFull); err != nil {
			return nil, err
		}
	}

	if err := d.stateMachine.Transition(ctx, raffle, entity.RaffleCancelled); err != nil {
		return nil, err
	}

	if err := d.refundIssuer.Refund(ctx, raffle); err != nil {
		return nil, err
	}

	ctx = xcontext.WithCommitDBTransaction(ctx)

	d.invalidateGridCache(ctx, raffle.ID)
	publishEvent(ctx, d.publisher, raffle.ID, model.RaffleCancelledEvent{RaffleID: raffle.ID})

	return &model.CancelRaffleResponse{}, nil
}

func (d *raffleDomain) invalidateGridCache(ctx context.Context, raffleID string) {
	if err := d.redisClient.Del(ctx, keyOfRaffleGrid(raffleID)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate raffle grid cache: %v", err)
	}
}
