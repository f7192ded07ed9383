package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/model"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/google/uuid"
	mathutil "github.com/pkg/math"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// errGrantConflict signals that another debit consumed a grant we had
// selected. The caller retries the whole operation.
var errGrantConflict = errors.New("credit grant was consumed concurrently")

// CreditLedger owns a user's spendable balance. Grants are consumed with
// guarded updates, never deleted, so the full spend history stays auditable.
type CreditLedger struct {
	creditGrantRepo repository.CreditGrantRepository
}

func NewCreditLedger(creditGrantRepo repository.CreditGrantRepository) *CreditLedger {
	return &CreditLedger{creditGrantRepo: creditGrantRepo}
}

// orderGrants sorts grants into consumption order: grants restricted to the
// item being paid for come before general grants, and inside each group the
// nearest expiry goes first with never-expiring grants last. Ties fall back
// to creation order.
func orderGrants(grants []entity.CreditGrant, itemID string) []entity.CreditGrant {
	ordered := append([]entity.CreditGrant{}, grants...)
	slices.SortStableFunc(ordered, func(a, b entity.CreditGrant) bool {
		aScoped := a.Scope() == itemID && itemID != ""
		bScoped := b.Scope() == itemID && itemID != ""
		if aScoped != bScoped {
			return aScoped
		}

		if a.ExpiresAt.Valid != b.ExpiresAt.Valid {
			return a.ExpiresAt.Valid
		}

		if a.ExpiresAt.Valid && !a.ExpiresAt.Time.Equal(b.ExpiresAt.Time) {
			return a.ExpiresAt.Time.Before(b.ExpiresAt.Time)
		}

		return a.CreatedAt.Before(b.CreatedAt)
	})

	return ordered
}

// spendable reports whether the grant can still be paid with at the given
// instant. Expiry is observed here, at read time, not by a background sweep.
func spendable(grant entity.CreditGrant, now time.Time) bool {
	if grant.Consumed {
		return false
	}

	return !grant.ExpiresAt.Valid || grant.ExpiresAt.Time.After(now)
}

// Debit covers amount from the user's grants for the given item scope and
// returns the per-grant drawdown. Either the full amount is debited or
// nothing is: a shortfall fails with InsufficientCredits before any grant is
// touched, and a lost race on a grant aborts with errGrantConflict so the
// surrounding transaction rolls back.
func (l *CreditLedger) Debit(
	ctx context.Context, userID string, amount int64, itemID string,
) ([]entity.SpendItem, error) {
	if amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Debit amount must be a positive number")
	}

	grants, err := l.creditGrantRepo.GetSpendable(ctx, userID, itemID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get spendable grants: %v", err)
		return nil, errorx.Unknown
	}

	var total int64
	for _, g := range grants {
		total += g.Amount
	}

	if total < amount {
		return nil, errorx.New(errorx.InsufficientCredits,
			"Not enough credits, got %d, need %d", total, amount)
	}

	remaining := amount
	items := []entity.SpendItem{}
	for _, grant := range orderGrants(grants, itemID) {
		if remaining == 0 {
			break
		}

		draw := mathutil.MinInt64(remaining, grant.Amount)
		if err := l.creditGrantRepo.Consume(ctx, grant.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errGrantConflict
			}

			xcontext.Logger(ctx).Errorf("Cannot consume grant: %v", err)
			return nil, errorx.Unknown
		}

		if draw < grant.Amount {
			// Partial consumption splits off a remainder grant keeping the
			// source, scope, and expiry of the original.
			remainder := &entity.CreditGrant{
				Base:      entity.Base{ID: uuid.NewString()},
				UserID:    grant.UserID,
				Amount:    grant.Amount - draw,
				Source:    grant.Source,
				ItemID:    grant.ItemID,
				ExpiresAt: grant.ExpiresAt,
			}

			if err := l.creditGrantRepo.Create(ctx, remainder); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot create remainder grant: %v", err)
				return nil, errorx.Unknown
			}
		}

		items = append(items, entity.SpendItem{
			GrantID: grant.ID,
			Amount:  draw,
			Scope:   grant.Scope(),
		})
		remaining -= draw
	}

	return items, nil
}

// Credit issues a new grant. It always succeeds for a positive amount.
func (l *CreditLedger) Credit(
	ctx context.Context,
	userID string,
	amount int64,
	source entity.CreditSource,
	itemID string,
	expiresAt *time.Time,
) (*entity.CreditGrant, error) {
	if amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Credit amount must be a positive number")
	}

	grant := &entity.CreditGrant{
		Base:   entity.Base{ID: uuid.NewString()},
		UserID: userID,
		Amount: amount,
		Source: source,
	}

	if itemID != "" {
		grant.ItemID = sql.NullString{String: itemID, Valid: true}
	}

	if expiresAt != nil {
		grant.ExpiresAt = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	if err := l.creditGrantRepo.Create(ctx, grant); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create credit grant: %v", err)
		return nil, errorx.Unknown
	}

	return grant, nil
}

// Balance sums the user's spendable grants. With an item scope it counts
// grants of that scope plus general ones; without it counts everything
// still spendable.
func (l *CreditLedger) Balance(ctx context.Context, userID, itemID string) (int64, error) {
	grants, err := l.creditGrantRepo.GetByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get grants: %v", err)
		return 0, errorx.Unknown
	}

	now := time.Now()
	var total int64
	for _, grant := range grants {
		if !spendable(grant, now) {
			continue
		}

		if itemID != "" && grant.Scope() != "" && grant.Scope() != itemID {
			continue
		}

		total += grant.Amount
	}

	return total, nil
}

type CreditDomain interface {
	Deposit(context.Context, *model.DepositRequest) (*model.DepositResponse, error)
	GetBalance(context.Context, *model.GetBalanceRequest) (*model.GetBalanceResponse, error)
	GetMyGrants(context.Context, *model.GetMyGrantsRequest) (*model.GetMyGrantsResponse, error)
}

type creditDomain struct {
	ledger   *CreditLedger
	userRepo repository.UserRepository
}

func NewCreditDomain(ledger *CreditLedger, userRepo repository.UserRepository) *creditDomain {
	return &creditDomain{ledger: ledger, userRepo: userRepo}
}

func (d *creditDomain) Deposit(
	ctx context.Context, req *model.DepositRequest,
) (*model.DepositResponse, error) {
	if req.Amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Deposit amount must be a positive number")
	}

	if _, err := d.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	grant, err := d.ledger.Credit(
		ctx, req.UserID, req.Amount, entity.CreditSourceDeposit, req.ItemID, req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &model.DepositResponse{Grant: convertCreditGrant(grant)}, nil
}

func (d *creditDomain) GetBalance(
	ctx context.Context, req *model.GetBalanceRequest,
) (*model.GetBalanceResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Require authentication")
	}

	balance, err := d.ledger.Balance(ctx, userID, req.ItemID)
	if err != nil {
		return nil, err
	}

	return &model.GetBalanceResponse{Balance: balance}, nil
}

func (d *creditDomain) GetMyGrants(
	ctx context.Context, req *model.GetMyGrantsRequest,
) (*model.GetMyGrantsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Require authentication")
	}

	grants, err := d.ledger.creditGrantRepo.GetByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get grants: %v", err)
		return nil, errorx.Unknown
	}

	clientGrants := []model.CreditGrant{}
	for i := range grants {
		clientGrants = append(clientGrants, convertCreditGrant(&grants[i]))
	}

	return &model.GetMyGrantsResponse{Grants: clientGrants}, nil
}
