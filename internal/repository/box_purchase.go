package repository

import (
	"context"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/xcontext"
)

type BoxPurchaseRepository interface {
	// Create inserts one box ownership row. A duplicate-key error means the
	// box was sold to someone else first; detect it with
	// IsDuplicateKeyError.
	Create(ctx context.Context, purchase *entity.BoxPurchase) error

	GetByRaffleID(ctx context.Context, raffleID string) ([]entity.BoxPurchase, error)
	GetByRaffleAndBox(ctx context.Context, raffleID string, boxNumber int) (*entity.BoxPurchase, error)
	GetByUserAndRaffle(ctx context.Context, userID, raffleID string) ([]entity.BoxPurchase, error)
	CountByRaffleID(ctx context.Context, raffleID string) (int64, error)
}

type boxPurchaseRepository struct{}

func NewBoxPurchaseRepository() *boxPurchaseRepository {
	return &boxPurchaseRepository{}
}

func (r *boxPurchaseRepository) Create(ctx context.Context, purchase *entity.BoxPurchase) error {
	return xcontext.DB(ctx).Create(purchase).Error
}

func (r *boxPurchaseRepository) GetByRaffleID(ctx context.Context, raffleID string) ([]entity.BoxPurchase, error) {
	var result []entity.BoxPurchase
	err := xcontext.DB(ctx).Where("raffle_id=?", raffleID).
		Order("box_number ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *boxPurchaseRepository) GetByRaffleAndBox(
	ctx context.Context, raffleID string, boxNumber int,
) (*entity.BoxPurchase, error) {
	var result entity.BoxPurchase
	err := xcontext.DB(ctx).
		Take(&result, "raffle_id=? AND box_number=?", raffleID, boxNumber).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *boxPurchaseRepository) GetByUserAndRaffle(
	ctx context.Context, userID, raffleID string,
) ([]entity.BoxPurchase, error) {
	var result []entity.BoxPurchase
	err := xcontext.DB(ctx).Where("user_id=? AND raffle_id=?", userID, raffleID).
		Order("box_number ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *boxPurchaseRepository) CountByRaffleID(ctx context.Context, raffleID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.BoxPurchase{}).
		Where("raffle_id=?", raffleID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
