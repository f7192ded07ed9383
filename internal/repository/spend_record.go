package repository

import (
	"context"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/xcontext"
)

type SpendRecordRepository interface {
	Create(ctx context.Context, record *entity.SpendRecord) error
	GetByRaffleID(ctx context.Context, raffleID string) ([]entity.SpendRecord, error)
	GetByUserAndRaffle(ctx context.Context, userID, raffleID string) ([]entity.SpendRecord, error)
}

type spendRecordRepository struct{}

func NewSpendRecordRepository() *spendRecordRepository {
	return &spendRecordRepository{}
}

func (r *spendRecordRepository) Create(ctx context.Context, record *entity.SpendRecord) error {
	return xcontext.DB(ctx).Create(record).Error
}

func (r *spendRecordRepository) GetByRaffleID(ctx context.Context, raffleID string) ([]entity.SpendRecord, error) {
	var result []entity.SpendRecord
	err := xcontext.DB(ctx).Where("raffle_id=?", raffleID).
		Order("id ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *spendRecordRepository) GetByUserAndRaffle(
	ctx context.Context, userID, raffleID string,
) ([]entity.SpendRecord, error) {
	var result []entity.SpendRecord
	err := xcontext.DB(ctx).Where("user_id=? AND raffle_id=?", userID, raffleID).
		Order("id ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
