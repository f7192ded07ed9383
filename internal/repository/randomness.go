package repository

import (
	"context"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RandomnessRepository interface {
	Create(ctx context.Context, request *entity.RandomnessRequest) error
	GetByID(ctx context.Context, requestID string) (*entity.RandomnessRequest, error)
	GetLatestByRaffleID(ctx context.Context, raffleID string) (*entity.RandomnessRequest, error)
	CountByRaffleID(ctx context.Context, raffleID string) (int64, error)

	// Fulfill records the oracle output, guarded so a request can only be
	// fulfilled once and never after the timeout sweep abandoned it.
	// Duplicate and late callbacks get gorm.ErrRecordNotFound.
	Fulfill(ctx context.Context, requestID, randomValue string) error

	MarkAbandoned(ctx context.Context, requestID string) error
}

type randomnessRepository struct{}

func NewRandomnessRepository() *randomnessRepository {
	return &randomnessRepository{}
}

func (r *randomnessRepository) Create(ctx context.Context, request *entity.RandomnessRequest) error {
	return xcontext.DB(ctx).Create(request).Error
}

func (r *randomnessRepository) GetByID(ctx context.Context, requestID string) (*entity.RandomnessRequest, error) {
	var result entity.RandomnessRequest
	if err := xcontext.DB(ctx).Take(&result, "id=?", requestID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *randomnessRepository) GetLatestByRaffleID(
	ctx context.Context, raffleID string,
) (*entity.RandomnessRequest, error) {
	var result entity.RandomnessRequest
	err := xcontext.DB(ctx).Where("raffle_id=?", raffleID).
		Order("attempt DESC").Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *randomnessRepository) CountByRaffleID(ctx context.Context, raffleID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
		Where("raffle_id=?", raffleID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *randomnessRepository) Fulfill(ctx context.Context, requestID, randomValue string) error {
	tx := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
		Where("id=? AND fulfilled=? AND abandoned=?", requestID, false, false).
		Updates(map[string]any{
			"fulfilled":    true,
			"random_value": randomValue,
			"fulfilled_at": time.Now(),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *randomnessRepository) MarkAbandoned(ctx context.Context, requestID string) error {
	tx := xcontext.DB(ctx).Model(&entity.RandomnessRequest{}).
		Where("id=? AND fulfilled=? AND abandoned=?", requestID, false, false).
		Update("abandoned", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
