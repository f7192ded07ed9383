package repository

import (
	"context"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RaffleRepository interface {
	Create(ctx context.Context, raffle *entity.Raffle) error
	GetByID(ctx context.Context, raffleID string) (*entity.Raffle, error)
	GetByStatus(ctx context.Context, status entity.RaffleStatus) ([]entity.Raffle, error)

	// IncreaseSoldBoxes adds n to sold_boxes, guarded so the count can never
	// pass total_boxes and only moves while the raffle is open. A failed
	// guard returns gorm.ErrRecordNotFound. It returns the sold count after
	// the update, re-read in the caller's transaction, so the count includes
	// purchases committed after the caller read the raffle.
	IncreaseSoldBoxes(ctx context.Context, raffleID string, n int) (int, error)

	// UpdateStatus moves the raffle from one status to another with a
	// guarded update. It returns gorm.ErrRecordNotFound if the raffle is no
	// longer in the from status, which is how concurrent transitions lose.
	UpdateStatus(ctx context.Context, raffleID string, from, to entity.RaffleStatus) error

	// SetWinners commits the winner list and completes the raffle, guarded
	// on the drawing status so only one resolution can ever land.
	SetWinners(ctx context.Context, raffleID string, ownerIDs []string) error

	// MarkRefunded sets the cancellation-refund marker, guarded so it can
	// only be set once and only on a cancelled raffle.
	MarkRefunded(ctx context.Context, raffleID string) error
}

type raffleRepository struct{}

func NewRaffleRepository() *raffleRepository {
	return &raffleRepository{}
}

func (r *raffleRepository) Create(ctx context.Context, raffle *entity.Raffle) error {
	return xcontext.DB(ctx).Create(raffle).Error
}

func (r *raffleRepository) GetByID(ctx context.Context, raffleID string) (*entity.Raffle, error) {
	var result entity.Raffle
	if err := xcontext.DB(ctx).Take(&result, "id=?", raffleID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetByStatus(ctx context.Context, status entity.RaffleStatus) ([]entity.Raffle, error) {
	var result []entity.Raffle
	if err := xcontext.DB(ctx).Find(&result, "status=?", status).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) IncreaseSoldBoxes(ctx context.Context, raffleID string, n int) (int, error) {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=? AND sold_boxes+? <= total_boxes", raffleID, entity.RaffleOpen, n).
		Update("sold_boxes", gorm.Expr("sold_boxes+?", n))
	if tx.Error != nil {
		return 0, tx.Error
	}

	if tx.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var result entity.Raffle
	if err := xcontext.DB(ctx).Take(&result, "id=?", raffleID).Error; err != nil {
		return 0, err
	}

	return result.SoldBoxes, nil
}

func (r *raffleRepository) UpdateStatus(ctx context.Context, raffleID string, from, to entity.RaffleStatus) error {
	updates := map[string]any{"status": to}
	switch to {
	case entity.RaffleCompleted:
		updates["completed_at"] = time.Now()
	case entity.RaffleCancelled:
		updates["cancelled_at"] = time.Now()
	}

	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=?", raffleID, from).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) SetWinners(ctx context.Context, raffleID string, ownerIDs []string) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=?", raffleID, entity.RaffleDrawing).
		Updates(map[string]any{
			"status":           entity.RaffleCompleted,
			"winner_owner_ids": entity.Array[string](ownerIDs),
			"completed_at":     time.Now(),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) MarkRefunded(ctx context.Context, raffleID string) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=? AND refunded_at IS NULL", raffleID, entity.RaffleCancelled).
		Update("refunded_at", time.Now())
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
