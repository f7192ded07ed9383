package repository

import (
	"context"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type CreditGrantRepository interface {
	Create(ctx context.Context, grant *entity.CreditGrant) error
	GetByID(ctx context.Context, grantID string) (*entity.CreditGrant, error)
	GetByUserID(ctx context.Context, userID string) ([]entity.CreditGrant, error)

	// GetSpendable returns the unconsumed, unexpired grants a user can pay
	// with for the given item scope: item-restricted grants of that item
	// plus general grants. Expiry is observed at read time, nothing is
	// swept in the background.
	GetSpendable(ctx context.Context, userID, itemID string) ([]entity.CreditGrant, error)

	// Consume marks a grant consumed with a guarded update. It returns
	// gorm.ErrRecordNotFound when the grant was already consumed, which is
	// how two debits racing for the same grant are serialized.
	Consume(ctx context.Context, grantID string) error
}

type creditGrantRepository struct{}

func NewCreditGrantRepository() *creditGrantRepository {
	return &creditGrantRepository{}
}

func (r *creditGrantRepository) Create(ctx context.Context, grant *entity.CreditGrant) error {
	return xcontext.DB(ctx).Create(grant).Error
}

func (r *creditGrantRepository) GetByID(ctx context.Context, grantID string) (*entity.CreditGrant, error) {
	var result entity.CreditGrant
	if err := xcontext.DB(ctx).Take(&result, "id=?", grantID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *creditGrantRepository) GetByUserID(ctx context.Context, userID string) ([]entity.CreditGrant, error) {
	var result []entity.CreditGrant
	err := xcontext.DB(ctx).Where("user_id=?", userID).
		Order("created_at ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *creditGrantRepository) GetSpendable(
	ctx context.Context, userID, itemID string,
) ([]entity.CreditGrant, error) {
	var result []entity.CreditGrant
	tx := xcontext.DB(ctx).
		Where("user_id=? AND consumed=?", userID, false).
		Where("expires_at IS NULL OR expires_at > ?", time.Now())

	if itemID != "" {
		tx = tx.Where("item_id IS NULL OR item_id=?", itemID)
	} else {
		tx = tx.Where("item_id IS NULL")
	}

	if err := tx.Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *creditGrantRepository) Consume(ctx context.Context, grantID string) error {
	tx := xcontext.DB(ctx).Model(&entity.CreditGrant{}).
		Where("id=? AND consumed=?", grantID, false).
		Update("consumed", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
