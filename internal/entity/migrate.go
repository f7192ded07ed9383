package entity

import (
	"context"

	"github.com/boxraffle/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&Item{},
		&Raffle{},
		&BoxPurchase{},
		&CreditGrant{},
		&SpendRecord{},
		&RandomnessRequest{},
		&Checkpoint{},
	)
}
