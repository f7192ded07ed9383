package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/boxraffle/backend/config"
	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/logger"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	// A named shared-cache database so every connection of the pool sees the
	// same in-memory tables.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Configs{
		Env: "testing",
		Kafka: config.KafkaConfigs{
			EventTopic: "raffle-events",
		},
		Raffle: config.RaffleConfigs{
			MaxPurchaseRetry: 3,
			MaxBatchSize:     10,
			GridCacheTTL:     time.Minute,
		},
		Oracle: config.OracleConfigs{
			RequestTopic: "oracle-requests",
			FulfillTopic: "oracle-fulfillments",
			Timeout:      time.Minute,
			MaxAttempts:  3,
			PollInterval: time.Second,
		},
	}

	node, err := snowflake.NewNode(0)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)
	ctx = xcontext.WithSnowFlake(ctx, node)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}
