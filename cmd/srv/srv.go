package main

import (
	"context"
	"net/http"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/boxraffle/backend/config"
	"github.com/boxraffle/backend/internal/domain"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/kafka"
	"github.com/boxraffle/backend/pkg/logger"
	"github.com/boxraffle/backend/pkg/pubsub"
	"github.com/boxraffle/backend/pkg/router"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/boxraffle/backend/pkg/xredis"
	"github.com/bwmarrin/snowflake"
	"github.com/urfave/cli/v2"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	ctx context.Context
	app *cli.App

	configs   *config.Configs
	logger    logger.Logger
	db        *gorm.DB
	snowflake *snowflake.Node

	userRepo        repository.UserRepository
	itemRepo        repository.ItemRepository
	raffleRepo      repository.RaffleRepository
	boxPurchaseRepo repository.BoxPurchaseRepository
	creditGrantRepo repository.CreditGrantRepository
	spendRecordRepo repository.SpendRecordRepository
	randomnessRepo  repository.RandomnessRepository
	checkpointRepo  repository.CheckpointRepository

	ledger       *domain.CreditLedger
	stateMachine *domain.RaffleStateMachine
	refundIssuer *domain.RefundIssuer
	raffleDomain domain.RaffleDomain
	creditDomain domain.CreditDomain
	winnerEngine *domain.WinnerEngine

	redisClient xredis.Client
	publisher   pubsub.Publisher
	subscriber  pubsub.Subscriber

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(cctx *cli.Context) {
	s.configs = &config.Configs{
		Env: "local",
		ApiServer: config.ServerConfigs{
			Host: "localhost",
			Port: "8080",
		},
		Kafka: config.KafkaConfigs{
			Addr:       "localhost:9092",
			EventTopic: "raffle-events",
		},
		Redis: config.RedisConfigs{
			Addr: "localhost:6379",
		},
		Raffle: config.RaffleConfigs{
			MaxPurchaseRetry: 3,
			MaxBatchSize:     20,
			GridCacheTTL:     10 * time.Second,
		},
		Oracle: config.OracleConfigs{
			RequestTopic: "oracle-requests",
			FulfillTopic: "oracle-fulfillments",
			Timeout:      2 * time.Minute,
			MaxAttempts:  3,
			PollInterval: 5 * time.Second,
		},
	}

	if path := cctx.String("config"); path != "" {
		if _, err := toml.DecodeFile(path, s.configs); err != nil {
			panic(err)
		}
	}

	s.ctx = xcontext.WithConfigs(s.ctx, *s.configs)
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if s.configs.Env == "local" {
		level = logger.DEBUG
	}

	s.logger = logger.NewLogger(level)
	s.ctx = xcontext.WithLogger(s.ctx, s.logger)
}

func (s *srv) loadDatabase() {
	var err error
	s.db, err = gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                      s.configs.Database.ConnectionString(),
		DefaultStringSize:        256,
		DisableDatetimePrecision: true,
		DontSupportRenameIndex:   true,
		DontSupportRenameColumn:  true,
	}), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithDB(s.ctx, s.db)
}

func (s *srv) loadSnowFlake(machineID int64) {
	node, err := snowflake.NewNode(machineID)
	if err != nil {
		panic(err)
	}

	s.snowflake = node
	s.ctx = xcontext.WithSnowFlake(s.ctx, node)
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadPublisher(clientID string) {
	s.publisher = kafka.NewPublisher(clientID, []string{s.configs.Kafka.Addr})
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.itemRepo = repository.NewItemRepository()
	s.raffleRepo = repository.NewRaffleRepository()
	s.boxPurchaseRepo = repository.NewBoxPurchaseRepository()
	s.creditGrantRepo = repository.NewCreditGrantRepository()
	s.spendRecordRepo = repository.NewSpendRecordRepository()
	s.randomnessRepo = repository.NewRandomnessRepository()
	s.checkpointRepo = repository.NewCheckpointRepository()
}

func (s *srv) loadDomains() {
	s.ledger = domain.NewCreditLedger(s.creditGrantRepo)
	s.stateMachine = domain.NewRaffleStateMachine(s.raffleRepo)
	s.refundIssuer = domain.NewRefundIssuer(s.raffleRepo, s.spendRecordRepo, s.ledger)
	s.creditDomain = domain.NewCreditDomain(s.ledger, s.userRepo)
	s.raffleDomain = domain.NewRaffleDomain(
		s.raffleRepo,
		s.boxPurchaseRepo,
		s.spendRecordRepo,
		s.randomnessRepo,
		s.itemRepo,
		s.ledger,
		s.stateMachine,
		s.refundIssuer,
		s.redisClient,
		s.publisher,
	)
}
