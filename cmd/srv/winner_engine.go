package main

import (
	"github.com/boxraffle/backend/internal/client"
	"github.com/boxraffle/backend/internal/domain"
	"github.com/boxraffle/backend/pkg/kafka"
	"github.com/urfave/cli/v2"
)

func (s *srv) startWinnerEngine(cctx *cli.Context) error {
	s.loadConfig(cctx)
	s.loadLogger()
	s.loadDatabase()
	s.loadSnowFlake(1)
	s.loadRedisClient()
	s.loadPublisher("winner-engine")
	s.loadRepos()
	s.loadDomains()

	oracle := client.NewKafkaOracle(s.publisher)
	s.winnerEngine = domain.NewWinnerEngine(
		s.raffleRepo,
		s.boxPurchaseRepo,
		s.randomnessRepo,
		s.checkpointRepo,
		s.stateMachine,
		oracle,
		s.redisClient,
		s.publisher,
	)

	s.subscriber = kafka.NewSubscriber(
		"winner-engine",
		[]string{s.configs.Kafka.Addr},
		[]string{s.configs.Oracle.FulfillTopic},
		s.winnerEngine.HandleFulfillment,
	)

	s.logger.Infof("Starting winner engine")
	go s.subscriber.Subscribe(s.ctx)
	s.winnerEngine.Start(s.ctx)
	return nil
}
