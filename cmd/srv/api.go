package main

import (
	"fmt"
	"net/http"

	"github.com/boxraffle/backend/internal/middleware"
	"github.com/boxraffle/backend/pkg/router"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(cctx *cli.Context) error {
	s.loadConfig(cctx)
	s.loadLogger()
	s.loadDatabase()
	s.loadSnowFlake(0)
	s.loadRedisClient()
	s.loadPublisher("api")
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.configs.ApiServer.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "X-User-Id"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.configs.ApiServer.Port),
		Handler: c.Handler(s.router.Handler()),
	}

	s.logger.Infof("Starting api server on port %s", s.configs.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.db, *s.configs, s.logger, s.snowflake)
	s.router.AddCloser(middleware.Logger())

	// Public API.
	router.GET(s.router, "/getRaffle", s.raffleDomain.Get)

	// These following APIs need the user id forwarded by the gateway.
	userRouter := s.router.Branch()
	userRouter.Before(middleware.RequestUser())
	{
		// Raffle API
		router.POST(userRouter, "/createRaffle", s.raffleDomain.Create)
		router.POST(userRouter, "/purchaseBoxes", s.raffleDomain.PurchaseBoxes)
		router.POST(userRouter, "/cancelRaffle", s.raffleDomain.Cancel)

		// Credit API
		router.POST(userRouter, "/deposit", s.creditDomain.Deposit)
		router.GET(userRouter, "/getBalance", s.creditDomain.GetBalance)
		router.GET(userRouter, "/getMyGrants", s.creditDomain.GetMyGrants)
	}
}
