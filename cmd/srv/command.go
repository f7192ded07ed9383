package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "boxraffle"
	app.Usage = "Box raffle backend"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path of the configuration file",
			Value: "config.toml",
		},
	}
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start the api service",
			Category:    "Api",
			Description: `Serves the raffle, purchase, and credit APIs.`,
		},
		{
			Action:   server.startWinnerEngine,
			Name:     "winner-engine",
			Usage:    "Start the winner engine worker",
			Category: "Worker",
			Description: `Drives full raffles through the drawing: requests randomness
from the oracle, handles fulfillments, and resolves winners.`,
		},
		{
			Action:      server.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Category:    "Database",
			Description: `Creates or updates all tables of the service.`,
		},
	}

	s.app = app
}
