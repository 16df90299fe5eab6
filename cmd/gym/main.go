package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/config"
	"github.com/gymlabs/membership-client/internal/logger"
)

func main() {
	var home string
	var rootLogger *zap.Logger

	app := &cli.App{
		Name:  "gym",
		Usage: "Purchase and monitor membership credentials on the Membership registry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "home",
				Value:       config.GetDefaultConfigHome(),
				Usage:       "Path to the gym home directory",
				EnvVars:     []string{"GYM_HOME"},
				Destination: &home,
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(home)
			if err != nil {
				return err
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			rootLogger = zapLogger.Named("gym")
			c.App.Metadata["homeDir"] = home
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = rootLogger
			return nil
		},
		Commands: []*cli.Command{
			accountCommands(),
			priceCommand(),
			tokensCommand(),
			purchaseCommand(),
			setPriceCommand(),
			withdrawCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if rootLogger != nil {
			rootLogger.Error("command failed", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
