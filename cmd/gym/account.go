package main

import (
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/config"
	"github.com/gymlabs/membership-client/internal/wallet"
)

func accountCommands() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage the wallet account",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create a new account keyfile",
				Action: func(c *cli.Context) error {
					cfg := c.App.Metadata["config"].(*config.Config)
					log := c.App.Metadata["logger"].(*zap.Logger)
					path := cfg.Wallet.Keyfile
					if !filepath.IsAbs(path) {
						path = filepath.Join(c.App.Metadata["homeDir"].(string), path)
					}
					if err := wallet.Generate(path); err != nil {
						return err
					}
					w, err := wallet.Load(path)
					if err != nil {
						return err
					}
					log.Info("Account created",
						zap.String("address", w.Address().Hex()),
						zap.String("keyfile", path))
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show the account address",
				Action: func(c *cli.Context) error {
					cfg := c.App.Metadata["config"].(*config.Config)
					log := c.App.Metadata["logger"].(*zap.Logger)
					w, err := wallet.Load(cfg.Wallet.Keyfile)
					if err != nil {
						return err
					}
					log.Info("Account address", zap.String("address", w.Address().Hex()))
					return nil
				},
			},
		},
	}
}
