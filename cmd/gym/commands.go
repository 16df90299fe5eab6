package main

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// formatEther renders a smallest-unit amount in the display unit. Core
// arithmetic never happens in this unit; it exists for output only.
func formatEther(wei *big.Int) string {
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return f.Text('f', -1)
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "Show the current price per month",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			price, err := s.service.Price(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("Price per month: %s ETH (%s wei)\n", formatEther(price), price)
			return nil
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "List the credentials the account holds",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			tokens, err := s.service.Tokens(c.Context)
			if err != nil {
				return err
			}
			if len(tokens) == 0 {
				fmt.Println("No credentials found")
				return nil
			}

			now := time.Now()
			for _, token := range tokens {
				status := "valid"
				if !token.Valid {
					status = "expired"
				}
				fmt.Printf("#%s  expires %s  (%d days remaining)  %s\n",
					token.ID, token.Expiration.Format("2006-01-02"), token.DaysRemaining(now), status)
			}
			return nil
		},
	}
}

func purchaseCommand() *cli.Command {
	return &cli.Command{
		Name:      "purchase",
		Usage:     "Purchase membership for a number of months",
		ArgsUsage: "<months>",
		Action: func(c *cli.Context) error {
			months, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("months must be a positive integer: %q", c.Args().First())
			}

			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := s.service.Price(c.Context); err != nil {
				return err
			}
			total, err := s.service.CalculateTotal(months)
			if err != nil {
				return err
			}
			s.log.Info("Submitting purchase",
				zap.Int64("months", months),
				zap.String("total", formatEther(total)+" ETH"))

			h, err := s.service.Purchase(c.Context, months)
			if err != nil {
				if h != nil {
					return fmt.Errorf("purchase %s: %w", h.Hash().Hex(), err)
				}
				return err
			}
			fmt.Printf("Purchase confirmed: %s\n", h.Hash().Hex())
			return nil
		},
	}
}

func setPriceCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-price",
		Usage:     "Set the price per month (owner only)",
		ArgsUsage: "<price-in-wei>",
		Action: func(c *cli.Context) error {
			price, ok := new(big.Int).SetString(c.Args().First(), 10)
			if !ok {
				return fmt.Errorf("price must be an integer wei amount: %q", c.Args().First())
			}

			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			h, err := s.service.SetPrice(c.Context, price)
			if err != nil {
				if h != nil {
					return fmt.Errorf("set-price %s: %w", h.Hash().Hex(), err)
				}
				return err
			}
			fmt.Printf("Price updated: %s ETH (%s wei), tx %s\n", formatEther(price), price, h.Hash().Hex())
			return nil
		},
	}
}

func withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdraw",
		Usage: "Withdraw accumulated funds to the owner (owner only)",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			h, err := s.service.Withdraw(c.Context)
			if err != nil {
				if h != nil {
					return fmt.Errorf("withdraw %s: %w", h.Hash().Hex(), err)
				}
				return err
			}
			fmt.Printf("Withdraw confirmed: %s\n", h.Hash().Hex())
			return nil
		},
	}
}
