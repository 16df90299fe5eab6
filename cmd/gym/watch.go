package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Monitor price and credential validity, exposing prometheus metrics",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			banner := figure.NewFigure("gym watch", "", true)
			banner.Print()
			fmt.Println("")

			if s.wallet != nil {
				fmt.Printf("Account: %s\n", s.wallet.Address().Hex())
			} else {
				fmt.Println("Account: not connected (read-only)")
			}

			addr := fmt.Sprintf(":%d", s.cfg.Watch.ListenPort)
			http.Handle("/metrics", promhttp.Handler())
			go func() {
				if err := http.ListenAndServe(addr, nil); err != nil {
					s.log.Error("metrics server stopped", zap.Error(err))
				}
			}()
			s.log.Info("Serving metrics", zap.String("address", addr+"/metrics"))

			ticker := time.NewTicker(s.cfg.Registry.PollInterval)
			defer ticker.Stop()

			refresh := func() {
				price, err := s.service.Price(c.Context)
				if err != nil {
					s.log.Warn("Price read failed", zap.Error(err))
				} else {
					fmt.Printf("[%s] price/month: %s ETH\n", time.Now().Format(time.TimeOnly), formatEther(price))
				}

				if s.wallet == nil {
					return
				}
				tokens, err := s.service.Tokens(c.Context)
				if err != nil {
					s.log.Warn("Credential read failed", zap.Error(err))
					return
				}
				valid := 0
				for _, token := range tokens {
					if token.Valid {
						valid++
					}
				}
				fmt.Printf("[%s] credentials: %d (%d valid)\n", time.Now().Format(time.TimeOnly), len(tokens), valid)
			}

			refresh()
			for {
				select {
				case <-c.Context.Done():
					return nil
				case <-ticker.C:
					// Re-read from chain each round; the poll is the
					// monitoring loop's freshness source.
					s.service.InvalidateAll()
					refresh()
				}
			}
		},
	}
}
