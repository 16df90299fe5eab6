package main

import (
	"context"
	"fmt"
	"os"

	goethclient "github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/addrbook"
	"github.com/gymlabs/membership-client/internal/config"
	"github.com/gymlabs/membership-client/internal/contracts"
	"github.com/gymlabs/membership-client/internal/membership"
	"github.com/gymlabs/membership-client/internal/registry"
	"github.com/gymlabs/membership-client/internal/txmgr"
	"github.com/gymlabs/membership-client/internal/wallet"
)

// session bundles everything a command needs to talk to the registry.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	service *membership.Service
	wallet  *wallet.Wallet
	close   func()
}

// newSession dials the RPC provider, resolves the registry address for the
// configured network and wires up the full client stack. An unresolved
// network is fatal: no reads or writes are attempted past it.
func newSession(c *cli.Context) (*session, error) {
	cfg := c.App.Metadata["config"].(*config.Config)
	log := c.App.Metadata["logger"].(*zap.Logger)

	book, err := addrbook.Load(cfg.Registry.Addresses)
	if err != nil {
		return nil, err
	}
	registryAddress, err := book.Resolve(cfg.NetworkID)
	if err != nil {
		return nil, err
	}

	client, err := goethclient.Dial(cfg.RpcProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC provider %s: %w", cfg.RpcProvider, err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if chainID.Uint64() != cfg.NetworkID {
		client.Close()
		return nil, fmt.Errorf("provider is on network %s, config expects %d", chainID, cfg.NetworkID)
	}

	reader, err := contracts.NewMembership(client, registryAddress, log)
	if err != nil {
		client.Close()
		return nil, err
	}

	// A missing keyfile leaves the session read-only.
	var w *wallet.Wallet
	if _, statErr := os.Stat(cfg.Wallet.Keyfile); statErr == nil {
		w, err = wallet.Load(cfg.Wallet.Keyfile)
		if err != nil {
			client.Close()
			return nil, err
		}
	} else {
		log.Warn("No keyfile found, running without a wallet",
			zap.String("keyfile", cfg.Wallet.Keyfile))
	}

	enumerator := registry.NewEnumerator(reader, cfg.Enumerator.MaxProbe, log)
	cache := registry.NewCache(reader, enumerator, log)
	submitter := txmgr.NewSubmitter(client, w, chainID, registryAddress, reader.ABI(), log)
	tracker := txmgr.NewTracker(client, cfg.Tx.PollInterval, cfg.Tx.ConfirmTimeout, log)
	service := membership.NewService(w, cache, submitter, tracker, log)

	log.Debug("Session ready",
		zap.Uint64("networkId", cfg.NetworkID),
		zap.String("registry", registryAddress.Hex()))

	return &session{
		cfg:     cfg,
		log:     log,
		service: service,
		wallet:  w,
		close:   client.Close,
	}, nil
}
