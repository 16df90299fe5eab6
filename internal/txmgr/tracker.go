package txmgr

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/metrics"
	"github.com/gymlabs/membership-client/pkg/ethclient"
)

// Tracker polls the ledger for a handle's receipt until the transaction
// reaches a terminal state or the confirmation timeout passes. Cancelling
// the watch context only stops observation; the broadcast transaction
// itself cannot be revoked.
type Tracker struct {
	client         ethclient.EthClient
	pollInterval   time.Duration
	confirmTimeout time.Duration
	logger         *zap.Logger
}

func NewTracker(client ethclient.EthClient, pollInterval, confirmTimeout time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		client:         client,
		pollInterval:   pollInterval,
		confirmTimeout: confirmTimeout,
		logger:         logger.Named("tracker"),
	}
}

// Track starts watching the handle in the background.
func (t *Tracker) Track(ctx context.Context, h *Handle) {
	go t.watch(ctx, h)
}

// Wait drives the handle to a terminal state and returns its terminal
// error, nil on confirmation. Returns the context error if observation is
// torn down first, leaving the handle pending.
func (t *Tracker) Wait(ctx context.Context, h *Handle) error {
	t.Track(ctx, h)
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) watch(ctx context.Context, h *Handle) {
	deadline := time.NewTimer(t.confirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Observer teardown. No terminal transition: the transaction
			// may still mine, we just stop looking.
			return
		case <-h.Done():
			// Another watcher got there first.
			return
		case <-deadline.C:
			t.logger.Warn("Transaction unmined at timeout, status unknown",
				zap.String("method", h.Method()),
				zap.String("hash", h.Hash().Hex()),
				zap.Duration("timeout", t.confirmTimeout))
			metrics.TxFailed.WithLabelValues(h.Method(), "timeout").Inc()
			h.finish(StatusFailed, ErrConfirmationTimeout)
			return
		case <-ticker.C:
			receipt, err := t.client.TransactionReceipt(ctx, h.Hash())
			if err != nil {
				// Not mined yet, or a transient RPC failure. Either way
				// the next tick retries until the deadline decides.
				continue
			}
			t.conclude(h, receipt)
			return
		}
	}
}

func (t *Tracker) conclude(h *Handle, receipt *types.Receipt) {
	elapsed := time.Since(h.submittedAt)
	if receipt.Status == types.ReceiptStatusSuccessful {
		metrics.TxConfirmed.WithLabelValues(h.Method()).Inc()
		metrics.TxConfirmationSeconds.Observe(elapsed.Seconds())
		t.logger.Info("Transaction confirmed",
			zap.String("method", h.Method()),
			zap.String("hash", h.Hash().Hex()),
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
			zap.Duration("elapsed", elapsed))
		h.finish(StatusConfirmed, nil)
		return
	}

	metrics.TxFailed.WithLabelValues(h.Method(), "reverted").Inc()
	t.logger.Warn("Transaction reverted",
		zap.String("method", h.Method()),
		zap.String("hash", h.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()))
	h.finish(StatusFailed, fmt.Errorf("%w: %s", ErrTxReverted, h.Hash().Hex()))
}
