// Package membership composes the wallet, registry cache, transaction
// submitter and confirmation tracker into the two user-facing workflows:
// purchasing membership periods, and the owner's price/withdraw admin
// calls. Derived values (owner flag, totals) are pure functions over
// current state, recomputed on demand rather than cached.
package membership

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/registry"
	"github.com/gymlabs/membership-client/internal/txmgr"
	"github.com/gymlabs/membership-client/internal/wallet"
)

var (
	// Validation failures, rejected before any network call.
	ErrInvalidMonths  = errors.New("months must be a positive integer")
	ErrInvalidPrice   = errors.New("price must be a non-negative amount")
	ErrPriceNotLoaded = errors.New("price not loaded")
	ErrNotOwner       = errors.New("only the registry owner may do this")

	// ErrOperationInFlight rejects a duplicate submit while a workflow's
	// previous transaction has not reached a terminal state. Rejected,
	// not queued: silent queueing would double-spend on a retry click.
	ErrOperationInFlight = errors.New("operation already in flight")
)

type Workflow string

const (
	WorkflowPurchase Workflow = "purchase"
	WorkflowSetPrice Workflow = "set-price"
	WorkflowWithdraw Workflow = "withdraw"
)

// TxSubmitter broadcasts one state-changing registry call.
type TxSubmitter interface {
	Submit(ctx context.Context, methodName string, value *big.Int, args ...interface{}) (*txmgr.Handle, error)
}

// ConfirmationWaiter drives a handle to a terminal state.
type ConfirmationWaiter interface {
	Wait(ctx context.Context, h *txmgr.Handle) error
}

// Service is the interaction orchestrator. A nil wallet means no account
// is connected; reads still work, writes fail with ErrWalletNotConnected.
type Service struct {
	wallet    *wallet.Wallet
	cache     *registry.Cache
	submitter TxSubmitter
	tracker   ConfirmationWaiter
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[Workflow]bool
}

func NewService(
	w *wallet.Wallet,
	cache *registry.Cache,
	submitter TxSubmitter,
	tracker ConfirmationWaiter,
	logger *zap.Logger,
) *Service {
	return &Service{
		wallet:    w,
		cache:     cache,
		submitter: submitter,
		tracker:   tracker,
		logger:    logger.Named("membership"),
		inflight:  make(map[Workflow]bool),
	}
}

// Account reports the connected wallet address.
func (s *Service) Account() (common.Address, error) {
	if s.wallet == nil {
		return common.Address{}, wallet.ErrWalletNotConnected
	}
	return s.wallet.Address(), nil
}

// Price returns the current price per period, reading through the cache.
func (s *Service) Price(ctx context.Context) (*big.Int, error) {
	if price, ok := s.cache.Price(); ok {
		return price, nil
	}
	return s.cache.RefreshPrice(ctx)
}

// IsOwner recomputes the owner flag from the connected account and the
// registry's owner. Both sides are canonical addresses, so the comparison
// is untouched by hex-case differences. Disconnected wallets are never
// the owner.
func (s *Service) IsOwner(ctx context.Context) (bool, error) {
	if s.wallet == nil {
		return false, nil
	}
	owner, ok := s.cache.Owner()
	if !ok {
		var err error
		owner, err = s.cache.RefreshOwner(ctx)
		if err != nil {
			return false, err
		}
	}
	return owner == s.wallet.Address(), nil
}

// CalculateTotal computes months * price in exact smallest-unit integer
// arithmetic.
func (s *Service) CalculateTotal(months int64) (*big.Int, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonths, months)
	}
	price, ok := s.cache.Price()
	if !ok {
		return nil, ErrPriceNotLoaded
	}
	return new(big.Int).Mul(price, big.NewInt(months)), nil
}

// Loading reports whether any workflow's transaction is not yet terminal.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) > 0
}

// Tokens returns the connected account's credentials, cached snapshot if
// present, fresh enumeration otherwise.
func (s *Service) Tokens(ctx context.Context) ([]registry.Credential, error) {
	account, err := s.Account()
	if err != nil {
		return nil, err
	}
	if creds, ok := s.cache.Credentials(account); ok {
		return creds, nil
	}
	return s.cache.RefreshCredentials(ctx, account)
}

// Purchase buys the given number of membership periods at the current
// price and blocks until the transaction reaches a terminal state. On
// confirmation the price and credential scopes are invalidated and
// re-read; on failure the cache keeps its last known good state.
func (s *Service) Purchase(ctx context.Context, months int64) (*txmgr.Handle, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonths, months)
	}
	account, err := s.Account()
	if err != nil {
		return nil, err
	}
	price, ok := s.cache.Price()
	if !ok {
		return nil, ErrPriceNotLoaded
	}
	total := new(big.Int).Mul(price, big.NewInt(months))

	if err := s.begin(WorkflowPurchase); err != nil {
		return nil, err
	}
	defer s.end(WorkflowPurchase)

	s.logger.Info("Purchasing membership",
		zap.Int64("months", months),
		zap.String("total", total.String()),
		zap.String("account", account.Hex()))

	h, err := s.submitter.Submit(ctx, "purchaseToken", total, big.NewInt(months))
	if err != nil {
		return nil, err
	}

	if err := s.tracker.Wait(ctx, h); err != nil {
		return h, err
	}

	s.cache.Invalidate(registry.ScopePrice)
	s.cache.Invalidate(registry.ScopeCredentials)
	if _, err := s.cache.RefreshCredentials(ctx, account); err != nil {
		s.logger.Warn("Credential refresh after purchase failed", zap.Error(err))
	}
	return h, nil
}

// SetPrice sets the registry's price per period. Owner only.
func (s *Service) SetPrice(ctx context.Context, newPrice *big.Int) (*txmgr.Handle, error) {
	if newPrice == nil || newPrice.Sign() < 0 {
		return nil, ErrInvalidPrice
	}
	if _, err := s.Account(); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}

	if err := s.begin(WorkflowSetPrice); err != nil {
		return nil, err
	}
	defer s.end(WorkflowSetPrice)

	h, err := s.submitter.Submit(ctx, "setPricePerMonth", nil, newPrice)
	if err != nil {
		return nil, err
	}

	if err := s.tracker.Wait(ctx, h); err != nil {
		// Failed write: the previously cached price stays authoritative.
		return h, err
	}

	s.cache.Invalidate(registry.ScopePrice)
	if _, err := s.cache.RefreshPrice(ctx); err != nil {
		s.logger.Warn("Price refresh after set-price failed", zap.Error(err))
	}
	return h, nil
}

// Withdraw moves the registry's accumulated funds to the owner. Owner
// only. No cache scope depends on the owner's personal balance, so
// nothing is invalidated.
func (s *Service) Withdraw(ctx context.Context) (*txmgr.Handle, error) {
	if _, err := s.Account(); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}

	if err := s.begin(WorkflowWithdraw); err != nil {
		return nil, err
	}
	defer s.end(WorkflowWithdraw)

	h, err := s.submitter.Submit(ctx, "withdrawFunds", nil)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Wait(ctx, h); err != nil {
		return h, err
	}
	return h, nil
}

// InvalidateAll marks every cached scope stale, forcing the next reads
// back to the ledger. Used by the monitoring loop between poll rounds.
func (s *Service) InvalidateAll() {
	s.cache.Invalidate(registry.ScopePrice)
	s.cache.Invalidate(registry.ScopeOwner)
	s.cache.Invalidate(registry.ScopeCredentials)
}

func (s *Service) requireOwner(ctx context.Context) error {
	isOwner, err := s.IsOwner(ctx)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) begin(w Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[w] {
		return fmt.Errorf("%w: %s", ErrOperationInFlight, w)
	}
	s.inflight[w] = true
	return nil
}

func (s *Service) end(w Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, w)
}
