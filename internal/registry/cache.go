package registry

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/metrics"
)

type Scope string

const (
	ScopePrice       Scope = "price"
	ScopeOwner       Scope = "owner"
	ScopeCredentials Scope = "credentials"
)

// backgroundRefreshTimeout bounds refreshes kicked off by a stale read,
// which run detached from any caller context.
const backgroundRefreshTimeout = 15 * time.Second

// scopeState tracks staleness per cached scope. The generation counter is
// bumped on every invalidation; a refresh that started under an older
// generation throws its result away instead of storing it, so data read
// before a confirmed write can never be served as if it were read after.
type scopeState struct {
	stale      bool
	gen        uint64
	refreshing bool
}

// Cache is the single owner of the last-known registry snapshot. Reads
// return the cached value immediately and revalidate in the background
// when stale; callers needing freshness use the Refresh methods. One
// logical writer (orchestrator-triggered refreshes), many readers.
type Cache struct {
	reader Reader
	lookup CredentialLookup
	logger *zap.Logger

	mu sync.Mutex

	price      *big.Int
	priceState scopeState

	owner       common.Address
	ownerLoaded bool
	ownerState  scopeState

	creds        []Credential
	credsLoaded  bool
	credsAccount common.Address
	credsState   scopeState
}

func NewCache(reader Reader, lookup CredentialLookup, logger *zap.Logger) *Cache {
	return &Cache{
		reader:     reader,
		lookup:     lookup,
		logger:     logger.Named("cache"),
		priceState: scopeState{stale: true},
		ownerState: scopeState{stale: true},
		credsState: scopeState{stale: true},
	}
}

// Invalidate marks a scope stale. The generation bump fences off any
// refresh already in flight.
func (c *Cache) Invalidate(scope Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(scope)
	st.stale = true
	st.gen++
	c.logger.Debug("Scope invalidated", zap.String("scope", string(scope)), zap.Uint64("generation", st.gen))
}

func (c *Cache) state(scope Scope) *scopeState {
	switch scope {
	case ScopePrice:
		return &c.priceState
	case ScopeOwner:
		return &c.ownerState
	default:
		return &c.credsState
	}
}

// Price returns the cached price and whether it has ever been loaded. A
// stale hit kicks one background revalidation; the stale value is still
// returned immediately.
func (c *Cache) Price() (*big.Int, bool) {
	c.mu.Lock()
	price, loaded := c.price, c.price != nil
	c.maybeRevalidate(ScopePrice, &c.priceState, func(ctx context.Context) error {
		_, err := c.RefreshPrice(ctx)
		return err
	})
	c.mu.Unlock()
	if !loaded {
		return nil, false
	}
	return new(big.Int).Set(price), true
}

// Owner returns the cached registry admin and whether it is loaded.
func (c *Cache) Owner() (common.Address, bool) {
	c.mu.Lock()
	owner, loaded := c.owner, c.ownerLoaded
	c.maybeRevalidate(ScopeOwner, &c.ownerState, func(ctx context.Context) error {
		_, err := c.RefreshOwner(ctx)
		return err
	})
	c.mu.Unlock()
	return owner, loaded
}

// Credentials returns the cached credential set for the account and
// whether a snapshot for that account exists. A different account than
// the cached one is a miss.
func (c *Cache) Credentials(account common.Address) ([]Credential, bool) {
	c.mu.Lock()
	hit := c.credsLoaded && c.credsAccount == account
	var creds []Credential
	if hit {
		creds = append(creds, c.creds...)
	}
	c.maybeRevalidate(ScopeCredentials, &c.credsState, func(ctx context.Context) error {
		_, err := c.RefreshCredentials(ctx, account)
		return err
	})
	c.mu.Unlock()
	return creds, hit
}

// maybeRevalidate starts one detached refresh if the scope is stale and
// none is running. Caller holds c.mu.
func (c *Cache) maybeRevalidate(scope Scope, st *scopeState, refresh func(ctx context.Context) error) {
	if !st.stale || st.refreshing {
		return
	}
	st.refreshing = true
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
		defer cancel()
		if err := refresh(ctx); err != nil {
			c.logger.Warn("Background refresh failed", zap.String("scope", string(scope)), zap.Error(err))
		}
		c.mu.Lock()
		st.refreshing = false
		c.mu.Unlock()
	}()
}

// RefreshPrice re-reads the price until a read completes under an
// unchanged generation, then stores and returns it. A failed read leaves
// the previous value in place.
func (c *Cache) RefreshPrice(ctx context.Context) (*big.Int, error) {
	for {
		c.mu.Lock()
		gen := c.priceState.gen
		c.mu.Unlock()

		price, err := c.reader.PricePerMonth(ctx)
		if err != nil {
			metrics.CacheRefreshes.WithLabelValues(string(ScopePrice), "error").Inc()
			return nil, err
		}

		c.mu.Lock()
		if gen == c.priceState.gen {
			c.price = price
			c.priceState.stale = false
			c.mu.Unlock()
			metrics.CacheRefreshes.WithLabelValues(string(ScopePrice), "ok").Inc()
			return new(big.Int).Set(price), nil
		}
		// Invalidated mid-read; this result predates the invalidating
		// event and must not be stored. Read again.
		c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// RefreshOwner re-reads the registry admin, with the same generation
// fencing as RefreshPrice.
func (c *Cache) RefreshOwner(ctx context.Context) (common.Address, error) {
	for {
		c.mu.Lock()
		gen := c.ownerState.gen
		c.mu.Unlock()

		owner, err := c.reader.Owner(ctx)
		if err != nil {
			metrics.CacheRefreshes.WithLabelValues(string(ScopeOwner), "error").Inc()
			return common.Address{}, err
		}

		c.mu.Lock()
		if gen == c.ownerState.gen {
			c.owner = owner
			c.ownerLoaded = true
			c.ownerState.stale = false
			c.mu.Unlock()
			metrics.CacheRefreshes.WithLabelValues(string(ScopeOwner), "ok").Inc()
			return owner, nil
		}
		c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return common.Address{}, err
		}
	}
}

// RefreshCredentials re-enumerates the account's credentials from a fresh
// balance read.
func (c *Cache) RefreshCredentials(ctx context.Context, account common.Address) ([]Credential, error) {
	for {
		c.mu.Lock()
		gen := c.credsState.gen
		c.mu.Unlock()

		balance, err := c.reader.BalanceOf(ctx, account)
		if err != nil {
			metrics.CacheRefreshes.WithLabelValues(string(ScopeCredentials), "error").Inc()
			return nil, err
		}
		creds, err := c.lookup.Enumerate(ctx, account, balance.Uint64())
		if err != nil {
			metrics.CacheRefreshes.WithLabelValues(string(ScopeCredentials), "error").Inc()
			return nil, err
		}

		c.mu.Lock()
		if gen == c.credsState.gen {
			c.creds = creds
			c.credsLoaded = true
			c.credsAccount = account
			c.credsState.stale = false
			c.mu.Unlock()
			metrics.CacheRefreshes.WithLabelValues(string(ScopeCredentials), "ok").Inc()
			return append([]Credential(nil), creds...), nil
		}
		c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}
