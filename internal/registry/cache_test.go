package registry

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCachePrice(t *testing.T) {
	t.Run("unloaded until first refresh", func(t *testing.T) {
		reader := &stubReader{
			priceFn: func(ctx context.Context) (*big.Int, error) {
				return big.NewInt(100), nil
			},
		}
		c := NewCache(reader, &stubLookup{}, zap.NewNop())

		_, loaded := c.Price()
		assert.False(t, loaded)

		price, err := c.RefreshPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(100), price)

		cached, loaded := c.Price()
		assert.True(t, loaded)
		assert.Equal(t, big.NewInt(100), cached)
	})

	t.Run("failed refresh keeps last known good value", func(t *testing.T) {
		fail := false
		reader := &stubReader{
			priceFn: func(ctx context.Context) (*big.Int, error) {
				if fail {
					return nil, errStub
				}
				return big.NewInt(100), nil
			},
		}
		c := NewCache(reader, &stubLookup{}, zap.NewNop())

		_, err := c.RefreshPrice(context.Background())
		require.NoError(t, err)

		fail = true
		c.Invalidate(ScopePrice)
		_, err = c.RefreshPrice(context.Background())
		assert.ErrorIs(t, err, errStub)

		cached, loaded := c.Price()
		assert.True(t, loaded)
		assert.Equal(t, big.NewInt(100), cached)
	})

	t.Run("invalidate then refresh reads through", func(t *testing.T) {
		price := big.NewInt(100)
		var mu sync.Mutex
		reader := &stubReader{
			priceFn: func(ctx context.Context) (*big.Int, error) {
				mu.Lock()
				defer mu.Unlock()
				return new(big.Int).Set(price), nil
			},
		}
		c := NewCache(reader, &stubLookup{}, zap.NewNop())
		_, err := c.RefreshPrice(context.Background())
		require.NoError(t, err)

		// The confirmed set-price transaction changed the value on chain.
		mu.Lock()
		price = big.NewInt(250)
		mu.Unlock()
		c.Invalidate(ScopePrice)

		fresh, err := c.RefreshPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(250), fresh)

		cached, _ := c.Price()
		assert.Equal(t, big.NewInt(250), cached)
	})

	t.Run("stale read revalidates in the background", func(t *testing.T) {
		var mu sync.Mutex
		price := big.NewInt(100)
		reader := &stubReader{
			priceFn: func(ctx context.Context) (*big.Int, error) {
				mu.Lock()
				defer mu.Unlock()
				return new(big.Int).Set(price), nil
			},
		}
		c := NewCache(reader, &stubLookup{}, zap.NewNop())
		_, err := c.RefreshPrice(context.Background())
		require.NoError(t, err)

		mu.Lock()
		price = big.NewInt(300)
		mu.Unlock()
		c.Invalidate(ScopePrice)

		// Stale-while-revalidate: the old value comes back immediately.
		stale, loaded := c.Price()
		assert.True(t, loaded)
		assert.Equal(t, big.NewInt(100), stale)

		assert.Eventually(t, func() bool {
			v, _ := c.Price()
			return v != nil && v.Cmp(big.NewInt(300)) == 0
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("refresh started before an invalidation never wins", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		var calls int
		var mu sync.Mutex
		reader := &stubReader{
			priceFn: func(ctx context.Context) (*big.Int, error) {
				mu.Lock()
				calls++
				n := calls
				mu.Unlock()
				if n == 1 {
					close(started)
					<-release
					// Pre-invalidation view of the ledger.
					return big.NewInt(111), nil
				}
				return big.NewInt(222), nil
			},
		}
		c := NewCache(reader, &stubLookup{}, zap.NewNop())

		done := make(chan *big.Int, 1)
		go func() {
			v, err := c.RefreshPrice(context.Background())
			require.NoError(t, err)
			done <- v
		}()

		<-started
		// The invalidating event (a confirmed write) lands while the
		// first read is still in flight.
		c.Invalidate(ScopePrice)
		close(release)

		fresh := <-done
		assert.Equal(t, big.NewInt(222), fresh)

		cached, loaded := c.Price()
		require.True(t, loaded)
		assert.Equal(t, big.NewInt(222), cached)
	})
}

func TestCacheOwner(t *testing.T) {
	admin := common.HexToAddress("0xabc")
	reader := &stubReader{
		ownerFn: func(ctx context.Context) (common.Address, error) {
			return admin, nil
		},
	}
	c := NewCache(reader, &stubLookup{}, zap.NewNop())

	_, loaded := c.Owner()
	assert.False(t, loaded)

	owner, err := c.RefreshOwner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, admin, owner)

	cached, loaded := c.Owner()
	assert.True(t, loaded)
	assert.Equal(t, admin, cached)
}

func TestCacheCredentials(t *testing.T) {
	account := common.HexToAddress("0xdef")
	otherAccount := common.HexToAddress("0x123")
	creds := []Credential{{ID: big.NewInt(1), Owner: account, Valid: true}}

	reader := &stubReader{
		balanceFn: func(ctx context.Context, acc common.Address) (*big.Int, error) {
			return big.NewInt(1), nil
		},
	}
	lookup := &stubLookup{
		enumerateFn: func(ctx context.Context, acc common.Address, hint uint64) ([]Credential, error) {
			assert.Equal(t, uint64(1), hint)
			return creds, nil
		},
	}
	c := NewCache(reader, lookup, zap.NewNop())

	_, hit := c.Credentials(account)
	assert.False(t, hit)

	got, err := c.RefreshCredentials(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	cached, hit := c.Credentials(account)
	assert.True(t, hit)
	assert.Equal(t, creds, cached)

	// A snapshot for one account is a miss for another.
	_, hit = c.Credentials(otherAccount)
	assert.False(t, hit)
}
