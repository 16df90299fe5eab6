package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/contracts"
)

// ledgerFixture fakes a registry where tokenOwners maps minted ids to
// their holders and every credential expires at expiry.
func ledgerFixture(tokenOwners map[uint64]common.Address, expiry int64) *stubReader {
	return &stubReader{
		ownerOfFn: func(ctx context.Context, id *big.Int) (common.Address, error) {
			owner, ok := tokenOwners[id.Uint64()]
			if !ok {
				return common.Address{}, fmt.Errorf("ownerOf reverted: %w", contracts.ErrTokenNotFound)
			}
			return owner, nil
		},
		expirationFn: func(ctx context.Context, id *big.Int) (*big.Int, error) {
			return big.NewInt(expiry), nil
		},
		validFn: func(ctx context.Context, id *big.Int) (bool, error) {
			return time.Now().Unix() < expiry, nil
		},
	}
}

func TestEnumerate(t *testing.T) {
	account := common.HexToAddress("0xAbCd00000000000000000000000000000000Ef12")
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	expiry := time.Now().Add(30 * 24 * time.Hour).Unix()
	logger := zap.NewNop()

	t.Run("finds exactly the account's credentials, ascending", func(t *testing.T) {
		reader := ledgerFixture(map[uint64]common.Address{
			2: other,
			3: account,
			5: account,
			8: other,
			9: account,
		}, expiry)
		e := NewEnumerator(reader, 1000, logger)

		creds, err := e.Enumerate(context.Background(), account, 3)
		require.NoError(t, err)
		require.Len(t, creds, 3)
		assert.Equal(t, uint64(3), creds[0].ID.Uint64())
		assert.Equal(t, uint64(5), creds[1].ID.Uint64())
		assert.Equal(t, uint64(9), creds[2].ID.Uint64())
		for _, cred := range creds {
			assert.Equal(t, account, cred.Owner)
			assert.True(t, cred.Valid)
			assert.Equal(t, time.Unix(expiry, 0), cred.Expiration)
		}
	})

	t.Run("hex case does not affect matching", func(t *testing.T) {
		// The same account spelled in lowercase parses to the same
		// canonical address, so matching is textual-case independent.
		lower := common.HexToAddress("0xabcd00000000000000000000000000000000ef12")
		reader := ledgerFixture(map[uint64]common.Address{1: lower}, expiry)
		e := NewEnumerator(reader, 1000, logger)

		creds, err := e.Enumerate(context.Background(), account, 1)
		require.NoError(t, err)
		assert.Len(t, creds, 1)
	})

	t.Run("stops probing once the balance hint is met", func(t *testing.T) {
		probes := 0
		reader := ledgerFixture(map[uint64]common.Address{1: account, 2: account}, expiry)
		inner := reader.ownerOfFn
		reader.ownerOfFn = func(ctx context.Context, id *big.Int) (common.Address, error) {
			probes++
			return inner(ctx, id)
		}
		e := NewEnumerator(reader, 1000, logger)

		creds, err := e.Enumerate(context.Background(), account, 2)
		require.NoError(t, err)
		assert.Len(t, creds, 2)
		assert.Equal(t, 2, probes)
	})

	t.Run("returns partial result at the probe bound", func(t *testing.T) {
		// Credential at id 50 sits beyond the bound; the hint promises
		// two but the scan only reaches one.
		reader := ledgerFixture(map[uint64]common.Address{1: account, 50: account}, expiry)
		e := NewEnumerator(reader, 10, logger)

		creds, err := e.Enumerate(context.Background(), account, 2)
		require.NoError(t, err)
		assert.Len(t, creds, 1)
		assert.Equal(t, uint64(1), creds[0].ID.Uint64())
	})

	t.Run("zero balance probes nothing", func(t *testing.T) {
		reader := ledgerFixture(nil, expiry)
		reader.ownerOfFn = func(ctx context.Context, id *big.Int) (common.Address, error) {
			t.Fatal("ownerOf should not be called")
			return common.Address{}, nil
		}
		e := NewEnumerator(reader, 1000, logger)

		creds, err := e.Enumerate(context.Background(), account, 0)
		require.NoError(t, err)
		assert.Empty(t, creds)
	})

	t.Run("ledger failure aborts the scan", func(t *testing.T) {
		reader := ledgerFixture(nil, expiry)
		reader.ownerOfFn = func(ctx context.Context, id *big.Int) (common.Address, error) {
			return common.Address{}, contracts.ErrLedgerUnavailable
		}
		e := NewEnumerator(reader, 1000, logger)

		_, err := e.Enumerate(context.Background(), account, 1)
		assert.ErrorIs(t, err, contracts.ErrLedgerUnavailable)
	})

	t.Run("cancelled context stops the scan", func(t *testing.T) {
		reader := ledgerFixture(nil, expiry)
		calls := 0
		ctx, cancel := context.WithCancel(context.Background())
		reader.ownerOfFn = func(_ context.Context, id *big.Int) (common.Address, error) {
			calls++
			cancel()
			return common.Address{}, fmt.Errorf("%w", contracts.ErrTokenNotFound)
		}
		e := NewEnumerator(reader, 1000, logger)

		_, err := e.Enumerate(ctx, account, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("restartable: same ledger state, same result", func(t *testing.T) {
		reader := ledgerFixture(map[uint64]common.Address{4: account, 7: account}, expiry)
		e := NewEnumerator(reader, 1000, logger)

		first, err := e.Enumerate(context.Background(), account, 2)
		require.NoError(t, err)
		second, err := e.Enumerate(context.Background(), account, 2)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestDaysRemaining(t *testing.T) {
	now := time.Now()
	cred := Credential{Expiration: now.Add(30*24*time.Hour + time.Minute)}
	assert.Equal(t, 31, cred.DaysRemaining(now))

	expired := Credential{Expiration: now.Add(-48 * time.Hour)}
	assert.LessOrEqual(t, expired.DaysRemaining(now), -2)
}

var errStub = errors.New("stub")
