// Package registry holds the locally cached view of the Membership
// registry's on-chain state and the credential enumeration that works
// around the contract having no reverse index.
package registry

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Reader is the read-only registry surface this package consumes,
// satisfied by contracts.Membership. One RPC per call, no retries.
type Reader interface {
	PricePerMonth(ctx context.Context) (*big.Int, error)
	Owner(ctx context.Context) (common.Address, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	OwnerOf(ctx context.Context, id *big.Int) (common.Address, error)
	GetExpiration(ctx context.Context, id *big.Int) (*big.Int, error)
	IsValid(ctx context.Context, id *big.Int) (bool, error)
}

// CredentialLookup produces the set of credentials an account holds.
// The default implementation is the brute-force Enumerator; an
// indexer-backed one can replace it without the callers noticing.
type CredentialLookup interface {
	Enumerate(ctx context.Context, account common.Address, balanceHint uint64) ([]Credential, error)
}

// Credential is the local copy of one membership record. It is only ever
// rebuilt from fresh registry reads, never edited in place.
type Credential struct {
	ID         *big.Int
	Owner      common.Address
	Expiration time.Time
	Valid      bool
}

// DaysRemaining reports whole days until expiration, rounded up, negative
// once expired.
func (c Credential) DaysRemaining(now time.Time) int {
	return int(math.Ceil(c.Expiration.Sub(now).Hours() / 24))
}
