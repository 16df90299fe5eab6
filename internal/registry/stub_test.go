package registry

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// stubReader lets each test script the registry's answers without a
// ledger.
type stubReader struct {
	priceFn      func(ctx context.Context) (*big.Int, error)
	ownerFn      func(ctx context.Context) (common.Address, error)
	balanceFn    func(ctx context.Context, account common.Address) (*big.Int, error)
	ownerOfFn    func(ctx context.Context, id *big.Int) (common.Address, error)
	expirationFn func(ctx context.Context, id *big.Int) (*big.Int, error)
	validFn      func(ctx context.Context, id *big.Int) (bool, error)
}

func (s *stubReader) PricePerMonth(ctx context.Context) (*big.Int, error) {
	return s.priceFn(ctx)
}

func (s *stubReader) Owner(ctx context.Context) (common.Address, error) {
	return s.ownerFn(ctx)
}

func (s *stubReader) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.balanceFn(ctx, account)
}

func (s *stubReader) OwnerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	return s.ownerOfFn(ctx, id)
}

func (s *stubReader) GetExpiration(ctx context.Context, id *big.Int) (*big.Int, error) {
	return s.expirationFn(ctx, id)
}

func (s *stubReader) IsValid(ctx context.Context, id *big.Int) (bool, error) {
	return s.validFn(ctx, id)
}

type stubLookup struct {
	enumerateFn func(ctx context.Context, account common.Address, balanceHint uint64) ([]Credential, error)
}

func (s *stubLookup) Enumerate(ctx context.Context, account common.Address, balanceHint uint64) ([]Credential, error) {
	return s.enumerateFn(ctx, account, balanceHint)
}
