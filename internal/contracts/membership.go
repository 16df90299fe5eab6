package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/fixtures"
	"github.com/gymlabs/membership-client/pkg/ethclient"
)

var (
	// ErrLedgerUnavailable wraps transport-level read failures. Reads are
	// not retried here; retry policy belongs to the caller.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrTokenNotFound is returned by the id-keyed getters when the
	// registry has no credential at that id. Benign during enumeration.
	ErrTokenNotFound = errors.New("no credential at id")
)

// Membership is the read-side binding for the Membership registry
// contract. Every method issues exactly one eth_call and is side-effect
// free; writes go through txmgr.Submitter against the same ABI.
type Membership struct {
	client          ethclient.EthClient
	contractAddress common.Address
	contractABI     abi.ABI
	logger          *zap.Logger
}

func NewMembership(client ethclient.EthClient, contractAddress common.Address, logger *zap.Logger) (*Membership, error) {
	parsedABI, err := abi.JSON(strings.NewReader(fixtures.MembershipABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Membership ABI: %w", err)
	}

	return &Membership{
		client:          client,
		contractAddress: contractAddress,
		contractABI:     parsedABI,
		logger:          logger.Named("membership"),
	}, nil
}

// Address returns the registry address this binding talks to.
func (m *Membership) Address() common.Address {
	return m.contractAddress
}

// ABI returns the parsed registry ABI, shared with the transaction
// submitter so calldata packing stays consistent with reads.
func (m *Membership) ABI() abi.ABI {
	return m.contractABI
}

func (m *Membership) call(ctx context.Context, out interface{}, methodName string, args ...interface{}) error {
	callData, err := m.contractABI.Pack(methodName, args...)
	if err != nil {
		m.logger.Error("Failed to pack call data", zap.String("method", methodName), zap.Error(err))
		return fmt.Errorf("failed to pack data for %s: %w", methodName, err)
	}

	msg := ethereum.CallMsg{
		To:   &m.contractAddress,
		Data: callData,
	}
	result, err := m.client.CallContract(ctx, msg, nil)
	if err != nil {
		if isRevert(err) {
			return fmt.Errorf("%s reverted: %w", methodName, ErrTokenNotFound)
		}
		m.logger.Error("Contract call failed",
			zap.String("method", methodName),
			zap.String("contractAddress", m.contractAddress.Hex()),
			zap.Error(err))
		return fmt.Errorf("failed to call %s: %w: %v", methodName, ErrLedgerUnavailable, err)
	}
	if len(result) == 0 {
		// Some backends answer a reverted eth_call with empty return data
		// instead of an error.
		return fmt.Errorf("%s returned no data: %w", methodName, ErrTokenNotFound)
	}

	if err := m.contractABI.UnpackIntoInterface(out, methodName, result); err != nil {
		m.logger.Error("Failed to unpack call result", zap.String("method", methodName), zap.Error(err))
		return fmt.Errorf("failed to unpack %s result: %w", methodName, err)
	}
	return nil
}

// PricePerMonth reads the current price of one membership period, in wei.
func (m *Membership) PricePerMonth(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	if err := m.call(ctx, &price, "pricePerMonth"); err != nil {
		return nil, err
	}
	return price, nil
}

// Owner reads the registry's admin account.
func (m *Membership) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	if err := m.call(ctx, &owner, "owner"); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// BalanceOf reads how many credentials the account holds.
func (m *Membership) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := m.call(ctx, &balance, "balanceOf", account); err != nil {
		return nil, err
	}
	return balance, nil
}

// OwnerOf reads the holder of the credential with the given id. Ids the
// registry never minted return ErrTokenNotFound.
func (m *Membership) OwnerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	var owner common.Address
	if err := m.call(ctx, &owner, "ownerOf", id); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// GetExpiration reads the unix expiration timestamp of a credential.
func (m *Membership) GetExpiration(ctx context.Context, id *big.Int) (*big.Int, error) {
	var expiration *big.Int
	if err := m.call(ctx, &expiration, "getExpiration", id); err != nil {
		return nil, err
	}
	return expiration, nil
}

// IsValid reads whether a credential is still within its paid period.
func (m *Membership) IsValid(ctx context.Context, id *big.Int) (bool, error) {
	var valid bool
	if err := m.call(ctx, &valid, "isValid", id); err != nil {
		return false, err
	}
	return valid, nil
}

// isRevert tells a contract-side revert apart from a transport failure.
// go-ethereum surfaces reverted eth_calls as an rpc error whose message
// carries "execution reverted".
func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}
