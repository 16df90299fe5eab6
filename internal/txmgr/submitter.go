package txmgr

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/metrics"
	"github.com/gymlabs/membership-client/internal/wallet"
	"github.com/gymlabs/membership-client/pkg/ethclient"
)

// Submitter signs and broadcasts state-changing registry calls. It returns
// as soon as the transaction is on the wire; confirmation is the Tracker's
// job.
type Submitter struct {
	client          ethclient.EthClient
	wallet          *wallet.Wallet
	chainID         *big.Int
	contractAddress common.Address
	contractABI     abi.ABI
	logger          *zap.Logger
}

func NewSubmitter(
	client ethclient.EthClient,
	w *wallet.Wallet,
	chainID *big.Int,
	contractAddress common.Address,
	contractABI abi.ABI,
	logger *zap.Logger,
) *Submitter {
	return &Submitter{
		client:          client,
		wallet:          w,
		chainID:         chainID,
		contractAddress: contractAddress,
		contractABI:     contractABI,
		logger:          logger.Named("submitter"),
	}
}

// Submit packs, signs and broadcasts one transaction calling methodName
// with the given attached value. Exactly one broadcast per call; the
// returned handle starts out pending.
func (s *Submitter) Submit(ctx context.Context, methodName string, value *big.Int, args ...interface{}) (*Handle, error) {
	if s.wallet == nil {
		return nil, wallet.ErrWalletNotConnected
	}
	from := s.wallet.Address()

	callData, err := s.contractABI.Pack(methodName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack data for %s: %w", methodName, err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &s.contractAddress,
		Value: value,
		Data:  callData,
	}
	gasLimit, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		// Estimation runs the call; insufficient funds and reverts
		// surface here before anything is broadcast.
		return nil, fmt.Errorf("%w: %s: %v", ErrSubmitRejected, methodName, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &s.contractAddress,
		Value:    value,
		Data:     callData,
	})

	signedTx, err := s.wallet.SignTx(tx, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s transaction: %w", methodName, err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSubmitRejected, methodName, err)
	}

	metrics.TxSubmitted.WithLabelValues(methodName).Inc()
	s.logger.Info("Transaction broadcast",
		zap.String("method", methodName),
		zap.String("hash", signedTx.Hash().Hex()),
		zap.Uint64("nonce", nonce))

	return NewHandle(signedTx.Hash(), methodName), nil
}
