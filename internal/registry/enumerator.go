package registry

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gymlabs/membership-client/internal/contracts"
	"github.com/gymlabs/membership-client/internal/metrics"
)

// Enumerator derives the credentials an account holds by probing ids in
// ascending order, since the registry exposes no enumeration-by-owner
// call. The scan is bounded by maxProbe: credentials minted beyond that id
// are not discovered, which is a documented limitation of the approach,
// not an error. Results are deterministic for unchanged ledger state and
// always sorted ascending by id.
type Enumerator struct {
	reader   Reader
	maxProbe uint64
	logger   *zap.Logger
}

func NewEnumerator(reader Reader, maxProbe uint64, logger *zap.Logger) *Enumerator {
	return &Enumerator{
		reader:   reader,
		maxProbe: maxProbe,
		logger:   logger.Named("enumerator"),
	}
}

// Enumerate probes ids 1..maxProbe until balanceHint credentials are
// found. Ids with no credential are skipped; an unreachable ledger aborts
// the scan. If the bound is hit first, the partial result is returned.
func (e *Enumerator) Enumerate(ctx context.Context, account common.Address, balanceHint uint64) ([]Credential, error) {
	found := make([]Credential, 0, balanceHint)

	for id := uint64(1); id <= e.maxProbe && uint64(len(found)) < balanceHint; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tokenID := new(big.Int).SetUint64(id)
		metrics.EnumeratorProbes.Inc()
		owner, err := e.reader.OwnerOf(ctx, tokenID)
		if errors.Is(err, contracts.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// common.Address is the canonical 20-byte form, so this equality
		// is unaffected by hex case at the boundary.
		if owner != account {
			continue
		}

		expiration, err := e.reader.GetExpiration(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		valid, err := e.reader.IsValid(ctx, tokenID)
		if err != nil {
			return nil, err
		}

		found = append(found, Credential{
			ID:         tokenID,
			Owner:      owner,
			Expiration: time.Unix(expiration.Int64(), 0),
			Valid:      valid,
		})
	}

	if uint64(len(found)) < balanceHint {
		metrics.EnumeratorPartialScans.Inc()
		e.logger.Warn("Probe bound reached before finding every credential",
			zap.String("account", account.Hex()),
			zap.Uint64("balance", balanceHint),
			zap.Int("found", len(found)),
			zap.Uint64("maxProbe", e.maxProbe))
	}

	return found, nil
}
