package txmgr

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrSubmitRejected wraps a broadcast the network refused (insufficient
	// funds, nonce conflicts, reverting estimation). The underlying message
	// is kept verbatim; this layer does not decode ledger errors.
	ErrSubmitRejected = errors.New("transaction rejected")

	// ErrTxReverted marks a mined transaction whose receipt reports failure.
	ErrTxReverted = errors.New("transaction reverted")

	// ErrConfirmationTimeout marks a transaction still unmined when the
	// tracker gave up. The transaction may yet succeed on chain: callers
	// must present this as "status unknown", not as a definitive failure.
	ErrConfirmationTimeout = errors.New("confirmation timed out, transaction status unknown")
)

type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is the opaque reference to one broadcast transaction. It moves
// from pending to exactly one terminal state; terminal states are final.
// Done is closed once on the terminal transition, so any number of
// observers see at most one notification.
type Handle struct {
	hash        common.Hash
	method      string
	submittedAt time.Time

	mu     sync.RWMutex
	status Status
	err    error

	terminal sync.Once
	done     chan struct{}
}

// NewHandle wraps a broadcast transaction hash in a pending handle.
func NewHandle(hash common.Hash, method string) *Handle {
	return &Handle{
		hash:        hash,
		method:      method,
		submittedAt: time.Now(),
		status:      StatusPending,
		done:        make(chan struct{}),
	}
}

func (h *Handle) Hash() common.Hash { return h.hash }

func (h *Handle) Method() string { return h.method }

func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err returns the terminal failure reason, nil while pending or confirmed.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Done is closed when the handle reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// finish records the terminal state. Later calls are no-ops, which is what
// keeps the confirmed notification at-most-once under concurrent polling.
func (h *Handle) finish(status Status, err error) {
	h.terminal.Do(func() {
		h.mu.Lock()
		h.status = status
		h.err = err
		h.mu.Unlock()
		close(h.done)
	})
}
