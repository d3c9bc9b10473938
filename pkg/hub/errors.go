package hub

import (
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/aboutcircles/circles-engine/pkg/ledger"
)

var (
	// ErrDuplicateAccount is returned when an id is registered twice.
	ErrDuplicateAccount = ierrors.New("account already registered")
	// ErrSelfTransfer is returned when sender and receiver coincide.
	ErrSelfTransfer = ierrors.New("cannot transfer to self")
	// ErrNoTrust is returned when the receiver holds no trust edge towards
	// the sender.
	ErrNoTrust = ierrors.New("receiver does not trust the sender")
	// ErrInsufficientTrust is returned when the trust edge cannot cover the
	// transferred amount.
	ErrInsufficientTrust = ierrors.New("trust capacity below the transferred amount")
	// ErrTrustExpired is returned when the trust edge's lifetime has elapsed.
	ErrTrustExpired = ierrors.New("trust edge expired")
	// ErrInvalidAmount is returned when an operation requires a positive
	// amount or duration and receives none.
	ErrInvalidAmount = ierrors.New("amount must be positive")
	// ErrInvalidRoute is returned when a multi hop transfer is requested on
	// a route with fewer than two accounts.
	ErrInvalidRoute = ierrors.New("route must span at least one hop")
)

// Ledger failures surface through the hub unchanged.
var (
	ErrUnknownAccount      = ledger.ErrUnknownAccount
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
)
