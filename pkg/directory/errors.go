package directory

import "errors"

var (
	// ErrDuplicateCoordinator is returned when a coordinator ID registers
	// with a conflicting tunnel URL or role. A matching re-registration is
	// treated as a refresh, not a conflict.
	ErrDuplicateCoordinator = errors.New("coordinator already registered with different endpoint")

	// ErrUnknownCoordinator is returned for operations on an ID that was
	// never registered.
	ErrUnknownCoordinator = errors.New("unknown coordinator")

	// ErrWriteBudgetExhausted signals the backing store's daily write quota
	// is spent. Callers degrade gracefully: the write is skipped, in-memory
	// state stays authoritative, and the condition is logged.
	ErrWriteBudgetExhausted = errors.New("backing store write budget exhausted")
)
