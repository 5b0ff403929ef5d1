package registry

import "errors"

var (
	// ErrDuplicateWorker is returned by Register when the worker ID is
	// already present. Use Reregister for an idempotent capability update.
	ErrDuplicateWorker = errors.New("worker already registered")

	// ErrUnknownWorker is returned when the worker ID has never been
	// registered. Heartbeats do not auto-register.
	ErrUnknownWorker = errors.New("unknown worker")

	// ErrRegressionRejected is returned by Heartbeat when the reported
	// tasks_completed is lower than the stored counter. The counter is left
	// unchanged; the rest of the heartbeat still applies. Non-fatal.
	ErrRegressionRejected = errors.New("tasks_completed regression rejected")

	// ErrTierMismatch is returned by Reregister when the caller attempts to
	// change a worker's tier. Tier is immutable after registration.
	ErrTierMismatch = errors.New("tier is immutable")

	// ErrInvalidTier is returned when the tier is not one of GPU, SERVICE,
	// DATA.
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidCapabilities is returned when the capability payload carries
	// a variant that does not match the declared tier.
	ErrInvalidCapabilities = errors.New("capabilities do not match tier")
)
