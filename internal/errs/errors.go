package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	// ErrInvalid covers malformed inputs such as a nil account id.
	ErrInvalid = errors.New("invalid")
	// ErrInvalidAmount marks an amount that is not positive after flooring
	// to ledger scale.
	ErrInvalidAmount = errors.New("invalid_amount")
)
