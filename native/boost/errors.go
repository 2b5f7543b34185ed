package boost

import "errors"

var (
	ErrUnauthorized    = errors.New("boost: unauthorized")
	ErrInvalidConfig   = errors.New("boost: invalid config")
	ErrAmountOverflow  = errors.New("boost: amount overflows 256 bits")
	ErrInvalidAmount   = errors.New("boost: amount must be positive")
	ErrTransferFailed  = errors.New("boost: reserve transfer failed")
	ErrNoPendingOwner  = errors.New("boost: no pending owner")
	ErrNotPendingOwner = errors.New("boost: caller is not the pending owner")
)
