package escrow

import "errors"

var (
	ErrNilState           = errors.New("escrow: state not configured")
	ErrNilRoles           = errors.New("escrow: role registry not configured")
	ErrAlreadyInitialized = errors.New("escrow: already initialized")
	ErrNotInitialized     = errors.New("escrow: not initialized")
	ErrBountyExists       = errors.New("escrow: bounty already exists")
	ErrBountyNotFound     = errors.New("escrow: bounty not found")
	ErrFundsNotLocked     = errors.New("escrow: funds not locked")
	ErrDeadlineNotPassed  = errors.New("escrow: deadline not passed")
	ErrInvalidAmount      = errors.New("escrow: amount must be positive")
	ErrInvalidDeadline    = errors.New("escrow: deadline not in the future")
	ErrInvalidRefundMode  = errors.New("escrow: invalid refund mode")
	ErrRefundNotApproved  = errors.New("escrow: refund not approved")
	ErrInsufficientVault  = errors.New("escrow: insufficient vault balance")
	ErrBatchTooLarge      = errors.New("escrow: batch size out of range")
	ErrDuplicateBounty    = errors.New("escrow: duplicate bounty id in batch")
	ErrRateLimited        = errors.New("escrow: rate limited")
)
