package program

import "errors"

var (
	ErrNilState            = errors.New("program: state not configured")
	ErrNilRoles            = errors.New("program: role registry not configured")
	ErrAlreadyInitialized  = errors.New("program: program already initialized")
	ErrProgramNotFound     = errors.New("program: program not found")
	ErrScheduleNotFound    = errors.New("program: schedule not found")
	ErrScheduleNotUnlocked = errors.New("program: schedule not yet unlocked")
	ErrScheduleConsumed    = errors.New("program: schedule already consumed")
	ErrInvalidAmount       = errors.New("program: amount must be positive")
	ErrInsufficientBalance = errors.New("program: insufficient remaining balance")
	ErrBatchTooLarge       = errors.New("program: batch size out of range")
	ErrBatchLengthMismatch = errors.New("program: recipients and amounts length mismatch")
	ErrPayoutCapExceeded   = errors.New("program: amount exceeds configured cap")
	ErrRecipientNotAllowed = errors.New("program: recipient not whitelisted")
	ErrInsufficientVault   = errors.New("program: insufficient vault balance")
	ErrRateLimited         = errors.New("program: rate limited")
)
