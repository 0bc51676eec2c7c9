package rbac

import "errors"

var (
	ErrNilState      = errors.New("rbac: state not configured")
	ErrUnauthorized  = errors.New("rbac: unauthorized")
	ErrInvalidRole   = errors.New("rbac: invalid role")
	ErrAlreadyPaused = errors.New("rbac: contract already paused")
	ErrNotPaused     = errors.New("rbac: contract not paused")
)
