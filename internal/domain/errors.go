package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidOrder   = errors.New("invalid order parameters")
	ErrSigningFailed  = errors.New("signing failed")
	ErrNotConnected   = errors.New("wallet not connected")
	ErrUserRejected   = errors.New("rejected by user")
	ErrTxAborted      = errors.New("transaction aborted")
	ErrConfirmTimeout = errors.New("transaction confirmation timed out")
	ErrSplitRequired  = errors.New("insufficient position balance, split required")
	ErrContextDone    = errors.New("context cancelled")
)
