package domain

import "errors"

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidState       = errors.New("invalid transaction state")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotFound           = errors.New("transaction not found")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrMalformedCallback  = errors.New("malformed gateway callback")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrDuplicateRequest   = errors.New("duplicate request")
)
