package domain

import "errors"

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountArchived      = errors.New("account is archived")
	ErrNonPositiveAmount    = errors.New("amount must be positive")
	ErrInsufficientCredit   = errors.New("insufficient credit")
	ErrDuplicatePayment     = errors.New("duplicate merchant transaction id")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrInvalidSignature     = errors.New("invalid callback signature")
	ErrUnknownTransaction   = errors.New("unknown merchant transaction id")
)
