package models

import "errors"

// Error kinds surfaced by the reconciliation protocol. Handlers map
// each to a distinct HTTP status so callers can tell "retry the
// checkout" from "contact support" from "already handled".
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrMalformedCallback  = errors.New("malformed callback")
	ErrUnknownOrder       = errors.New("unknown order")
	ErrOrderExpired       = errors.New("order expired")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)
