package protocol

import (
	"errors"

	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/economy"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Simulation lookups.
	ErrUnknownCommodity  = "E_UNKNOWN_COMMODITY"
	ErrUnknownPlanet     = "E_UNKNOWN_PLANET"
	ErrInsufficientStock = "E_INSUFFICIENT_STOCK"
	ErrRouteInvalid      = "E_ROUTE_INVALID"

	ErrBadRequest = "E_BAD_REQUEST"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrConflict   = "E_CONFLICT"
	ErrStale      = "E_STALE"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrUnknownCommodity:  {},
	ErrUnknownPlanet:     {},
	ErrInsufficientStock: {},
	ErrRouteInvalid:      {},
	ErrBadRequest:        {},
	ErrRateLimit:         {},
	ErrConflict:          {},
	ErrStale:             {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodedError is a sentinel that carries its wire code.
type CodedError struct {
	Code string
	Msg  string
}

func (e *CodedError) Error() string { return e.Msg }

func NewCodedError(code, msg string) error { return &CodedError{Code: code, Msg: msg} }

// CodeFor maps a library error to its wire code. nil maps to "".
func CodeFor(err error) string {
	if err == nil {
		return ""
	}
	var ce *CodedError
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, catalogs.ErrUnknownCommodity):
		return ErrUnknownCommodity
	case errors.Is(err, economy.ErrInsufficientStock):
		return ErrInsufficientStock
	}
	return ErrInternal
}
