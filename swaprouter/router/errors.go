package router

import (
	"errors"
	"fmt"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

var (
	// ErrEmptyOperations is returned by validation, simulation and execution for an empty chain
	ErrEmptyOperations = errors.New("must provide operations")
	// ErrMultipleOutputs means the chain does not collapse to a single final asset
	ErrMultipleOutputs = errors.New("invalid operations; multiple output token")
	// ErrExpired is returned when the block time is past the caller's deadline
	ErrExpired = errors.New("expired deadline")
	// ErrReverseNativeUnsupported is returned by reverse simulation for any native_swap hop
	ErrReverseNativeUnsupported = errors.New("reverse simulation of native_swap is not supported yet")
	// ErrUnknownBackend is returned for a hop whose backend the router cannot dispatch
	ErrUnknownBackend = errors.New("unknown swap backend")
	// ErrBackendQuery wraps every collaborator failure (pair lookup, quotes, tax, balances)
	ErrBackendQuery = errors.New("backend query failed")
)

// AssertionFailedError is returned when a chain delivered less than the minimum receive amount
type AssertionFailedError struct {
	Required models.Uint128
	Actual   models.Uint128
}

func (e *AssertionFailedError) Error() string {
	return fmt.Sprintf("assertion failed; minimum receive amount: %s, swap amount: %s", e.Required, e.Actual)
}
