package router

import (
	"fmt"
	"sort"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

/*
Validate checks that a chain collapses to exactly one output asset.

Each hop removes its offer asset from the set of unresolved outputs and adds its ask asset.
After the last hop exactly one asset must remain. The check is a reduction, not strict
adjacency: hops need not be back to back as long as the final set has one element.

Params:
  - ops: the chain in execution order

Returns:
  - ErrEmptyOperations for an empty chain
  - ErrMultipleOutputs when more than one asset is left unresolved
*/
func Validate(ops []models.SwapOperation) error {
	if len(ops) == 0 {
		return ErrEmptyOperations
	}
	unresolved := make(map[string]bool, len(ops))
	for _, op := range ops {
		delete(unresolved, op.Offer.String())
		unresolved[op.Ask.String()] = true
	}
	if len(unresolved) != 1 {
		outputs := make([]string, 0, len(unresolved))
		for k := range unresolved {
			outputs = append(outputs, k)
		}
		sort.Strings(outputs)
		return fmt.Errorf("%w: %v", ErrMultipleOutputs, outputs)
	}
	return nil
}

// Validate is the method form of the package level Validate
func (r *Router) Validate(ops []models.SwapOperation) error {
	return Validate(ops)
}
