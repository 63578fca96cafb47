package router

import (
	"context"
	"fmt"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

// ReverseSimulateSwapOperations returns the offer amount the payer must supply for the chain
// to return askAmount. Hops are walked last to first; any native_swap hop fails the call.
func (r *Router) ReverseSimulateSwapOperations(ctx context.Context, askAmount models.Uint128, ops []models.SwapOperation) (models.Uint128, error) {
	if len(ops) == 0 {
		return models.Uint128{}, ErrEmptyOperations
	}
	cfg := r.store.load()
	amount := askAmount
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.Backend == models.BackendNative {
			return models.Uint128{}, fmt.Errorf("hop %d: %w", i, ErrReverseNativeUnsupported)
		}
		if !op.Backend.IsAMM() {
			return models.Uint128{}, fmt.Errorf("hop %d: %w %q", i, ErrUnknownBackend, op.Backend)
		}

		pair, err := r.lookupPair(ctx, cfg, op)
		if err != nil {
			return models.Uint128{}, fmt.Errorf("hop %d: %w", i, err)
		}
		offer, err := r.q.Pairs.ReverseSimulate(ctx, pair.ContractAddr, models.Asset{Info: op.Ask, Amount: amount})
		if err != nil {
			return models.Uint128{}, fmt.Errorf("hop %d: %w: reverse simulate on %s: %w", i, ErrBackendQuery, pair.ContractAddr, err)
		}
		// the payer of this hop is taxed when sending a native offer
		if op.Offer.IsNative() {
			if offer, err = r.addReverseTax(ctx, offer, op.Offer.Denom); err != nil {
				return models.Uint128{}, fmt.Errorf("hop %d: %w", i, err)
			}
		}
		routerLog.Debug().
			Int("hop", i).
			Str("operation", op.String()).
			Str("ask", amount.String()).
			Str("offer", offer.String()).
			Msg("Reverse simulated hop")
		amount = offer
	}
	return amount, nil
}
