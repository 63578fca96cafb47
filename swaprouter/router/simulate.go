package router

import (
	"context"
	"fmt"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

// SimulateSwapOperations quotes the amount the chain returns for offerAmount.
// It reads only; nothing is scheduled.
func (r *Router) SimulateSwapOperations(ctx context.Context, offerAmount models.Uint128, ops []models.SwapOperation) (models.Uint128, error) {
	if len(ops) == 0 {
		return models.Uint128{}, ErrEmptyOperations
	}
	cfg := r.store.load()
	amount := offerAmount
	for i, op := range ops {
		out, err := r.simulateHop(ctx, cfg, op, amount, i == len(ops)-1)
		if err != nil {
			return models.Uint128{}, fmt.Errorf("hop %d: %w", i, err)
		}
		routerLog.Debug().
			Int("hop", i).
			Str("operation", op.String()).
			Str("in", amount.String()).
			Str("out", out.String()).
			Msg("Simulated hop")
		amount = out
	}
	return amount, nil
}

// SimulateHop quotes a single hop with the same tax rules as a full chain. last marks the
// final hop of a chain, whose native_swap output is sent on to the receiver.
func (r *Router) SimulateHop(ctx context.Context, op models.SwapOperation, amount models.Uint128, last bool) (models.Uint128, error) {
	return r.simulateHop(ctx, r.store.load(), op, amount, last)
}

func (r *Router) simulateHop(ctx context.Context, cfg Config, op models.SwapOperation, amount models.Uint128, last bool) (models.Uint128, error) {
	switch {
	case op.Backend == models.BackendNative:
		offer := amount
		// the last native hop is a swap and send, which pays tax on the send
		if last {
			var err error
			if offer, err = r.deductTax(ctx, offer, op.Offer.Denom); err != nil {
				return models.Uint128{}, err
			}
		}
		out, err := r.q.Native.NativeQuote(ctx, models.Coin{Denom: op.Offer.Denom, Amount: offer}, op.Ask.Denom)
		if err != nil {
			return models.Uint128{}, fmt.Errorf("%w: native quote %s: %w", ErrBackendQuery, op, err)
		}
		return out, nil

	case op.Backend.IsAMM():
		pair, err := r.lookupPair(ctx, cfg, op)
		if err != nil {
			return models.Uint128{}, err
		}
		offer := amount
		if op.Offer.IsNative() {
			if offer, err = r.deductTax(ctx, offer, op.Offer.Denom); err != nil {
				return models.Uint128{}, err
			}
		}
		out, err := r.q.Pairs.Simulate(ctx, pair.ContractAddr, models.Asset{Info: op.Offer, Amount: offer})
		if err != nil {
			return models.Uint128{}, fmt.Errorf("%w: simulate on %s: %w", ErrBackendQuery, pair.ContractAddr, err)
		}
		if op.Ask.IsNative() {
			if out, err = r.deductTax(ctx, out, op.Ask.Denom); err != nil {
				return models.Uint128{}, err
			}
		}
		return out, nil
	}
	return models.Uint128{}, fmt.Errorf("%w %q", ErrUnknownBackend, op.Backend)
}
