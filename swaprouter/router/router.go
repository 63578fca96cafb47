package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/rs/zerolog"
)

var routerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	routerLog = zerolog.New(out).With().Timestamp().Str("component", "router").Logger()
}

// SetLogger replaces the package logger, tagging it with component=router
func SetLogger(l zerolog.Logger) {
	routerLog = l.With().Str("component", "router").Logger()
}

// Router is the operation chain engine. It validates chains, quotes them forward and
// backward and turns them into continuation plans. It holds no balances itself; every
// read goes through the Queriers it was built with.
type Router struct {
	store *configStore
	q     Queriers
}

// New creates a Router from an initial config. The config is copied.
func New(cfg Config, q Queriers) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}
	if q.Pairs == nil || q.Native == nil || q.Balances == nil {
		return nil, errors.New("router requires pair, native and balance queriers")
	}
	if q.Tax == nil {
		q.Tax = NoTax{}
	}
	store := &configStore{}
	store.swap(cfg.clone())
	return &Router{store: store, q: q}, nil
}

// WithBalances returns a Router that shares this one's config but reads balances from b.
// Dry runs use it to point the minimum receive snapshot at a sandbox ledger.
func (r *Router) WithBalances(b BalanceQuerier) *Router {
	q := r.q
	q.Balances = b
	return &Router{store: r.store, q: q}
}

// Config returns the current factory addresses
func (r *Router) Config() models.ConfigResponse {
	return r.store.load().Response()
}

// ContractInfo returns the name and version recorded by the last instantiate or migration
func (r *Router) ContractInfo() ContractInfo {
	return r.store.contractInfo()
}

// Migrate atomically replaces the factory table. Calls in flight keep the config they started with.
func (r *Router) Migrate(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid router config: %w", err)
	}
	prev := r.store.load().Response()
	r.store.swap(cfg.clone())
	next := r.store.load().Response()
	routerLog.Info().
		Str("terraswap", next.TerraswapFactory).
		Str("loop", next.LoopFactory).
		Str("astroport", next.AstroportFactory).
		Bool("changed", prev != next).
		Msg("Router config migrated")
	return nil
}

// Query answers a read only QueryMsg with its typed response
func (r *Router) Query(ctx context.Context, msg models.QueryMsg) (any, error) {
	switch {
	case msg.Config != nil:
		return r.Config(), nil
	case msg.SimulateSwapOperations != nil:
		amount, err := r.SimulateSwapOperations(ctx, msg.SimulateSwapOperations.OfferAmount, msg.SimulateSwapOperations.Operations)
		if err != nil {
			return nil, err
		}
		return models.SimulateSwapOperationsResponse{Amount: amount}, nil
	case msg.ReverseSimulateSwapOperations != nil:
		amount, err := r.ReverseSimulateSwapOperations(ctx, msg.ReverseSimulateSwapOperations.AskAmount, msg.ReverseSimulateSwapOperations.Operations)
		if err != nil {
			return nil, err
		}
		return models.SimulateSwapOperationsResponse{Amount: amount}, nil
	}
	return nil, errors.New("query msg must have exactly one variant")
}

func (r *Router) lookupPair(ctx context.Context, cfg Config, op models.SwapOperation) (models.PairInfo, error) {
	factory, err := cfg.FactoryFor(op.Backend)
	if err != nil {
		return models.PairInfo{}, err
	}
	pair, err := r.q.Pairs.QueryPair(ctx, factory, [2]models.AssetInfo{op.Offer, op.Ask})
	if err != nil {
		return models.PairInfo{}, fmt.Errorf("%w: pair %s/%s on %s: %w", ErrBackendQuery, op.Offer, op.Ask, op.Backend, err)
	}
	return pair, nil
}

// deductTax returns amount minus the transfer tax on it
func (r *Router) deductTax(ctx context.Context, amount models.Uint128, denom string) (models.Uint128, error) {
	tax, err := r.q.Tax.ComputeTax(ctx, amount, denom)
	if err != nil {
		return models.Uint128{}, fmt.Errorf("%w: %w", ErrBackendQuery, err)
	}
	return amount.CheckedSub(tax)
}

// addReverseTax returns amount plus the tax needed for it to survive a send
func (r *Router) addReverseTax(ctx context.Context, amount models.Uint128, denom string) (models.Uint128, error) {
	tax, err := r.q.Tax.ComputeReverseTax(ctx, amount, denom)
	if err != nil {
		return models.Uint128{}, fmt.Errorf("%w: %w", ErrBackendQuery, err)
	}
	return amount.CheckedAdd(tax)
}
