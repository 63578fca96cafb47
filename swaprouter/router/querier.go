package router

import (
	"context"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/shopspring/decimal"
)

// PairQuerier resolves pairs against a backend factory and quotes them.
// Every AMM backend shares this interface and differs only in the factory address.
type PairQuerier interface {
	// QueryPair fails if the factory has no pair for the unordered asset pair
	QueryPair(ctx context.Context, factory string, assetInfos [2]models.AssetInfo) (models.PairInfo, error)
	// Simulate returns the gross return amount for the offer
	Simulate(ctx context.Context, pair string, offer models.Asset) (models.Uint128, error)
	// ReverseSimulate returns the gross offer amount needed to receive ask
	ReverseSimulate(ctx context.Context, pair string, ask models.Asset) (models.Uint128, error)
}

// NativeQuerier quotes the host chain's market module
type NativeQuerier interface {
	NativeQuote(ctx context.Context, offer models.Coin, askDenom string) (models.Uint128, error)
}

// TaxQuerier reads the treasury parameters the transfer tax is computed from
type TaxQuerier interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
	TaxCap(ctx context.Context, denom string) (models.Uint128, error)
}

// Taxer computes transfer tax on native denoms
type Taxer interface {
	// ComputeTax is the tax deducted when amount is sent
	ComputeTax(ctx context.Context, amount models.Uint128, denom string) (models.Uint128, error)
	// ComputeReverseTax is the tax to add so that amount survives a send
	ComputeReverseTax(ctx context.Context, amount models.Uint128, denom string) (models.Uint128, error)
}

// BalanceQuerier reads the balance of a native denom or CW20 token
type BalanceQuerier interface {
	QueryBalance(ctx context.Context, asset models.AssetInfo, address string) (models.Uint128, error)
}

// Queriers bundles the collaborators the router reads from
type Queriers struct {
	Pairs    PairQuerier
	Native   NativeQuerier
	Tax      Taxer
	Balances BalanceQuerier
}
