package router

import (
	"context"
	"fmt"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

// decimalFraction is 1e18, the fixed point scale of the treasury tax rate
var decimalFraction = models.MustParseUint128("1000000000000000000")

// DefaultTaxExempt lists the denoms the treasury never taxes
var DefaultTaxExempt = []string{"uluna"}

// TreasuryTax computes transfer tax from the treasury rate and per denom cap
type TreasuryTax struct {
	querier TaxQuerier
	exempt  map[string]struct{}
}

// NewTreasuryTax returns a Taxer backed by q. A nil exempt list falls back to DefaultTaxExempt.
func NewTreasuryTax(q TaxQuerier, exempt []string) *TreasuryTax {
	if exempt == nil {
		exempt = DefaultTaxExempt
	}
	set := make(map[string]struct{}, len(exempt))
	for _, d := range exempt {
		set[d] = struct{}{}
	}
	return &TreasuryTax{querier: q, exempt: set}
}

// Exempt reports whether denom bears no tax
func (t *TreasuryTax) Exempt(denom string) bool {
	_, ok := t.exempt[denom]
	return ok
}

/*
ComputeTax returns the tax taken from amount when it is sent.

	tax = min(amount - amount * 1e18 / (1e18 * rate + 1e18), cap)

Params:
  - amount: the gross amount being sent
  - denom: native denom of the amount

Returns:
  - the tax, always <= amount
*/
func (t *TreasuryTax) ComputeTax(ctx context.Context, amount models.Uint128, denom string) (models.Uint128, error) {
	if t.Exempt(denom) || amount.IsZero() {
		return models.Uint128{}, nil
	}
	rate, err := t.querier.TaxRate(ctx)
	if err != nil {
		return models.Uint128{}, fmt.Errorf("failed to query tax rate: %w", err)
	}
	taxCap, err := t.querier.TaxCap(ctx, denom)
	if err != nil {
		return models.Uint128{}, fmt.Errorf("failed to query tax cap for %s: %w", denom, err)
	}

	scaledRate, err := decimalFraction.MulDecimalFloor(rate)
	if err != nil {
		return models.Uint128{}, err
	}
	den, err := scaledRate.CheckedAdd(decimalFraction)
	if err != nil {
		return models.Uint128{}, err
	}
	net, err := amount.MultiplyRatio(decimalFraction, den)
	if err != nil {
		return models.Uint128{}, err
	}
	tax, err := amount.CheckedSub(net)
	if err != nil {
		return models.Uint128{}, err
	}
	return tax.Min(taxCap), nil
}

// ComputeReverseTax returns min(amount * rate, cap), the tax to add on top of amount
func (t *TreasuryTax) ComputeReverseTax(ctx context.Context, amount models.Uint128, denom string) (models.Uint128, error) {
	if t.Exempt(denom) || amount.IsZero() {
		return models.Uint128{}, nil
	}
	rate, err := t.querier.TaxRate(ctx)
	if err != nil {
		return models.Uint128{}, fmt.Errorf("failed to query tax rate: %w", err)
	}
	taxCap, err := t.querier.TaxCap(ctx, denom)
	if err != nil {
		return models.Uint128{}, fmt.Errorf("failed to query tax cap for %s: %w", denom, err)
	}
	tax, err := amount.MulDecimalFloor(rate)
	if err != nil {
		return models.Uint128{}, err
	}
	return tax.Min(taxCap), nil
}

// NoTax is a Taxer for chains without a transfer tax
type NoTax struct{}

func (NoTax) ComputeTax(context.Context, models.Uint128, string) (models.Uint128, error) {
	return models.Uint128{}, nil
}

func (NoTax) ComputeReverseTax(context.Context, models.Uint128, string) (models.Uint128, error) {
	return models.Uint128{}, nil
}
