package host

import (
	"context"
	"fmt"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
)

// SandboxDispatcher performs hops against a Ledger using quotes instead of real swaps.
// Like the on chain hop handler it offers the router's whole balance of the offer asset.
type SandboxDispatcher struct {
	router *router.Router
	ledger *Ledger
}

func NewSandboxDispatcher(r *router.Router, ledger *Ledger) *SandboxDispatcher {
	return &SandboxDispatcher{router: r, ledger: ledger}
}

func (d *SandboxDispatcher) ExecuteSwapOperation(ctx context.Context, env models.Env, msg models.ExecuteSwapOperation) (HopReceipt, error) {
	op := msg.Operation
	amount := d.ledger.Balance(op.Offer, env.ContractAddress)
	if amount.IsZero() {
		return HopReceipt{}, fmt.Errorf("router holds no %s to offer for %s", op.Offer, op)
	}

	recipient := env.ContractAddress
	last := msg.To != nil
	if last {
		recipient = *msg.To
	}

	out, err := d.router.SimulateHop(ctx, op, amount, last)
	if err != nil {
		return HopReceipt{}, err
	}
	if err := d.ledger.Debit(op.Offer, env.ContractAddress, amount); err != nil {
		return HopReceipt{}, err
	}
	if err := d.ledger.Credit(op.Ask, recipient, out); err != nil {
		return HopReceipt{}, err
	}

	hostLog.Debug().
		Str("operation", op.String()).
		Str("offer", amount.String()).
		Str("return", out.String()).
		Str("recipient", recipient).
		Msg("Sandbox hop executed")
	return HopReceipt{
		Operation: op,
		Offer:     models.Asset{Info: op.Offer, Amount: amount},
		Return:    models.Asset{Info: op.Ask, Amount: out},
		Recipient: recipient,
	}, nil
}

// DryRunResult is the outcome of a sandboxed execution
type DryRunResult struct {
	Plan     []models.ContinuationMessage `json:"plan"`
	Receipt  *Receipt                     `json:"receipt"`
	Receiver string                       `json:"receiver"`
	Received models.Uint128               `json:"received"`
}

/*
DryRun plans a chain and delivers the plan against a sandbox ledger.

The router is credited with offer before planning, as if the sender had attached it. The
minimum receive snapshot and assertion read the sandbox ledger, so a chain that would fail its
assertion fails here with *router.AssertionFailedError.

Params:
  - r: the router, its config and quote backends are shared
  - ledger: sandbox balances, may be pre-seeded with the receiver's existing holdings
  - offer: the asset the sender attaches

Returns:
  - the plan, the receipt and the amount the receiver gained
*/
func DryRun(
	ctx context.Context,
	r *router.Router,
	ledger *Ledger,
	env models.Env,
	sender string,
	offer models.Asset,
	req models.ExecuteSwapOperations,
) (*DryRunResult, error) {
	sandbox := r.WithBalances(ledger)
	if err := ledger.Credit(offer.Info, env.ContractAddress, offer.Amount); err != nil {
		return nil, err
	}

	refund := func() { _ = ledger.Debit(offer.Info, env.ContractAddress, offer.Amount) }

	plan, err := sandbox.Execute(ctx, env, sender, req)
	if err != nil {
		refund()
		return nil, err
	}

	receiver := sender
	if req.To != nil {
		receiver = *req.To
	}
	target := req.Operations[len(req.Operations)-1].TargetAssetInfo()
	before := ledger.Balance(target, receiver)

	h := New(env, sandbox, ledger, NewSandboxDispatcher(sandbox, ledger))
	receipt, err := h.Deliver(ctx, plan)
	if err != nil {
		refund()
		return nil, err
	}
	received, err := ledger.Balance(target, receiver).CheckedSub(before)
	if err != nil {
		return nil, err
	}
	return &DryRunResult{Plan: plan, Receipt: receipt, Receiver: receiver, Received: received}, nil
}
