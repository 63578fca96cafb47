package router

import (
	"context"
	"errors"
	"fmt"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

// AssertDeadline fails with ErrExpired when blockTime is past deadline. A nil deadline never expires.
func AssertDeadline(blockTime uint64, deadline *uint64) error {
	if deadline != nil && blockTime > *deadline {
		return fmt.Errorf("%w: deadline %d, block time %d", ErrExpired, *deadline, blockTime)
	}
	return nil
}

/*
Execute turns a chain into the continuation plan the host delivers after this call returns.

One execute_swap_operation is emitted per hop, all addressed to the router itself. Only the
last hop carries the receiver. With a minimum receive, the receiver's balance of the final
asset is read before the plan is built and an assert_minimum_receive is appended.

Params:
  - env: block time and the router's own address
  - sender: the account that submitted the chain, used as the receiver when req.To is nil
  - req: the chain and its optional minimum receive, receiver and deadline

Returns:
  - the ordered continuation messages
  - ErrExpired, ErrEmptyOperations, ErrMultipleOutputs or a balance query error; no plan is
    returned on error
*/
func (r *Router) Execute(ctx context.Context, env models.Env, sender string, req models.ExecuteSwapOperations) ([]models.ContinuationMessage, error) {
	if err := AssertDeadline(env.BlockTime, req.Deadline); err != nil {
		return nil, err
	}
	if len(req.Operations) == 0 {
		return nil, ErrEmptyOperations
	}
	if err := Validate(req.Operations); err != nil {
		return nil, err
	}

	to := sender
	if req.To != nil {
		to = *req.To
	}
	if to == "" {
		return nil, errors.New("receiver address is required")
	}
	target := req.Operations[len(req.Operations)-1].TargetAssetInfo()

	// the snapshot must be taken before any hop runs
	var prevBalance models.Uint128
	if req.MinimumReceive != nil {
		bal, err := r.q.Balances.QueryBalance(ctx, target, to)
		if err != nil {
			return nil, fmt.Errorf("%w: balance of %s for %s: %w", ErrBackendQuery, target, to, err)
		}
		prevBalance = bal
	}

	msgs := make([]models.ContinuationMessage, 0, len(req.Operations)+1)
	for i, op := range req.Operations {
		hop := &models.ExecuteSwapOperation{Operation: op}
		if i == len(req.Operations)-1 {
			receiver := to
			hop.To = &receiver
		}
		msgs = append(msgs, selfMessage(env, models.ExecuteMsg{ExecuteSwapOperation: hop}))
	}

	if req.MinimumReceive != nil {
		msgs = append(msgs, selfMessage(env, models.ExecuteMsg{AssertMinimumReceive: &models.AssertMinimumReceive{
			AssetInfo:      target,
			PrevBalance:    prevBalance,
			MinimumReceive: *req.MinimumReceive,
			Receiver:       to,
		}}))
	}

	routerLog.Info().
		Str("sender", sender).
		Str("receiver", to).
		Str("target", target.String()).
		Int("hops", len(req.Operations)).
		Bool("assert", req.MinimumReceive != nil).
		Msg("Planned swap operations")
	return msgs, nil
}

func selfMessage(env models.Env, msg models.ExecuteMsg) models.ContinuationMessage {
	return models.ContinuationMessage{
		ContractAddr: env.ContractAddress,
		Funds:        []models.Coin{},
		Msg:          msg,
	}
}

// Receive handles a CW20 send to the router. The CW20 sender, not the token contract,
// becomes the chain sender.
func (r *Router) Receive(ctx context.Context, env models.Env, msg models.Cw20ReceiveMsg) ([]models.ContinuationMessage, error) {
	if msg.Sender == "" {
		return nil, errors.New("cw20 sender is required")
	}
	req, err := models.DecodeHookMsg(msg.Msg)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, env, msg.Sender, *req)
}

// AssertMinimumReceive fails with *AssertionFailedError when the receiver's balance grew by
// less than the minimum since the snapshot. A balance below the snapshot is an underflow.
func (r *Router) AssertMinimumReceive(ctx context.Context, msg models.AssertMinimumReceive) error {
	current, err := r.q.Balances.QueryBalance(ctx, msg.AssetInfo, msg.Receiver)
	if err != nil {
		return fmt.Errorf("%w: balance of %s for %s: %w", ErrBackendQuery, msg.AssetInfo, msg.Receiver, err)
	}
	received, err := current.CheckedSub(msg.PrevBalance)
	if err != nil {
		return err
	}
	if received.LT(msg.MinimumReceive) {
		routerLog.Warn().
			Str("receiver", msg.Receiver).
			Str("required", msg.MinimumReceive.String()).
			Str("received", received.String()).
			Msg("Minimum receive assertion failed")
		return &AssertionFailedError{Required: msg.MinimumReceive, Actual: received}
	}
	return nil
}
