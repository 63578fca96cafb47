package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/rs/zerolog"
)

var hostLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	hostLog = zerolog.New(out).With().Timestamp().Str("component", "host").Logger()
}

// SetLogger replaces the package logger, tagging it with component=host
func SetLogger(l zerolog.Logger) {
	hostLog = l.With().Str("component", "host").Logger()
}

// maxMessages bounds how many continuations one delivery may run, nested plans included
const maxMessages = 64

// ErrUnauthorized is returned when a continuation is addressed to another contract
var ErrUnauthorized = errors.New("unauthorized")

// HopReceipt records what one hop moved
type HopReceipt struct {
	Operation models.SwapOperation `json:"operation"`
	Offer     models.Asset         `json:"offer"`
	Return    models.Asset         `json:"return"`
	Recipient string               `json:"recipient"`
}

// Receipt summarises a successful delivery
type Receipt struct {
	Delivered int          `json:"delivered"`
	Hops      []HopReceipt `json:"hops"`
}

// Dispatcher performs a single hop. It is the only place funds move through a backend.
type Dispatcher interface {
	ExecuteSwapOperation(ctx context.Context, env models.Env, msg models.ExecuteSwapOperation) (HopReceipt, error)
}

// Host models the execution substrate: continuations are delivered one at a time in order
// inside a ledger transaction, and the first failure undoes everything delivered before it.
type Host struct {
	env        models.Env
	router     *router.Router
	ledger     *Ledger
	dispatcher Dispatcher
}

func New(env models.Env, r *router.Router, ledger *Ledger, dispatcher Dispatcher) *Host {
	return &Host{env: env, router: r, ledger: ledger, dispatcher: dispatcher}
}

/*
Deliver runs a continuation plan as one all or nothing unit.

Messages are delivered strictly in order. A message that produces a plan of its own
(execute_swap_operations or receive) has that plan run before the next queued message.

Params:
  - msgs: the plan, usually the output of Router.Execute

Returns:
  - the receipt of every hop performed
  - the first error, unchanged; the ledger is rolled back to its state before the call
*/
func (h *Host) Deliver(ctx context.Context, msgs []models.ContinuationMessage) (*Receipt, error) {
	if err := h.ledger.Begin(); err != nil {
		return nil, err
	}
	receipt, err := h.deliver(ctx, msgs)
	if err != nil {
		h.ledger.Rollback()
		hostLog.Warn().Err(err).Int("delivered", receipt.Delivered).Msg("Delivery failed, ledger rolled back")
		return nil, err
	}
	h.ledger.Commit()
	hostLog.Info().Int("delivered", receipt.Delivered).Int("hops", len(receipt.Hops)).Msg("Delivery committed")
	return receipt, nil
}

func (h *Host) deliver(ctx context.Context, msgs []models.ContinuationMessage) (*Receipt, error) {
	receipt := &Receipt{}
	queue := append([]models.ContinuationMessage(nil), msgs...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return receipt, err
		}
		if receipt.Delivered >= maxMessages {
			return receipt, fmt.Errorf("delivery exceeded %d messages", maxMessages)
		}
		msg := queue[0]
		queue = queue[1:]

		next, err := h.deliverOne(ctx, msg, receipt)
		if err != nil {
			return receipt, fmt.Errorf("message %d (%s): %w", receipt.Delivered, msg.Msg.Kind(), err)
		}
		receipt.Delivered++
		// nested plans run depth first
		queue = append(next, queue...)
	}
	return receipt, nil
}

func (h *Host) deliverOne(ctx context.Context, msg models.ContinuationMessage, receipt *Receipt) ([]models.ContinuationMessage, error) {
	if msg.ContractAddr != h.env.ContractAddress {
		return nil, fmt.Errorf("%w: message addressed to %s", ErrUnauthorized, msg.ContractAddr)
	}
	if err := msg.Msg.Validate(); err != nil {
		return nil, err
	}
	// continuations are sent by the router itself
	sender := h.env.ContractAddress

	switch {
	case msg.Msg.ExecuteSwapOperation != nil:
		hop := *msg.Msg.ExecuteSwapOperation
		if err := router.AssertDeadline(h.env.BlockTime, hop.Deadline); err != nil {
			return nil, err
		}
		r, err := h.dispatcher.ExecuteSwapOperation(ctx, h.env, hop)
		if err != nil {
			return nil, err
		}
		receipt.Hops = append(receipt.Hops, r)
		return nil, nil
	case msg.Msg.AssertMinimumReceive != nil:
		return nil, h.router.AssertMinimumReceive(ctx, *msg.Msg.AssertMinimumReceive)
	case msg.Msg.ExecuteSwapOperations != nil:
		return h.router.Execute(ctx, h.env, sender, *msg.Msg.ExecuteSwapOperations)
	case msg.Msg.Receive != nil:
		return h.router.Receive(ctx, h.env, *msg.Msg.Receive)
	}
	return nil, errors.New("empty execute msg")
}
