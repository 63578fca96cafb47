package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	host "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/host"
	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/btcsuite/btcutil/bech32"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HealthChecker reports whether the chain backend is reachable
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// RouterServer implements the swaprouter.v1.RouterService procedures on top of a router
type RouterServer struct {
	router          *router.Router
	contractAddress string
	bech32Prefix    string
	health          HealthChecker
	now             func() time.Time
}

/*
NewRouterServer creates the service for one router deployment.

Params:
  - r: the router
  - contractAddress: the router's own address, continuations are addressed to it
  - bech32Prefix: expected prefix of sender and receiver addresses, empty accepts any
  - health: readiness source, nil means always ready
*/
func NewRouterServer(r *router.Router, contractAddress, bech32Prefix string, health HealthChecker) *RouterServer {
	return &RouterServer{
		router:          r,
		contractAddress: contractAddress,
		bech32Prefix:    bech32Prefix,
		health:          health,
		now:             time.Now,
	}
}

// SetClock replaces the clock that supplies the block time when a request omits it
func (s *RouterServer) SetClock(now func() time.Time) {
	s.now = now
}

// Ready reports whether the service can answer quotes
func (s *RouterServer) Ready(ctx context.Context) bool {
	if s.health == nil {
		return true
	}
	return s.health.Healthy(ctx)
}

func (s *RouterServer) Config(
	ctx context.Context,
	req *connect.Request[ConfigRequest],
) (*connect.Response[ConfigResponse], error) {
	info := s.router.ContractInfo()
	return connect.NewResponse(&ConfigResponse{
		ContractAddress: s.contractAddress,
		Contract:        info.Contract,
		Version:         info.Version,
		Factories:       s.router.Config(),
	}), nil
}

func (s *RouterServer) SimulateSwapOperations(
	ctx context.Context,
	req *connect.Request[SimulateRequest],
) (*connect.Response[SimulateResponse], error) {
	annotateSpan(ctx, len(req.Msg.Operations))
	amount, err := s.router.SimulateSwapOperations(ctx, req.Msg.OfferAmount, req.Msg.Operations)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SimulateResponse{Amount: amount}), nil
}

func (s *RouterServer) ReverseSimulateSwapOperations(
	ctx context.Context,
	req *connect.Request[ReverseSimulateRequest],
) (*connect.Response[SimulateResponse], error) {
	annotateSpan(ctx, len(req.Msg.Operations))
	amount, err := s.router.ReverseSimulateSwapOperations(ctx, req.Msg.AskAmount, req.Msg.Operations)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SimulateResponse{Amount: amount}), nil
}

// ExecuteSwapOperations returns the continuation plan an execute_swap_operations would schedule
func (s *RouterServer) ExecuteSwapOperations(
	ctx context.Context,
	req *connect.Request[ExecuteRequest],
) (*connect.Response[ExecuteResponse], error) {
	annotateSpan(ctx, len(req.Msg.Operations))
	if err := s.validateAddresses(req.Msg); err != nil {
		return nil, err
	}
	plan, err := s.router.Execute(ctx, s.env(req.Msg), req.Msg.Sender, req.Msg.message())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExecuteResponse{Messages: plan}), nil
}

// DryRunSwapOperations plans the chain and delivers it against a throwaway ledger
func (s *RouterServer) DryRunSwapOperations(
	ctx context.Context,
	req *connect.Request[DryRunRequest],
) (*connect.Response[DryRunResponse], error) {
	msg := req.Msg
	annotateSpan(ctx, len(msg.Operations))
	if err := s.validateAddresses(&msg.ExecuteRequest); err != nil {
		return nil, err
	}
	if len(msg.Operations) == 0 {
		return nil, toConnectError(router.ErrEmptyOperations)
	}
	if msg.OfferAmount.IsZero() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("offer_amount must be positive"))
	}

	receiver := msg.Sender
	if msg.To != nil {
		receiver = *msg.To
	}
	ledger := host.NewLedger()
	for _, held := range msg.ReceiverBalances {
		if err := ledger.Credit(held.Info, receiver, held.Amount); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("receiver balance %s: %w", held, err))
		}
	}
	offer := models.Asset{Info: msg.Operations[0].Offer, Amount: msg.OfferAmount}

	result, err := host.DryRun(ctx, s.router, ledger, s.env(&msg.ExecuteRequest), msg.Sender, offer, msg.message())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(result), nil
}

func (s *RouterServer) env(req *ExecuteRequest) models.Env {
	blockTime := uint64(s.now().Unix())
	if req.BlockTime != nil {
		blockTime = *req.BlockTime
	}
	return models.Env{BlockTime: blockTime, ContractAddress: s.contractAddress}
}

func (s *RouterServer) validateAddresses(req *ExecuteRequest) error {
	if err := s.checkAddress("sender", req.Sender); err != nil {
		return err
	}
	if req.To != nil {
		if err := s.checkAddress("receiver", *req.To); err != nil {
			return err
		}
	}
	return nil
}

func (s *RouterServer) checkAddress(role, address string) error {
	prefix, err := validateBech32Address(address)
	if err != nil {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid %s address '%s': %w", role, address, err))
	}
	if s.bech32Prefix != "" && prefix != s.bech32Prefix {
		return connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%s address prefix '%s' does not match expected prefix '%s'", role, prefix, s.bech32Prefix))
	}
	return nil
}

// validateBech32Address checks the checksum and returns the human readable prefix
func validateBech32Address(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address is empty")
	}
	prefix, data, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("invalid bech32 address: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty address data")
	}
	return prefix, nil
}

func annotateSpan(ctx context.Context, hops int) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("swaprouter.operations", hops))
}

// toConnectError maps router and host errors onto connect codes
func toConnectError(err error) error {
	var assertErr *router.AssertionFailedError
	switch {
	case errors.Is(err, router.ErrEmptyOperations),
		errors.Is(err, router.ErrMultipleOutputs),
		errors.Is(err, router.ErrUnknownBackend),
		errors.Is(err, models.ErrOverflow),
		errors.Is(err, models.ErrUnderflow):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &assertErr):
		// the whole chain is undone, retrying with a fresh quote may succeed
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, router.ErrExpired),
		errors.Is(err, host.ErrInsufficientFunds):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, router.ErrReverseNativeUnsupported):
		return connect.NewError(connect.CodeUnimplemented, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, router.ErrBackendQuery):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	Logger.Error().Err(err).Msg("Unmapped router error")
	return connect.NewError(connect.CodeInternal, err)
}
