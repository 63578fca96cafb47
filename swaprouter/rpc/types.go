package rpc

import (
	host "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/host"
	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

type ConfigRequest struct{}

type ConfigResponse struct {
	ContractAddress string                `json:"contract_address"`
	Contract        string                `json:"contract"`
	Version         string                `json:"version"`
	Factories       models.ConfigResponse `json:"factories"`
}

type SimulateRequest struct {
	OfferAmount models.Uint128         `json:"offer_amount"`
	Operations  []models.SwapOperation `json:"operations"`
}

type ReverseSimulateRequest struct {
	AskAmount  models.Uint128         `json:"ask_amount"`
	Operations []models.SwapOperation `json:"operations"`
}

type SimulateResponse struct {
	Amount models.Uint128 `json:"amount"`
}

// ExecuteRequest asks for the continuation plan of an execute_swap_operations sent by Sender.
// BlockTime defaults to the server clock.
type ExecuteRequest struct {
	Sender         string                 `json:"sender"`
	BlockTime      *uint64                `json:"block_time,omitempty"`
	Operations     []models.SwapOperation `json:"operations"`
	MinimumReceive *models.Uint128        `json:"minimum_receive,omitempty"`
	To             *string                `json:"to,omitempty"`
	Deadline       *uint64                `json:"deadline,omitempty"`
}

type ExecuteResponse struct {
	Messages []models.ContinuationMessage `json:"messages"`
}

// DryRunRequest runs the chain in a sandbox. OfferAmount of the first hop's offer asset is
// attached. ReceiverBalances seeds the receiver's holdings before the snapshot.
type DryRunRequest struct {
	ExecuteRequest
	OfferAmount      models.Uint128 `json:"offer_amount"`
	ReceiverBalances []models.Asset `json:"receiver_balances,omitempty"`
}

type DryRunResponse = host.DryRunResult

func (r *SimulateRequest) chainLen() int        { return len(r.Operations) }
func (r *ReverseSimulateRequest) chainLen() int { return len(r.Operations) }
func (r *ExecuteRequest) chainLen() int         { return len(r.Operations) }

func (r *ExecuteRequest) senderAddr() string { return r.Sender }

func (r *ExecuteRequest) message() models.ExecuteSwapOperations {
	return models.ExecuteSwapOperations{
		Operations:     r.Operations,
		MinimumReceive: r.MinimumReceive,
		To:             r.To,
		Deadline:       r.Deadline,
	}
}
