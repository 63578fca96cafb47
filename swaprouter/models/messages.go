package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Env is the execution environment a router entry point runs in
type Env struct {
	// BlockTime is the current block time in unix seconds
	BlockTime uint64 `json:"block_time"`
	// ContractAddress is the router's own address, the target of every continuation
	ContractAddress string `json:"contract_address"`
}

// ExecuteSwapOperations submits a whole chain
type ExecuteSwapOperations struct {
	Operations     []SwapOperation `json:"operations"`
	MinimumReceive *Uint128        `json:"minimum_receive,omitempty"`
	To             *string         `json:"to,omitempty"`
	Deadline       *uint64         `json:"deadline,omitempty"`
}

// ExecuteSwapOperation performs a single hop. To is only set on the last hop of a chain.
type ExecuteSwapOperation struct {
	Operation SwapOperation `json:"operation"`
	To        *string       `json:"to"`
	Deadline  *uint64       `json:"deadline"`
}

// AssertMinimumReceive checks the receiver's balance grew by at least MinimumReceive
type AssertMinimumReceive struct {
	AssetInfo      AssetInfo `json:"asset_info"`
	PrevBalance    Uint128   `json:"prev_balance"`
	MinimumReceive Uint128   `json:"minimum_receive"`
	Receiver       string    `json:"receiver"`
}

// Cw20ReceiveMsg is delivered by a CW20 contract when tokens are sent to the router
type Cw20ReceiveMsg struct {
	Sender string  `json:"sender"`
	Amount Uint128 `json:"amount"`
	// Msg is the base64 encoded Cw20HookMsg (encoding/json handles []byte as base64)
	Msg []byte `json:"msg"`
}

// Cw20HookMsg is the payload carried inside Cw20ReceiveMsg.Msg
type Cw20HookMsg struct {
	ExecuteSwapOperations *ExecuteSwapOperations `json:"execute_swap_operations,omitempty"`
}

// ExecuteMsg is the externally tagged union of router entry points. Exactly one field is set.
type ExecuteMsg struct {
	Receive               *Cw20ReceiveMsg        `json:"receive,omitempty"`
	ExecuteSwapOperations *ExecuteSwapOperations `json:"execute_swap_operations,omitempty"`
	ExecuteSwapOperation  *ExecuteSwapOperation  `json:"execute_swap_operation,omitempty"`
	AssertMinimumReceive  *AssertMinimumReceive  `json:"assert_minimum_receive,omitempty"`
}

// Validate checks exactly one variant is set
func (m ExecuteMsg) Validate() error {
	n := 0
	for _, set := range []bool{
		m.Receive != nil,
		m.ExecuteSwapOperations != nil,
		m.ExecuteSwapOperation != nil,
		m.AssertMinimumReceive != nil,
	} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("execute msg must have exactly one variant, got %d", n)
	}
	return nil
}

// Kind names the variant, used for logging and metrics
func (m ExecuteMsg) Kind() string {
	switch {
	case m.Receive != nil:
		return "receive"
	case m.ExecuteSwapOperations != nil:
		return "execute_swap_operations"
	case m.ExecuteSwapOperation != nil:
		return "execute_swap_operation"
	case m.AssertMinimumReceive != nil:
		return "assert_minimum_receive"
	}
	return "unknown"
}

// ContinuationMessage is a self addressed wasm execute scheduled after the current entry
// point returns. The host delivers the list in order and consumes each message once.
type ContinuationMessage struct {
	ContractAddr string     `json:"contract_addr"`
	Funds        []Coin     `json:"funds"`
	Msg          ExecuteMsg `json:"msg"`
}

// QueryMsg is the externally tagged union of read only router queries
type QueryMsg struct {
	Config                        *struct{}                      `json:"config,omitempty"`
	SimulateSwapOperations        *SimulateSwapOperations        `json:"simulate_swap_operations,omitempty"`
	ReverseSimulateSwapOperations *ReverseSimulateSwapOperations `json:"reverse_simulate_swap_operations,omitempty"`
}

type SimulateSwapOperations struct {
	OfferAmount Uint128         `json:"offer_amount"`
	Operations  []SwapOperation `json:"operations"`
}

type ReverseSimulateSwapOperations struct {
	AskAmount  Uint128         `json:"ask_amount"`
	Operations []SwapOperation `json:"operations"`
}

// SimulateSwapOperationsResponse answers both forward and reverse simulation
type SimulateSwapOperationsResponse struct {
	Amount Uint128 `json:"amount"`
}

// ConfigResponse exposes the factory addresses of the three AMM backends
type ConfigResponse struct {
	TerraswapFactory string `json:"terraswap_factory"`
	LoopFactory      string `json:"loop_factory"`
	AstroportFactory string `json:"astroport_factory"`
}

// DecodeHookMsg parses the base64 decoded payload of a CW20 receive
func DecodeHookMsg(data []byte) (*ExecuteSwapOperations, error) {
	var hook Cw20HookMsg
	if err := json.Unmarshal(data, &hook); err != nil {
		return nil, fmt.Errorf("invalid cw20 hook msg: %w", err)
	}
	if hook.ExecuteSwapOperations == nil {
		return nil, errors.New("invalid cw20 hook msg: expected execute_swap_operations")
	}
	return hook.ExecuteSwapOperations, nil
}
