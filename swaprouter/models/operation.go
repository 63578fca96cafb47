package models

import (
	"encoding/json"
	"fmt"
)

// Backend tags which exchange mechanism performs a hop
type Backend string

const (
	// BackendNative is the host chain's market module (native denoms only)
	BackendNative Backend = "native_swap"
	// BackendTerraswap, BackendLoop and BackendAstroport are AMM deployments that share
	// the same factory/pair query interface and differ only in their factory address
	BackendTerraswap Backend = "terra_swap"
	BackendLoop      Backend = "loop"
	BackendAstroport Backend = "astroport"
)

// AMMBackends lists every factory backed variant
var AMMBackends = []Backend{BackendTerraswap, BackendLoop, BackendAstroport}

// IsAMM reports whether the backend resolves pairs through a factory
func (b Backend) IsAMM() bool {
	switch b {
	case BackendTerraswap, BackendLoop, BackendAstroport:
		return true
	}
	return false
}

func (b Backend) Valid() bool {
	return b == BackendNative || b.IsAMM()
}

// SwapOperation is one hop of a chain: Offer is converted into Ask through Backend.
// For BackendNative both sides are native denoms.
type SwapOperation struct {
	Backend Backend
	Offer   AssetInfo
	Ask     AssetInfo
}

// NativeSwap builds a hop through the native exchange mechanism
func NativeSwap(offerDenom, askDenom string) SwapOperation {
	return SwapOperation{Backend: BackendNative, Offer: NativeToken(offerDenom), Ask: NativeToken(askDenom)}
}

// TerraSwap builds a hop through the terraswap factory
func TerraSwap(offer, ask AssetInfo) SwapOperation {
	return SwapOperation{Backend: BackendTerraswap, Offer: offer, Ask: ask}
}

// Loop builds a hop through the loop factory
func Loop(offer, ask AssetInfo) SwapOperation {
	return SwapOperation{Backend: BackendLoop, Offer: offer, Ask: ask}
}

// Astroport builds a hop through the astroport factory
func Astroport(offer, ask AssetInfo) SwapOperation {
	return SwapOperation{Backend: BackendAstroport, Offer: offer, Ask: ask}
}

// TargetAssetInfo is the asset this hop produces
func (op SwapOperation) TargetAssetInfo() AssetInfo {
	return op.Ask
}

func (op SwapOperation) String() string {
	return fmt.Sprintf("%s(%s->%s)", op.Backend, op.Offer, op.Ask)
}

// Validate checks the hop is well formed for its backend.
// offer == ask is not rejected here, pairs and the market module reject identical assets at query time.
func (op SwapOperation) Validate() error {
	if !op.Backend.Valid() {
		return fmt.Errorf("unknown swap backend %q", op.Backend)
	}
	if err := op.Offer.Validate(); err != nil {
		return fmt.Errorf("offer: %w", err)
	}
	if err := op.Ask.Validate(); err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	if op.Backend == BackendNative && (!op.Offer.IsNative() || !op.Ask.IsNative()) {
		return fmt.Errorf("native_swap only accepts native denoms, got %s", op)
	}
	return nil
}

type nativeSwapJSON struct {
	OfferDenom string `json:"offer_denom"`
	AskDenom   string `json:"ask_denom"`
}

type ammSwapJSON struct {
	OfferAssetInfo AssetInfo `json:"offer_asset_info"`
	AskAssetInfo   AssetInfo `json:"ask_asset_info"`
}

// MarshalJSON encodes the hop as an externally tagged variant,
// e.g. {"terra_swap":{"offer_asset_info":...,"ask_asset_info":...}}
func (op SwapOperation) MarshalJSON() ([]byte, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	var body any
	if op.Backend == BackendNative {
		body = nativeSwapJSON{OfferDenom: op.Offer.Denom, AskDenom: op.Ask.Denom}
	} else {
		body = ammSwapJSON{OfferAssetInfo: op.Offer, AskAssetInfo: op.Ask}
	}
	return json.Marshal(map[Backend]any{op.Backend: body})
}

func (op *SwapOperation) UnmarshalJSON(data []byte) error {
	var raw map[Backend]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid swap operation: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("invalid swap operation: expected exactly one variant, got %d", len(raw))
	}
	for backend, body := range raw {
		switch {
		case backend == BackendNative:
			var n nativeSwapJSON
			if err := json.Unmarshal(body, &n); err != nil {
				return fmt.Errorf("invalid native_swap: %w", err)
			}
			*op = NativeSwap(n.OfferDenom, n.AskDenom)
		case backend.IsAMM():
			var a ammSwapJSON
			if err := json.Unmarshal(body, &a); err != nil {
				return fmt.Errorf("invalid %s: %w", backend, err)
			}
			*op = SwapOperation{Backend: backend, Offer: a.OfferAssetInfo, Ask: a.AskAssetInfo}
		default:
			return fmt.Errorf("unknown swap backend %q", backend)
		}
	}
	return op.Validate()
}
