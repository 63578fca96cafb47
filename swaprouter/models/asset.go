package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AssetInfo identifies an asset without an amount. Exactly one of Denom (native currency)
// or ContractAddr (contract issued token) is set. Two AssetInfo values are equal when
// they are structurally equal, so the type can be compared with ==.
type AssetInfo struct {
	Denom        string
	ContractAddr string
}

// NativeToken returns the AssetInfo of a native denom, e.g. "uusd"
func NativeToken(denom string) AssetInfo {
	return AssetInfo{Denom: denom}
}

// Token returns the AssetInfo of a CW20 token contract
func Token(contractAddr string) AssetInfo {
	return AssetInfo{ContractAddr: contractAddr}
}

// IsNative reports whether the asset is a native currency of the host chain
func (a AssetInfo) IsNative() bool {
	return a.ContractAddr == ""
}

// String returns the denom for native assets and the contract address for tokens
func (a AssetInfo) String() string {
	if a.IsNative() {
		return a.Denom
	}
	return a.ContractAddr
}

// Validate checks that exactly one variant is populated
func (a AssetInfo) Validate() error {
	switch {
	case a.Denom == "" && a.ContractAddr == "":
		return errors.New("asset info must have either a denom or a contract address")
	case a.Denom != "" && a.ContractAddr != "":
		return fmt.Errorf("asset info %q/%q cannot be both native and token", a.Denom, a.ContractAddr)
	}
	return nil
}

type nativeTokenJSON struct {
	Denom string `json:"denom"`
}

type tokenJSON struct {
	ContractAddr string `json:"contract_addr"`
}

type assetInfoJSON struct {
	NativeToken *nativeTokenJSON `json:"native_token,omitempty"`
	Token       *tokenJSON       `json:"token,omitempty"`
}

func (a AssetInfo) MarshalJSON() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.IsNative() {
		return json.Marshal(assetInfoJSON{NativeToken: &nativeTokenJSON{Denom: a.Denom}})
	}
	return json.Marshal(assetInfoJSON{Token: &tokenJSON{ContractAddr: a.ContractAddr}})
}

func (a *AssetInfo) UnmarshalJSON(data []byte) error {
	var raw assetInfoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid asset info: %w", err)
	}
	switch {
	case raw.NativeToken != nil && raw.Token != nil:
		return errors.New("invalid asset info: both native_token and token set")
	case raw.NativeToken != nil:
		*a = NativeToken(raw.NativeToken.Denom)
	case raw.Token != nil:
		*a = Token(raw.Token.ContractAddr)
	default:
		return errors.New("invalid asset info: expected native_token or token")
	}
	return a.Validate()
}

// Asset is an AssetInfo carrying an amount
type Asset struct {
	Info   AssetInfo `json:"info"`
	Amount Uint128   `json:"amount"`
}

func (a Asset) String() string {
	return a.Amount.String() + a.Info.String()
}

// Coin is a native denom with an amount, the unit the native exchange and bank module work with
type Coin struct {
	Denom  string  `json:"denom"`
	Amount Uint128 `json:"amount"`
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// PairInfo is the factory answer for a pair lookup
type PairInfo struct {
	AssetInfos     [2]AssetInfo `json:"asset_infos"`
	ContractAddr   string       `json:"contract_addr"`
	LiquidityToken string       `json:"liquidity_token"`
}
