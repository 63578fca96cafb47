package lcdquery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/shopspring/decimal"
)

type smartQueryResponse struct {
	Data json.RawMessage `json:"data"`
}

// SmartQuery runs a CosmWasm smart query and decodes the data field into out
func (c *LCDClient) SmartQuery(ctx context.Context, contract string, msg any, out any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode query for %s: %w", contract, err)
	}
	path := fmt.Sprintf("/cosmwasm/wasm/v1/contract/%s/smart/%s",
		url.PathEscape(contract), base64.URLEncoding.EncodeToString(raw))

	body, err := c.doRequestWithFailover(ctx, path)
	if err != nil {
		return err
	}
	var resp smartQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse smart query response: %w", err)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode smart query data from %s: %w", contract, err)
	}
	return nil
}

type pairQuery struct {
	Pair struct {
		AssetInfos [2]models.AssetInfo `json:"asset_infos"`
	} `json:"pair"`
}

// QueryPair asks a factory for the pair of two assets
func (c *LCDClient) QueryPair(ctx context.Context, factory string, assetInfos [2]models.AssetInfo) (models.PairInfo, error) {
	var q pairQuery
	q.Pair.AssetInfos = assetInfos
	var pair models.PairInfo
	if err := c.SmartQuery(ctx, factory, q, &pair); err != nil {
		return models.PairInfo{}, err
	}
	if pair.ContractAddr == "" {
		return models.PairInfo{}, fmt.Errorf("factory %s returned no pair for %s/%s", factory, assetInfos[0], assetInfos[1])
	}
	return pair, nil
}

type simulationQuery struct {
	Simulation struct {
		OfferAsset models.Asset `json:"offer_asset"`
	} `json:"simulation"`
}

// SimulationResponse is a pair's forward quote
type SimulationResponse struct {
	ReturnAmount     models.Uint128 `json:"return_amount"`
	SpreadAmount     models.Uint128 `json:"spread_amount"`
	CommissionAmount models.Uint128 `json:"commission_amount"`
}

// Simulate returns the pair's gross return amount for offer
func (c *LCDClient) Simulate(ctx context.Context, pair string, offer models.Asset) (models.Uint128, error) {
	var q simulationQuery
	q.Simulation.OfferAsset = offer
	var resp SimulationResponse
	if err := c.SmartQuery(ctx, pair, q, &resp); err != nil {
		return models.Uint128{}, err
	}
	return resp.ReturnAmount, nil
}

type reverseSimulationQuery struct {
	ReverseSimulation struct {
		AskAsset models.Asset `json:"ask_asset"`
	} `json:"reverse_simulation"`
}

// ReverseSimulationResponse is a pair's reverse quote
type ReverseSimulationResponse struct {
	OfferAmount      models.Uint128 `json:"offer_amount"`
	SpreadAmount     models.Uint128 `json:"spread_amount"`
	CommissionAmount models.Uint128 `json:"commission_amount"`
}

// ReverseSimulate returns the offer amount the pair needs to return ask
func (c *LCDClient) ReverseSimulate(ctx context.Context, pair string, ask models.Asset) (models.Uint128, error) {
	var q reverseSimulationQuery
	q.ReverseSimulation.AskAsset = ask
	var resp ReverseSimulationResponse
	if err := c.SmartQuery(ctx, pair, q, &resp); err != nil {
		return models.Uint128{}, err
	}
	return resp.OfferAmount, nil
}

type marketSwapResponse struct {
	ReturnCoin models.Coin `json:"return_coin"`
}

// NativeQuote asks the market module what offer swaps to in askDenom
func (c *LCDClient) NativeQuote(ctx context.Context, offer models.Coin, askDenom string) (models.Uint128, error) {
	path := fmt.Sprintf("/terra/market/v1beta1/swap?offer_coin=%s&ask_denom=%s",
		url.QueryEscape(offer.String()), url.QueryEscape(askDenom))
	body, err := c.doRequestWithFailover(ctx, path)
	if err != nil {
		return models.Uint128{}, err
	}
	var resp marketSwapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Uint128{}, fmt.Errorf("failed to parse market swap response: %w", err)
	}
	if resp.ReturnCoin.Denom != askDenom {
		return models.Uint128{}, fmt.Errorf("market returned %s, expected %s", resp.ReturnCoin.Denom, askDenom)
	}
	return resp.ReturnCoin.Amount, nil
}

type taxRateResponse struct {
	TaxRate string `json:"tax_rate"`
}

// TaxRate reads the treasury tax rate
func (c *LCDClient) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	body, err := c.doRequestWithFailover(ctx, "/terra/treasury/v1beta1/tax_rate")
	if err != nil {
		return decimal.Decimal{}, err
	}
	var resp taxRateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse tax rate response: %w", err)
	}
	rate, err := decimal.NewFromString(resp.TaxRate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid tax rate %q: %w", resp.TaxRate, err)
	}
	return rate, nil
}

type taxCapResponse struct {
	TaxCap models.Uint128 `json:"tax_cap"`
}

// TaxCap reads the treasury tax cap of denom
func (c *LCDClient) TaxCap(ctx context.Context, denom string) (models.Uint128, error) {
	body, err := c.doRequestWithFailover(ctx, "/terra/treasury/v1beta1/tax_caps/"+url.PathEscape(denom))
	if err != nil {
		return models.Uint128{}, err
	}
	var resp taxCapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Uint128{}, fmt.Errorf("failed to parse tax cap response: %w", err)
	}
	return resp.TaxCap, nil
}

type bankBalanceResponse struct {
	Balance models.Coin `json:"balance"`
}

type cw20BalanceQuery struct {
	Balance struct {
		Address string `json:"address"`
	} `json:"balance"`
}

type cw20BalanceResponse struct {
	Balance models.Uint128 `json:"balance"`
}

// QueryBalance reads a bank balance for native assets and a CW20 balance for tokens
func (c *LCDClient) QueryBalance(ctx context.Context, asset models.AssetInfo, address string) (models.Uint128, error) {
	if !asset.IsNative() {
		var q cw20BalanceQuery
		q.Balance.Address = address
		var resp cw20BalanceResponse
		if err := c.SmartQuery(ctx, asset.ContractAddr, q, &resp); err != nil {
			return models.Uint128{}, err
		}
		return resp.Balance, nil
	}

	path := fmt.Sprintf("/cosmos/bank/v1beta1/balances/%s/by_denom?denom=%s",
		url.PathEscape(address), url.QueryEscape(asset.Denom))
	body, err := c.doRequestWithFailover(ctx, path)
	if err != nil {
		return models.Uint128{}, err
	}
	var resp bankBalanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Uint128{}, fmt.Errorf("failed to parse balance response: %w", err)
	}
	return resp.Balance.Amount, nil
}
