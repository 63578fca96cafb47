package router_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/shopspring/decimal"
)

const (
	terraswapFactory = "terra1terraswapfactory"
	loopFactory      = "terra1loopfactory"
	astroportFactory = "terra1astroportfactory"
	routerAddr       = "terra1router"
	token1           = "terra1token0001"
	token2           = "terra1token0002"
)

var errBackendDown = errors.New("backend down")

// ratio is a constant price num/den
type ratio struct {
	num, den uint64
}

func (r ratio) apply(a models.Uint128) models.Uint128 {
	out, err := a.MultiplyRatio(models.NewUint128(r.num), models.NewUint128(r.den))
	if err != nil {
		panic(err)
	}
	return out
}

func (r ratio) invert(a models.Uint128) models.Uint128 {
	out, err := a.MultiplyRatio(models.NewUint128(r.den), models.NewUint128(r.num))
	if err != nil {
		panic(err)
	}
	return out
}

type fakePair struct {
	addr   string
	assets [2]models.AssetInfo
	// price of assets[1] in units of assets[0]
	price ratio
}

// fakePairs is a constant price AMM keyed by factory and unordered asset pair
type fakePairs struct {
	mu      sync.Mutex
	pairs   map[string]fakePair
	byAddr  map[string]fakePair
	offers  []models.Asset
	asks    []models.Asset
	failing bool
}

func newFakePairs() *fakePairs {
	return &fakePairs{pairs: map[string]fakePair{}, byAddr: map[string]fakePair{}}
}

func pairKey(factory string, a, b models.AssetInfo) string {
	keys := []string{a.String(), b.String()}
	sort.Strings(keys)
	return factory + "|" + keys[0] + "|" + keys[1]
}

func (f *fakePairs) add(factory, addr string, a, b models.AssetInfo, price ratio) {
	p := fakePair{addr: addr, assets: [2]models.AssetInfo{a, b}, price: price}
	f.pairs[pairKey(factory, a, b)] = p
	f.byAddr[addr] = p
}

func (f *fakePairs) QueryPair(_ context.Context, factory string, infos [2]models.AssetInfo) (models.PairInfo, error) {
	if f.failing {
		return models.PairInfo{}, errBackendDown
	}
	p, ok := f.pairs[pairKey(factory, infos[0], infos[1])]
	if !ok {
		return models.PairInfo{}, fmt.Errorf("pair not found")
	}
	return models.PairInfo{AssetInfos: p.assets, ContractAddr: p.addr, LiquidityToken: p.addr + "lp"}, nil
}

func (f *fakePairs) Simulate(_ context.Context, pair string, offer models.Asset) (models.Uint128, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = append(f.offers, offer)
	p := f.byAddr[pair]
	if offer.Info == p.assets[0] {
		return p.price.apply(offer.Amount), nil
	}
	return p.price.invert(offer.Amount), nil
}

func (f *fakePairs) ReverseSimulate(_ context.Context, pair string, ask models.Asset) (models.Uint128, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asks = append(f.asks, ask)
	p := f.byAddr[pair]
	if ask.Info == p.assets[1] {
		return p.price.invert(ask.Amount), nil
	}
	return p.price.apply(ask.Amount), nil
}

// fakeNative quotes the market module at constant rates keyed by "offer>ask"
type fakeNative struct {
	rates  map[string]ratio
	offers []models.Coin
}

func (f *fakeNative) NativeQuote(_ context.Context, offer models.Coin, askDenom string) (models.Uint128, error) {
	f.offers = append(f.offers, offer)
	r, ok := f.rates[offer.Denom+">"+askDenom]
	if !ok {
		return models.Uint128{}, fmt.Errorf("no market for %s>%s", offer.Denom, askDenom)
	}
	return r.apply(offer.Amount), nil
}

type fakeTaxQuerier struct {
	rate decimal.Decimal
	caps map[string]models.Uint128
}

func (f fakeTaxQuerier) TaxRate(context.Context) (decimal.Decimal, error) {
	return f.rate, nil
}

func (f fakeTaxQuerier) TaxCap(_ context.Context, denom string) (models.Uint128, error) {
	c, ok := f.caps[denom]
	if !ok {
		return models.Uint128{}, fmt.Errorf("no cap for %s", denom)
	}
	return c, nil
}

// fixedTaxer charges a constant tax, used to force an underflow
type fixedTaxer struct {
	tax models.Uint128
}

func (f fixedTaxer) ComputeTax(context.Context, models.Uint128, string) (models.Uint128, error) {
	return f.tax, nil
}

func (f fixedTaxer) ComputeReverseTax(context.Context, models.Uint128, string) (models.Uint128, error) {
	return f.tax, nil
}

type balanceCall struct {
	asset   models.AssetInfo
	address string
}

type fakeBalances struct {
	balances map[string]models.Uint128
	calls    []balanceCall
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{balances: map[string]models.Uint128{}}
}

func (f *fakeBalances) set(asset models.AssetInfo, addr string, amount uint64) {
	f.balances[asset.String()+"@"+addr] = models.NewUint128(amount)
}

func (f *fakeBalances) QueryBalance(_ context.Context, asset models.AssetInfo, addr string) (models.Uint128, error) {
	f.calls = append(f.calls, balanceCall{asset: asset, address: addr})
	return f.balances[asset.String()+"@"+addr], nil
}

type fixture struct {
	router   *router.Router
	pairs    *fakePairs
	native   *fakeNative
	balances *fakeBalances
}

// taxRate is 1% with caps large enough to not matter unless a test lowers them
var taxRate = decimal.RequireFromString("0.01")

func newFixture(taxer router.Taxer) fixture {
	pairs := newFakePairs()
	uusd := models.NativeToken("uusd")
	ukrw := models.NativeToken("ukrw")
	uluna := models.NativeToken("uluna")
	pairs.add(terraswapFactory, "terra1pair_uusd_token1", uusd, models.Token(token1), ratio{1, 1})
	pairs.add(terraswapFactory, "terra1pair_ukrw_token1", ukrw, models.Token(token1), ratio{1, 2})
	pairs.add(terraswapFactory, "terra1pair_token1_uluna", models.Token(token1), uluna, ratio{1, 1})
	pairs.add(loopFactory, "terra1loop_token1_token2", models.Token(token1), models.Token(token2), ratio{2, 1})
	pairs.add(astroportFactory, "terra1astro_token2_uusd", models.Token(token2), uusd, ratio{1, 1})

	native := &fakeNative{rates: map[string]ratio{
		"uusd>ukrw":  {2, 1},
		"uusd>uluna": {1, 1},
		"ukrw>uusd":  {1, 2},
	}}
	balances := newFakeBalances()

	if taxer == nil {
		taxer = router.NewTreasuryTax(fakeTaxQuerier{
			rate: taxRate,
			caps: map[string]models.Uint128{
				"uusd": models.NewUint128(1_000_000_000),
				"ukrw": models.NewUint128(1_000_000_000),
			},
		}, nil)
	}

	r, err := router.New(
		router.NewConfig(terraswapFactory, loopFactory, astroportFactory),
		router.Queriers{Pairs: pairs, Native: native, Tax: taxer, Balances: balances},
	)
	if err != nil {
		panic(err)
	}
	return fixture{router: r, pairs: pairs, native: native, balances: balances}
}

func u(n uint64) models.Uint128 {
	return models.NewUint128(n)
}
