package rpc_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	host "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/host"
	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/rs/zerolog"
	"github.com/zeebo/assert"
)

const (
	token1 = "terra1token0001"
	token2 = "terra1token0002"
)

var uusd = models.NativeToken("uusd")

// every pair doubles the offer
type fakePairs struct{}

func (fakePairs) QueryPair(_ context.Context, factory string, infos [2]models.AssetInfo) (models.PairInfo, error) {
	return models.PairInfo{AssetInfos: infos, ContractAddr: factory + "/" + infos[0].String() + "/" + infos[1].String()}, nil
}

func (fakePairs) Simulate(_ context.Context, _ string, offer models.Asset) (models.Uint128, error) {
	return offer.Amount.CheckedMul(models.NewUint128(2))
}

func (fakePairs) ReverseSimulate(_ context.Context, _ string, ask models.Asset) (models.Uint128, error) {
	return ask.Amount.MultiplyRatio(models.NewUint128(1), models.NewUint128(2))
}

type failingPairs struct{ fakePairs }

func (failingPairs) Simulate(context.Context, string, models.Asset) (models.Uint128, error) {
	return models.Uint128{}, errors.New("lcd unreachable")
}

type fakeNative struct{}

func (fakeNative) NativeQuote(_ context.Context, offer models.Coin, _ string) (models.Uint128, error) {
	return offer.Amount, nil
}

type staticHealth bool

func (h staticHealth) Healthy(context.Context) bool { return bool(h) }

func address(t *testing.T, prefix string, seed byte) string {
	data := make([]byte, 20)
	for i := range data {
		data[i] = seed
	}
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	assert.NoError(t, err)
	addr, err := bech32.Encode(prefix, conv)
	assert.NoError(t, err)
	return addr
}

type fixture struct {
	srv        *httptest.Server
	routerAddr string
	sender     string
	balances   *host.Ledger
}

func newFixture(t *testing.T, pairs router.PairQuerier, health rpc.HealthChecker) *fixture {
	balances := host.NewLedger()
	r, err := router.New(
		router.NewConfig("terra1tsfactory", "terra1loopfactory", "terra1astrofactory"),
		router.Queriers{Pairs: pairs, Native: fakeNative{}, Balances: balances},
	)
	assert.NoError(t, err)

	routerAddr := address(t, "terra", 1)
	svc := rpc.NewRouterServer(r, routerAddr, "terra", health)
	svc.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })

	cfg := rpc.DefaultServerConfig()
	cfg.OTelConfig = nil
	server, err := rpc.NewServer(context.Background(), cfg, svc)
	assert.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, routerAddr: routerAddr, sender: address(t, "terra", 2), balances: balances}
}

func client[Req, Res any](f *fixture, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](f.srv.Client(), f.srv.URL+procedure, connect.WithCodec(rpc.JSONCodec{}))
}

func chain() []models.SwapOperation {
	return []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
		models.Loop(models.Token(token1), models.Token(token2)),
	}
}

func TestConfig(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	resp, err := client[rpc.ConfigRequest, rpc.ConfigResponse](f, rpc.ConfigProcedure).
		CallUnary(context.Background(), connect.NewRequest(&rpc.ConfigRequest{}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.ContractAddress, f.routerAddr)
	assert.Equal(t, resp.Msg.Contract, router.ContractName)
	assert.Equal(t, resp.Msg.Factories.LoopFactory, "terra1loopfactory")
	assert.Equal(t, resp.Header().Get("Cache-Control"), "no-store, no-cache, must-revalidate")
}

func TestSimulateSwapOperations(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	c := client[rpc.SimulateRequest, rpc.SimulateResponse](f, rpc.SimulateSwapOperationsProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&rpc.SimulateRequest{
		OfferAmount: models.NewUint128(100),
		Operations:  chain(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.Amount.String(), "400")

	_, err = c.CallUnary(context.Background(), connect.NewRequest(&rpc.SimulateRequest{OfferAmount: models.NewUint128(100)}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestSimulateSwapOperations_BackendDown(t *testing.T) {
	f := newFixture(t, failingPairs{}, nil)
	_, err := client[rpc.SimulateRequest, rpc.SimulateResponse](f, rpc.SimulateSwapOperationsProcedure).
		CallUnary(context.Background(), connect.NewRequest(&rpc.SimulateRequest{
			OfferAmount: models.NewUint128(100),
			Operations:  chain(),
		}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeUnavailable)
}

func TestReverseSimulateSwapOperations(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	c := client[rpc.ReverseSimulateRequest, rpc.SimulateResponse](f, rpc.ReverseSimulateSwapOperationsProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&rpc.ReverseSimulateRequest{
		AskAmount:  models.NewUint128(400),
		Operations: chain(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.Amount.String(), "100")

	_, err = c.CallUnary(context.Background(), connect.NewRequest(&rpc.ReverseSimulateRequest{
		AskAmount:  models.NewUint128(400),
		Operations: []models.SwapOperation{models.NativeSwap("uusd", "ukrw")},
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeUnimplemented)
}

func TestExecuteSwapOperations(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	assert.NoError(t, f.balances.Credit(models.Token(token2), f.sender, models.NewUint128(7)))
	c := client[rpc.ExecuteRequest, rpc.ExecuteResponse](f, rpc.ExecuteSwapOperationsProcedure)

	minimum := models.NewUint128(390)
	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&rpc.ExecuteRequest{
		Sender:         f.sender,
		Operations:     chain(),
		MinimumReceive: &minimum,
	}))
	assert.NoError(t, err)

	msgs := resp.Msg.Messages
	assert.Equal(t, len(msgs), 3)
	for _, m := range msgs {
		assert.Equal(t, m.ContractAddr, f.routerAddr)
		assert.Equal(t, len(m.Funds), 0)
	}
	assert.True(t, msgs[0].Msg.ExecuteSwapOperation.To == nil)
	assert.Equal(t, *msgs[1].Msg.ExecuteSwapOperation.To, f.sender)
	assertion := msgs[2].Msg.AssertMinimumReceive
	assert.NotNil(t, assertion)
	assert.Equal(t, assertion.PrevBalance.String(), "7")
	assert.Equal(t, assertion.Receiver, f.sender)
}

func TestExecuteSwapOperations_Rejected(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	c := client[rpc.ExecuteRequest, rpc.ExecuteResponse](f, rpc.ExecuteSwapOperationsProcedure)
	foreign := address(t, "cosmos", 3)
	deadline := uint64(1_600_000_000)
	ctx := context.Background()

	tests := []struct {
		name string
		req  rpc.ExecuteRequest
		code connect.Code
	}{
		{"bad checksum", rpc.ExecuteRequest{Sender: "terra1notanaddress", Operations: chain()}, connect.CodeInvalidArgument},
		{"foreign sender", rpc.ExecuteRequest{Sender: foreign, Operations: chain()}, connect.CodeInvalidArgument},
		{"foreign receiver", rpc.ExecuteRequest{Sender: f.sender, To: &foreign, Operations: chain()}, connect.CodeInvalidArgument},
		{"empty chain", rpc.ExecuteRequest{Sender: f.sender}, connect.CodeInvalidArgument},
		{"multiple outputs", rpc.ExecuteRequest{Sender: f.sender, Operations: []models.SwapOperation{
			models.TerraSwap(uusd, models.Token(token1)),
			models.Astroport(uusd, models.Token(token2)),
		}}, connect.CodeInvalidArgument},
		{"expired", rpc.ExecuteRequest{Sender: f.sender, Operations: chain(), Deadline: &deadline}, connect.CodeFailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := c.CallUnary(ctx, connect.NewRequest(&req))
			assert.Equal(t, connect.CodeOf(err), tt.code)
		})
	}
}

func TestExecuteSwapOperations_ExplicitBlockTime(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	deadline := uint64(1_600_000_000)
	blockTime := deadline
	resp, err := client[rpc.ExecuteRequest, rpc.ExecuteResponse](f, rpc.ExecuteSwapOperationsProcedure).
		CallUnary(context.Background(), connect.NewRequest(&rpc.ExecuteRequest{
			Sender:     f.sender,
			BlockTime:  &blockTime,
			Deadline:   &deadline,
			Operations: chain(),
		}))
	assert.NoError(t, err)
	assert.Equal(t, len(resp.Msg.Messages), 2)
}

func TestDryRunSwapOperations(t *testing.T) {
	f := newFixture(t, fakePairs{}, nil)
	c := client[rpc.DryRunRequest, rpc.DryRunResponse](f, rpc.DryRunSwapOperationsProcedure)
	receiver := address(t, "terra", 4)

	minimum := models.NewUint128(400)
	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&rpc.DryRunRequest{
		ExecuteRequest: rpc.ExecuteRequest{
			Sender:         f.sender,
			To:             &receiver,
			Operations:     chain(),
			MinimumReceive: &minimum,
		},
		OfferAmount:      models.NewUint128(100),
		ReceiverBalances: []models.Asset{{Info: models.Token(token2), Amount: models.NewUint128(10)}},
	}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.Receiver, receiver)
	assert.Equal(t, resp.Msg.Received.String(), "400")
	assert.Equal(t, resp.Msg.Receipt.Delivered, 3)
	assert.Equal(t, resp.Msg.Plan[2].Msg.AssertMinimumReceive.PrevBalance.String(), "10")

	minimum = models.NewUint128(401)
	_, err = c.CallUnary(context.Background(), connect.NewRequest(&rpc.DryRunRequest{
		ExecuteRequest: rpc.ExecuteRequest{Sender: f.sender, Operations: chain(), MinimumReceive: &minimum},
		OfferAmount:    models.NewUint128(100),
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeAborted)
	assert.True(t, strings.Contains(err.Error(), "minimum receive amount: 401"))

	_, err = c.CallUnary(context.Background(), connect.NewRequest(&rpc.DryRunRequest{
		ExecuteRequest: rpc.ExecuteRequest{Sender: f.sender, Operations: chain()},
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func get(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerEndpoints(t *testing.T) {
	f := newFixture(t, fakePairs{}, staticHealth(true))

	status, body := get(t, f.srv.URL+"/server/health")
	assert.Equal(t, status, http.StatusOK)
	assert.True(t, strings.Contains(body, "healthy"))

	status, _ = get(t, f.srv.URL+"/server/ready")
	assert.Equal(t, status, http.StatusOK)

	_, err := client[rpc.SimulateRequest, rpc.SimulateResponse](f, rpc.SimulateSwapOperationsProcedure).
		CallUnary(context.Background(), connect.NewRequest(&rpc.SimulateRequest{
			OfferAmount: models.NewUint128(1),
			Operations:  chain(),
		}))
	assert.NoError(t, err)

	status, body = get(t, f.srv.URL+"/server/metrics")
	assert.Equal(t, status, http.StatusOK)
	assert.True(t, strings.Contains(body, "swaprouter_rpc_requests_total"))
	assert.True(t, strings.Contains(body, "swaprouter_operation_chain_length"))

	status, _ = get(t, f.srv.URL+"/swaprouter.v1.RouterService/Unknown")
	assert.Equal(t, status, http.StatusNotFound)
}

func TestServerNotReady(t *testing.T) {
	f := newFixture(t, fakePairs{}, staticHealth(false))
	status, body := get(t, f.srv.URL+"/server/ready")
	assert.Equal(t, status, http.StatusServiceUnavailable)
	assert.True(t, strings.Contains(body, "unavailable"))
}

// lockedBuffer collects log lines written from server goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func TestRequestLog(t *testing.T) {
	logs := &lockedBuffer{}
	rpc.SetLogger(zerolog.New(logs))
	t.Cleanup(func() { rpc.SetLogger(zerolog.Nop()) })
	f := newFixture(t, fakePairs{}, nil)

	resp, err := client[rpc.ExecuteRequest, rpc.ExecuteResponse](f, rpc.ExecuteSwapOperationsProcedure).
		CallUnary(context.Background(), connect.NewRequest(&rpc.ExecuteRequest{
			Sender:     f.sender,
			Operations: chain(),
		}))
	assert.NoError(t, err)
	reqID := resp.Header().Get("X-Request-Id")
	assert.NotEqual(t, reqID, "")

	var rpcLine string
	for _, line := range logs.lines() {
		if strings.Contains(line, `"message":"rpc"`) {
			rpcLine = line
		}
	}
	assert.True(t, strings.Contains(rpcLine, `"method":"ExecuteSwapOperations"`))
	assert.True(t, strings.Contains(rpcLine, `"hops":2`))
	assert.True(t, strings.Contains(rpcLine, `"sender":"`+f.sender+`"`))
	assert.True(t, strings.Contains(rpcLine, `"request_id":"`+reqID+`"`))
	assert.Equal(t, strings.Count(rpcLine, `"component":"rpc"`), 1)
}
