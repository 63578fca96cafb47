package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/rs/zerolog"
	"github.com/zeebo/assert"
)

var (
	uusd  = models.NativeToken("uusd")
	ukrw  = models.NativeToken("ukrw")
	uluna = models.NativeToken("uluna")
	uaud  = models.NativeToken("uaud")
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ops  []models.SwapOperation
		err  error
	}{
		{name: "empty", ops: nil, err: router.ErrEmptyOperations},
		{
			name: "single output uluna",
			ops: []models.SwapOperation{
				models.NativeSwap("uusd", "ukrw"),
				models.TerraSwap(ukrw, models.Token(token1)),
				models.TerraSwap(models.Token(token1), uluna),
			},
		},
		{
			name: "resolved asset re-offered",
			ops: []models.SwapOperation{
				models.NativeSwap("uusd", "uluna"),
				models.TerraSwap(ukrw, models.Token(token1)),
				models.TerraSwap(models.Token(token1), uluna),
				models.TerraSwap(uluna, models.Token(token2)),
			},
		},
		{
			name: "multiple outputs",
			ops: []models.SwapOperation{
				models.NativeSwap("uusd", "ukrw"),
				models.TerraSwap(ukrw, models.Token(token1)),
				models.TerraSwap(models.Token(token1), uaud),
				models.TerraSwap(uluna, models.Token(token2)),
			},
			err: router.ErrMultipleOutputs,
		},
		{
			name: "single hop",
			ops:  []models.SwapOperation{models.Astroport(models.Token(token2), uusd)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := router.Validate(tt.ops)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestSimulate_NoTax(t *testing.T) {
	f := newFixture(router.NoTax{})
	ops := []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
		models.Loop(models.Token(token1), models.Token(token2)),
		models.Astroport(models.Token(token2), uusd),
	}
	out, err := f.router.SimulateSwapOperations(context.Background(), u(1000), ops)
	assert.NoError(t, err)
	assert.Equal(t, out.String(), "2000")
}

func TestSimulate_TaxOnNativeOfferAndAsk(t *testing.T) {
	f := newFixture(nil)
	ops := []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
		models.Loop(models.Token(token1), models.Token(token2)),
		models.Astroport(models.Token(token2), uusd),
	}
	out, err := f.router.SimulateSwapOperations(context.Background(), u(1_000_000), ops)
	assert.NoError(t, err)
	// 1_000_000 - 9901 offer tax, x2 on loop, 1980198 - 19606 ask tax
	assert.Equal(t, out.String(), "1960592")
	assert.Equal(t, f.pairs.offers[0].Amount.String(), "990099")
	assert.Equal(t, f.pairs.offers[0].Info, uusd)
}

func TestSimulate_NativeSwapTaxOnlyOnLastHop(t *testing.T) {
	f := newFixture(nil)

	out, err := f.router.SimulateSwapOperations(context.Background(), u(1_000_000), []models.SwapOperation{
		models.NativeSwap("uusd", "ukrw"),
	})
	assert.NoError(t, err)
	assert.Equal(t, f.native.offers[0].Amount.String(), "990099")
	assert.Equal(t, out.String(), "1980198")

	f = newFixture(nil)
	out, err = f.router.SimulateSwapOperations(context.Background(), u(1_000_000), []models.SwapOperation{
		models.NativeSwap("uusd", "uluna"),
		models.TerraSwap(uluna, models.Token(token1)),
	})
	assert.NoError(t, err)
	assert.Equal(t, f.native.offers[0].Amount.String(), "1000000")
	// uluna is tax exempt
	assert.Equal(t, out.String(), "1000000")
}

func TestSimulate_Errors(t *testing.T) {
	ctx := context.Background()

	f := newFixture(nil)
	_, err := f.router.SimulateSwapOperations(ctx, u(1), nil)
	assert.True(t, errors.Is(err, router.ErrEmptyOperations))

	f.pairs.failing = true
	_, err = f.router.SimulateSwapOperations(ctx, u(1000), []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
	})
	assert.True(t, errors.Is(err, router.ErrBackendQuery))
	assert.True(t, errors.Is(err, errBackendDown))

	f = newFixture(fixedTaxer{tax: u(5000)})
	_, err = f.router.SimulateSwapOperations(ctx, u(1000), []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
	})
	assert.True(t, errors.Is(err, models.ErrUnderflow))

	f = newFixture(nil)
	_, err = f.router.SimulateSwapOperations(ctx, u(1000), []models.SwapOperation{
		models.TerraSwap(uaud, models.Token(token1)),
	})
	assert.True(t, errors.Is(err, router.ErrBackendQuery))
}

func TestUnknownBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	ops := []models.SwapOperation{{Backend: "orca_swap", Offer: uusd, Ask: ukrw}}

	_, err := f.router.SimulateSwapOperations(ctx, u(1000), ops)
	assert.True(t, errors.Is(err, router.ErrUnknownBackend))
	assert.False(t, errors.Is(err, router.ErrBackendQuery))
	assert.True(t, strings.Contains(err.Error(), "orca_swap"))

	_, err = f.router.ReverseSimulateSwapOperations(ctx, u(1000), ops)
	assert.True(t, errors.Is(err, router.ErrUnknownBackend))

	_, err = router.Config{}.FactoryFor(models.BackendNative)
	assert.True(t, errors.Is(err, router.ErrUnknownBackend))
}

func TestSimulate_Monotonic(t *testing.T) {
	f := newFixture(nil)
	ops := []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
		models.TerraSwap(models.Token(token1), ukrw),
		models.NativeSwap("ukrw", "uusd"),
	}
	prev := models.Uint128{}
	for amount := uint64(1000); amount < 500_000; amount += 997 {
		out, err := f.router.SimulateSwapOperations(context.Background(), u(amount), ops)
		assert.NoError(t, err)
		assert.False(t, out.LT(prev))
		prev = out
	}
}

func TestReverseSimulate(t *testing.T) {
	ctx := context.Background()

	f := newFixture(nil)
	out, err := f.router.ReverseSimulateSwapOperations(ctx, u(990099), []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
	})
	assert.NoError(t, err)
	// 990099 + floor(990099 * 0.01)
	assert.Equal(t, out.String(), "999999")

	f = newFixture(router.NoTax{})
	out, err = f.router.ReverseSimulateSwapOperations(ctx, u(2000), []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
		models.Loop(models.Token(token1), models.Token(token2)),
	})
	assert.NoError(t, err)
	assert.Equal(t, out.String(), "1000")
	// hops are walked last to first
	assert.Equal(t, f.pairs.asks[0].Info, models.Token(token2))
	assert.Equal(t, f.pairs.asks[1].Info, models.Token(token1))
}

func TestReverseSimulate_NativeUnsupported(t *testing.T) {
	f := newFixture(nil)
	_, err := f.router.ReverseSimulateSwapOperations(context.Background(), u(1000), []models.SwapOperation{
		models.NativeSwap("uusd", "ukrw"),
		models.TerraSwap(ukrw, models.Token(token1)),
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, router.ErrReverseNativeUnsupported))
	assert.True(t, strings.Contains(err.Error(), "reverse simulation of native_swap is not supported yet"))

	_, err = f.router.ReverseSimulateSwapOperations(context.Background(), u(1000), nil)
	assert.True(t, errors.Is(err, router.ErrEmptyOperations))
}

func TestReverseThenForwardRoundTrip(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	ops := []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
		models.Loop(models.Token(token1), models.Token(token2)),
	}
	for target := uint64(10_000); target < 2_000_000; target += 48_611 {
		offer, err := f.router.ReverseSimulateSwapOperations(ctx, u(target), ops)
		assert.NoError(t, err)
		got, err := f.router.SimulateSwapOperations(ctx, offer, ops)
		assert.NoError(t, err)

		diff, err := u(target).CheckedSub(got)
		if err != nil {
			diff, err = got.CheckedSub(u(target))
			assert.NoError(t, err)
		}
		assert.False(t, diff.GT(u(4)))
	}
}

var testEnv = models.Env{BlockTime: 1_700_000_000, ContractAddress: routerAddr}

func chainToLuna() []models.SwapOperation {
	return []models.SwapOperation{
		models.NativeSwap("uusd", "ukrw"),
		models.TerraSwap(ukrw, models.Token(token1)),
		models.TerraSwap(models.Token(token1), uluna),
	}
}

func TestExecute_Plan(t *testing.T) {
	f := newFixture(nil)
	msgs, err := f.router.Execute(context.Background(), testEnv, "terra1sender", models.ExecuteSwapOperations{
		Operations: chainToLuna(),
	})
	assert.NoError(t, err)
	assert.Equal(t, len(msgs), 3)
	for i, m := range msgs {
		assert.Equal(t, m.ContractAddr, routerAddr)
		assert.Equal(t, len(m.Funds), 0)
		assert.NotNil(t, m.Msg.ExecuteSwapOperation)
		assert.True(t, m.Msg.ExecuteSwapOperation.Deadline == nil)
		assert.Equal(t, m.Msg.ExecuteSwapOperation.Operation, chainToLuna()[i])
		if i < 2 {
			assert.True(t, m.Msg.ExecuteSwapOperation.To == nil)
		}
	}
	assert.Equal(t, *msgs[2].Msg.ExecuteSwapOperation.To, "terra1sender")
	// no minimum receive, no snapshot
	assert.Equal(t, len(f.balances.calls), 0)

	raw, err := json.Marshal(msgs[0])
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"execute_swap_operation":{"operation":{"native_swap":{"offer_denom":"uusd","ask_denom":"ukrw"}},"to":null,"deadline":null}`))
	assert.True(t, strings.Contains(string(raw), `"funds":[]`))
}

func TestExecute_MinimumReceive(t *testing.T) {
	f := newFixture(nil)
	f.balances.set(uluna, "terra1receiver", 500)
	to := "terra1receiver"
	minimum := u(12345)

	msgs, err := f.router.Execute(context.Background(), testEnv, "terra1sender", models.ExecuteSwapOperations{
		Operations:     chainToLuna(),
		MinimumReceive: &minimum,
		To:             &to,
	})
	assert.NoError(t, err)
	assert.Equal(t, len(msgs), 4)
	assert.Equal(t, *msgs[2].Msg.ExecuteSwapOperation.To, "terra1receiver")

	assertMsg := msgs[3].Msg.AssertMinimumReceive
	assert.NotNil(t, assertMsg)
	assert.Equal(t, assertMsg.AssetInfo, uluna)
	assert.Equal(t, assertMsg.PrevBalance.String(), "500")
	assert.Equal(t, assertMsg.MinimumReceive.String(), "12345")
	assert.Equal(t, assertMsg.Receiver, "terra1receiver")

	assert.Equal(t, len(f.balances.calls), 1)
	assert.Equal(t, f.balances.calls[0].asset, uluna)
	assert.Equal(t, f.balances.calls[0].address, "terra1receiver")
}

func TestExecute_Errors(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	past := testEnv.BlockTime - 1
	msgs, err := f.router.Execute(ctx, testEnv, "terra1sender", models.ExecuteSwapOperations{
		Operations: chainToLuna(),
		Deadline:   &past,
	})
	assert.True(t, errors.Is(err, router.ErrExpired))
	assert.Equal(t, len(msgs), 0)

	now := testEnv.BlockTime
	_, err = f.router.Execute(ctx, testEnv, "terra1sender", models.ExecuteSwapOperations{
		Operations: chainToLuna(),
		Deadline:   &now,
	})
	assert.NoError(t, err)

	_, err = f.router.Execute(ctx, testEnv, "terra1sender", models.ExecuteSwapOperations{})
	assert.True(t, errors.Is(err, router.ErrEmptyOperations))

	minimum := u(1)
	_, err = f.router.Execute(ctx, testEnv, "terra1sender", models.ExecuteSwapOperations{
		Operations: []models.SwapOperation{
			models.NativeSwap("uusd", "ukrw"),
			models.TerraSwap(uluna, models.Token(token2)),
		},
		MinimumReceive: &minimum,
	})
	assert.True(t, errors.Is(err, router.ErrMultipleOutputs))
	assert.Equal(t, len(f.balances.calls), 0)

	_, err = f.router.Execute(ctx, testEnv, "", models.ExecuteSwapOperations{Operations: chainToLuna()})
	assert.Error(t, err)
}

func TestAssertMinimumReceive(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.balances.set(uluna, "terra1receiver", 1500)

	msg := models.AssertMinimumReceive{
		AssetInfo:      uluna,
		PrevBalance:    u(500),
		MinimumReceive: u(1000),
		Receiver:       "terra1receiver",
	}
	assert.NoError(t, f.router.AssertMinimumReceive(ctx, msg))

	msg.MinimumReceive = u(1001)
	err := f.router.AssertMinimumReceive(ctx, msg)
	var failed *router.AssertionFailedError
	assert.True(t, errors.As(err, &failed))
	assert.Equal(t, failed.Required.String(), "1001")
	assert.Equal(t, failed.Actual.String(), "1000")
	assert.Equal(t, err.Error(), "assertion failed; minimum receive amount: 1001, swap amount: 1000")

	msg.PrevBalance = u(2000)
	err = f.router.AssertMinimumReceive(ctx, msg)
	assert.True(t, errors.Is(err, models.ErrUnderflow))
}

func TestReceive(t *testing.T) {
	f := newFixture(nil)
	hook, err := json.Marshal(models.Cw20HookMsg{ExecuteSwapOperations: &models.ExecuteSwapOperations{
		Operations: []models.SwapOperation{
			models.Loop(models.Token(token1), models.Token(token2)),
		},
	}})
	assert.NoError(t, err)

	msgs, err := f.router.Receive(context.Background(), testEnv, models.Cw20ReceiveMsg{
		Sender: "terra1cw20sender",
		Amount: u(100),
		Msg:    hook,
	})
	assert.NoError(t, err)
	assert.Equal(t, len(msgs), 1)
	assert.Equal(t, *msgs[0].Msg.ExecuteSwapOperation.To, "terra1cw20sender")

	_, err = f.router.Receive(context.Background(), testEnv, models.Cw20ReceiveMsg{
		Sender: "terra1cw20sender",
		Msg:    []byte(`{"unknown":{}}`),
	})
	assert.Error(t, err)
}

func TestConfigAndMigrate(t *testing.T) {
	f := newFixture(nil)
	cfg := f.router.Config()
	assert.Equal(t, cfg.TerraswapFactory, terraswapFactory)
	assert.Equal(t, cfg.LoopFactory, loopFactory)
	assert.Equal(t, cfg.AstroportFactory, astroportFactory)
	assert.Equal(t, f.router.ContractInfo().Contract, router.ContractName)

	err := f.router.Migrate(router.Config{})
	assert.Error(t, err)

	assert.NoError(t, f.router.Migrate(router.NewConfig("terra1newts", loopFactory, astroportFactory)))
	assert.Equal(t, f.router.Config().TerraswapFactory, "terra1newts")

	// pairs were registered under the old factory
	_, err = f.router.SimulateSwapOperations(context.Background(), u(1000), []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
	})
	assert.True(t, errors.Is(err, router.ErrBackendQuery))

	resp, err := f.router.Query(context.Background(), models.QueryMsg{Config: &struct{}{}})
	assert.NoError(t, err)
	assert.Equal(t, resp.(models.ConfigResponse).TerraswapFactory, "terra1newts")
}

func TestSetLogger_TagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	router.SetLogger(zerolog.New(&buf).With().Str("component", "router").Logger())
	t.Cleanup(func() { router.SetLogger(zerolog.Nop()) })

	f := newFixture(nil)
	_, err := f.router.SimulateSwapOperations(context.Background(), u(1000), []models.SwapOperation{
		models.TerraSwap(uusd, models.Token(token1)),
	})
	assert.NoError(t, err)

	assert.True(t, strings.Contains(buf.String(), "Simulated hop"))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, strings.Count(line, `"component":"router"`), 1)
	}
}
