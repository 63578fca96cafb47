package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/host"
	lcdquery "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/lcd_query"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// every package adds its own component tag
	rpc.SetLogger(log)
	router.SetLogger(log)
	host.SetLogger(log)
	lcdquery.SetLogger(log)
}

var (
	configRouter string
	lcdURLs      []string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "swaprouter",
	Short: "Multi-hop swap router for Terra Classic",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configRouter, "config-router", "./router.toml", "router deployment file (.toml, .json or .yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&lcdURLs, "lcd", nil, "LCD endpoints for queries, the first is the primary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every simulated hop")

	rootCmd.AddCommand(newServeCmd(), newSimulateCmd(), newReverseSimulateCmd(), newPlanCmd(), newValidateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// backend bundles what a command needs to talk to the chain
type backend struct {
	deployment *config.RouterDeployment
	lcd        *lcdquery.LCDClient
	router     *router.Router
}

func (b *backend) Close() {
	b.lcd.Close()
}

/*
newBackend loads the router deployment and wires the router to the LCD.

Params:
  - urls: LCD endpoints, the first one is the primary

Returns:
  - the backend, to be closed by the caller
*/
func newBackend(urls []string) (*backend, error) {
	deployment, err := config.NewRouterConfigLoader().LoadFromFile(configRouter)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one LCD url is required")
	}
	lcd, err := lcdquery.NewLCDClient(urls, lcdquery.DefaultFailoverConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create LCD client: %w", err)
	}
	r, err := router.New(deployment.RouterConfig(), router.Queriers{
		Pairs:    lcd,
		Native:   lcd,
		Tax:      deployment.Taxer(lcd),
		Balances: lcd,
	})
	if err != nil {
		lcd.Close()
		return nil, err
	}
	log.Info().
		Str("contract", deployment.ContractAddress).
		Str("lcd", lcd.CurrentURL()).
		Bool("tax", !deployment.DisableTax).
		Msg("Router initialized")
	return &backend{deployment: deployment, lcd: lcd, router: r}, nil
}

func parseOperations(raw string) ([]models.SwapOperation, error) {
	if raw == "" {
		return nil, fmt.Errorf("--ops is required")
	}
	if raw[0] == '@' {
		data, err := os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read operations file: %w", err)
		}
		raw = string(data)
	}
	var ops []models.SwapOperation
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		return nil, fmt.Errorf("invalid operations json: %w", err)
	}
	return ops, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 60*time.Second)
}
