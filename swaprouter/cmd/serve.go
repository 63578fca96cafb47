package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/config"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/rpc"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configRPC    string
		configSource string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the router RPC API",
		Long: "Serve the router RPC API.\n\n" +
			"SIGHUP re-reads the router deployment (fetching --config-source first when set) and migrates the router to it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configRPC, configSource)
		},
	}
	cmd.Flags().StringVar(&configRPC, "config-rpc", "./rpc-config.toml", "rpc server config file, empty reads SWAPROUTER_* env vars")
	cmd.Flags().StringVar(&configSource, "config-source", "", "url or path the router deployment is fetched from into --config-router")
	return cmd
}

func runServe(ctx context.Context, configRPC, configSource string) error {
	log.Info().
		Str("rpc_config", configRPC).
		Str("router_config", configRouter).
		Msg("Starting Spectra's Swap Router")

	var rpcPath *string
	if configRPC != "" {
		rpcPath = &configRPC
	}
	rpcConfig, err := config.LoadRPCRouterConfig(rpcPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load RPC config")
		return err
	}

	if configSource != "" {
		if err := config.FetchRouterConfig(ctx, configSource, configRouter); err != nil {
			log.Error().Err(err).Msg("Failed to fetch router config")
			return err
		}
	}

	urls := rpcConfig.LCDURLs
	if len(lcdURLs) > 0 {
		urls = lcdURLs
	}
	b, err := newBackend(urls)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize router")
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := rpc.NewRouterServer(b.router, b.deployment.ContractAddress, b.deployment.Bech32Prefix, b.lcd)
	server, err := rpc.NewServer(ctx, buildServerConfig(rpcConfig), svc)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create RPC server")
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

loop:
	for {
		select {
		case err := <-serveErr:
			log.Error().Err(err).Msg("Server error")
			break loop
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reloadRouter(ctx, b, configSource)
				continue
			}
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			break loop
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
		return err
	}
	return nil
}

// reloadRouter migrates the running router to the deployment on disk. A bad file keeps the old config.
func reloadRouter(ctx context.Context, b *backend, configSource string) {
	if configSource != "" {
		if err := config.FetchRouterConfig(ctx, configSource, configRouter); err != nil {
			log.Error().Err(err).Msg("Reload: failed to fetch router config, keeping current")
			return
		}
	}
	deployment, err := config.NewRouterConfigLoader().LoadFromFile(configRouter)
	if err != nil {
		log.Error().Err(err).Msg("Reload: invalid router config, keeping current")
		return
	}
	if deployment.ContractAddress != b.deployment.ContractAddress {
		log.Warn().
			Str("running", b.deployment.ContractAddress).
			Str("file", deployment.ContractAddress).
			Msg("Reload: contract address changes need a restart, only factories are migrated")
	}
	if err := b.router.Migrate(deployment.RouterConfig()); err != nil {
		log.Error().Err(err).Msg("Reload: migration failed, keeping current")
		return
	}
	log.Info().Msg("Router config reloaded")
}

// buildServerConfig converts the loaded RPCRouterConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.RPCRouterConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.UsePrometheus,
	}
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:     defaultString(cfg.ServiceName, "spectra-swap-router"),
			ServiceVersion:  defaultString(cfg.ServiceVersion, "0.1.0"),
			Environment:     defaultString(cfg.Environment, "development"),
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			EnableMetrics:   cfg.EnableMetrics,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			EnableLogs:      cfg.EnableLogs,
			UseOTLPLogs:     cfg.UseOTLPLogs,
			OTLPLogsURL:     cfg.OTLPLogsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}
	return serverConfig
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
