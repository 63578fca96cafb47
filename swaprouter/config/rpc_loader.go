package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadRPCRouterConfig loads the RPC server config. A nil path reads SWAPROUTER_* env vars.
func LoadRPCRouterConfig(configPath *string) (*RPCRouterConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rate_per_minute", 300)
	v.SetDefault("max_concurrent_requests", 100)
	v.SetDefault("service_name", "spectra-swap-router")
	v.SetDefault("environment", "LOCAL")
}

func loadEnv(v *viper.Viper) (*RPCRouterConfig, error) {
	// a missing .env is fine, env can come from docker, systemd or the shell
	_ = godotenv.Load()
	v.SetEnvPrefix("SWAPROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config RPCRouterConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each key to its env var so Unmarshal sees env values in env only mode
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode", "lcd_urls",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*RPCRouterConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config RPCRouterConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

func verifyConfig(config *RPCRouterConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}
	if len(config.LCDURLs) == 0 {
		return fmt.Errorf("lcd_urls is required")
	}
	for _, u := range config.LCDURLs {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid lcd url %q: %w", u, err)
		}
	}
	if config.RatePerMinute < 0 || config.MaxConcurrentRequests < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}
