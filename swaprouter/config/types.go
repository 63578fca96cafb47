package config

// RPCRouterConfig configures the swap router RPC server
type RPCRouterConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	// OpenTelemetry configs
	ServiceName    string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `toml:"service_version" mapstructure:"service_version"`
	Environment    string `toml:"environment" mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus" mapstructure:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics" mapstructure:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs" mapstructure:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs" mapstructure:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url" mapstructure:"otlp_logs_url"`

	InsecureOTLP bool `toml:"insecure_otlp" mapstructure:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode" mapstructure:"development_mode"`

	// Terra Classic LCD endpoints, the first one is the primary
	LCDURLs []string `toml:"lcd_urls" mapstructure:"lcd_urls"`
}

// Factories holds one factory address per AMM backend
type Factories struct {
	Terraswap string `toml:"terraswap" json:"terraswap" yaml:"terraswap"`
	Loop      string `toml:"loop" json:"loop" yaml:"loop"`
	Astroport string `toml:"astroport" json:"astroport" yaml:"astroport"`
}

// RouterDeployment describes one router deployment: its address and the factories it routes through
type RouterDeployment struct {
	ContractAddress string    `toml:"contract_address" json:"contract_address" yaml:"contract_address"`
	Bech32Prefix    string    `toml:"bech32_prefix" json:"bech32_prefix" yaml:"bech32_prefix"`
	Factories       Factories `toml:"factories" json:"factories" yaml:"factories"`
	// TaxExemptDenoms defaults to ["uluna"] when omitted
	TaxExemptDenoms []string `toml:"tax_exempt_denoms" json:"tax_exempt_denoms" yaml:"tax_exempt_denoms"`
	// DisableTax skips the treasury entirely, for chains without a transfer tax
	DisableTax bool `toml:"disable_tax" json:"disable_tax" yaml:"disable_tax"`
}
