package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	router "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	getter "github.com/hashicorp/go-getter"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// RouterConfigLoader loads router deployment files and converts them into router types
type RouterConfigLoader struct{}

func NewRouterConfigLoader() *RouterConfigLoader {
	return &RouterConfigLoader{}
}

// LoadFromFile reads a .json, .yaml/.yml or .toml deployment file
func (l *RouterConfigLoader) LoadFromFile(filePath string) (*RouterDeployment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read router config file: %w", err)
	}

	var deployment RouterDeployment
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		if err := json.Unmarshal(data, &deployment); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &deployment); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &deployment); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported router config extension %q", filepath.Ext(filePath))
	}

	if err := deployment.Validate(); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// Validate checks the deployment is complete
func (d *RouterDeployment) Validate() error {
	if d.ContractAddress == "" {
		return fmt.Errorf("contract_address is required")
	}
	if d.Bech32Prefix == "" {
		return fmt.Errorf("bech32_prefix is required")
	}
	return d.RouterConfig().Validate()
}

// RouterConfig converts the factories into a router.Config
func (d *RouterDeployment) RouterConfig() router.Config {
	return router.NewConfig(d.Factories.Terraswap, d.Factories.Loop, d.Factories.Astroport)
}

// Taxer builds the tax calculator the deployment asks for
func (d *RouterDeployment) Taxer(q router.TaxQuerier) router.Taxer {
	if d.DisableTax {
		return router.NoTax{}
	}
	return router.NewTreasuryTax(q, d.TaxExemptDenoms)
}

// FetchRouterConfig downloads a deployment file from src (http(s) URL or local path) to dst,
// so the server can follow a config published elsewhere.
func FetchRouterConfig(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
		Detectors: []getter.Detector{
			&getter.FileDetector{},
		},
		Getters: map[string]getter.Getter{
			"file":  &getter.FileGetter{Copy: true},
			"http":  &getter.HttpGetter{},
			"https": &getter.HttpGetter{},
		},
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to fetch router config from %s: %w", src, err)
	}
	return nil
}
