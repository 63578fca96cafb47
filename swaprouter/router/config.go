package router

import (
	"fmt"
	"sync"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

const (
	// ContractName is recorded on instantiate and every migration
	ContractName = "crates.io:terraswap-router"
	// ContractVersion is the router version written on migration
	ContractVersion = "0.1.0"
)

// Config is the router's deployment configuration. Factories maps each AMM backend tag
// to the factory registry its pairs are resolved against.
type Config struct {
	Factories map[models.Backend]string
}

// NewConfig builds a Config from the three factory addresses
func NewConfig(terraswapFactory, loopFactory, astroportFactory string) Config {
	return Config{Factories: map[models.Backend]string{
		models.BackendTerraswap: terraswapFactory,
		models.BackendLoop:      loopFactory,
		models.BackendAstroport: astroportFactory,
	}}
}

// Validate checks every AMM backend has a factory
func (c Config) Validate() error {
	for _, b := range models.AMMBackends {
		if c.Factories[b] == "" {
			return fmt.Errorf("missing factory address for %s", b)
		}
	}
	return nil
}

// FactoryFor returns the factory of an AMM backend
func (c Config) FactoryFor(b models.Backend) (string, error) {
	if !b.IsAMM() {
		return "", fmt.Errorf("%w: %s has no factory", ErrUnknownBackend, b)
	}
	addr, ok := c.Factories[b]
	if !ok || addr == "" {
		return "", fmt.Errorf("no factory configured for %s", b)
	}
	return addr, nil
}

// Response renders the config the way the config query exposes it
func (c Config) Response() models.ConfigResponse {
	return models.ConfigResponse{
		TerraswapFactory: c.Factories[models.BackendTerraswap],
		LoopFactory:      c.Factories[models.BackendLoop],
		AstroportFactory: c.Factories[models.BackendAstroport],
	}
}

func (c Config) clone() Config {
	out := Config{Factories: make(map[models.Backend]string, len(c.Factories))}
	for k, v := range c.Factories {
		out.Factories[k] = v
	}
	return out
}

// ContractInfo is the name/version pair a migration records
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// configStore holds the live config. Writes only happen through Migrate.
type configStore struct {
	mu      sync.RWMutex
	cfg     Config
	version ContractInfo
}

func (s *configStore) load() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *configStore) swap(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.version = ContractInfo{Contract: ContractName, Version: ContractVersion}
}

func (s *configStore) contractInfo() ContractInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
