package lcdquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "lcd").Logger()
}

// SetLogger replaces the package logger, tagging it with component=lcd
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "lcd").Logger()
}

// healthPath is polled to decide whether an endpoint is usable
const healthPath = "/cosmos/base/tendermint/v1beta1/node_info"

// ErrLCDStatus is wrapped by errors for non 200 LCD responses
var ErrLCDStatus = errors.New("lcd returned non 200 status")

// LCDClient queries a Terra Classic LCD (REST) endpoint with failover support.
// It keeps a primary endpoint and switches to a backup when the primary is unavailable,
// moving back once the health checker sees the primary healthy again.
type LCDClient struct {
	httpClient     *http.Client
	primaryURL     string
	backupURLs     []string
	currentURL     string
	mu             sync.RWMutex
	healthChecker  *healthChecker
	failoverConfig FailoverConfig
}

// FailoverConfig controls failover behavior
type FailoverConfig struct {
	// MaxRetries is the number of times to retry a failed request on the current endpoint
	MaxRetries int
	// RetryDelay is the initial delay between retries (doubles with each retry)
	RetryDelay time.Duration
	// HealthCheckInterval is how often to check if the primary endpoint is back up
	HealthCheckInterval time.Duration
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:          2,
		RetryDelay:          300 * time.Millisecond,
		HealthCheckInterval: 30 * time.Second,
		Timeout:             10 * time.Second,
	}
}

type healthChecker struct {
	client    *LCDClient
	stopCh    chan struct{}
	stoppedCh chan struct{}
	once      sync.Once
}

// NewLCDClient creates a client for urls[0] with the rest as backups
func NewLCDClient(urls []string, config FailoverConfig) (*LCDClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one lcd url is required")
	}
	if _, err := url.ParseRequestURI(urls[0]); err != nil {
		return nil, fmt.Errorf("invalid primary lcd url %q: %w", urls[0], err)
	}

	validBackups := make([]string, 0, len(urls)-1)
	for _, u := range urls[1:] {
		if _, err := url.ParseRequestURI(u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Invalid backup URL, skipping")
			continue
		}
		validBackups = append(validBackups, u)
	}

	client := &LCDClient{
		httpClient:     &http.Client{Timeout: config.Timeout},
		primaryURL:     urls[0],
		backupURLs:     validBackups,
		currentURL:     urls[0],
		failoverConfig: config,
	}
	if len(validBackups) > 0 && config.HealthCheckInterval > 0 {
		client.startHealthChecker()
	}

	log.Info().
		Str("primary", urls[0]).
		Int("backups", len(validBackups)).
		Msg("LCD client initialized")
	return client, nil
}

func (c *LCDClient) startHealthChecker() {
	h := &healthChecker{
		client:    c,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	c.healthChecker = h

	go func() {
		defer close(h.stoppedCh)
		ticker := time.NewTicker(c.failoverConfig.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.checkAndRestore()
			}
		}
	}()
}

func (h *healthChecker) stop() {
	h.once.Do(func() {
		close(h.stopCh)
		<-h.stoppedCh
	})
}

func (h *healthChecker) checkAndRestore() {
	if h.client.CurrentURL() == h.client.primaryURL {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.client.failoverConfig.Timeout)
	defer cancel()
	if h.client.isEndpointHealthy(ctx, h.client.primaryURL) {
		h.client.mu.Lock()
		h.client.currentURL = h.client.primaryURL
		h.client.mu.Unlock()
		log.Info().Str("url", h.client.primaryURL).Msg("Restored primary endpoint")
	}
}

func (c *LCDClient) isEndpointHealthy(ctx context.Context, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", endpoint).Msg("Health check failed")
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// Healthy reports whether the current endpoint answers its health check
func (c *LCDClient) Healthy(ctx context.Context) bool {
	return c.isEndpointHealthy(ctx, c.CurrentURL())
}

// CurrentURL returns the endpoint requests are sent to
func (c *LCDClient) CurrentURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentURL
}

// failover switches to the next healthy endpoint after the current one
func (c *LCDClient) failover(ctx context.Context) bool {
	c.mu.RLock()
	all := append([]string{c.primaryURL}, c.backupURLs...)
	current := c.currentURL
	c.mu.RUnlock()

	idx := 0
	for i, u := range all {
		if u == current {
			idx = i
			break
		}
	}
	for i := 1; i < len(all); i++ {
		next := all[(idx+i)%len(all)]
		if c.isEndpointHealthy(ctx, next) {
			c.mu.Lock()
			c.currentURL = next
			c.mu.Unlock()
			log.Info().Str("url", next).Msg("Failover to endpoint")
			return true
		}
	}
	log.Warn().Str("url", current).Msg("All endpoints unhealthy, staying on current")
	return false
}

// Close stops the health checker
func (c *LCDClient) Close() {
	if c.healthChecker != nil {
		c.healthChecker.stop()
	}
}

// grpcStatus is the error body the LCD gateway returns for failed queries
type grpcStatus struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

// retryableStatus reports whether another attempt can change the answer. A body carrying
// a non zero gRPC code is a deterministic failure, such as a contract query error, even
// when the gateway sends it as HTTP 500.
func retryableStatus(status int, body []byte) bool {
	var st grpcStatus
	if err := json.Unmarshal(body, &st); err == nil && st.Code != nil && *st.Code != 0 {
		return false
	}
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get performs one GET. retryable is true only for transport errors and gateway failures.
func (c *LCDClient) get(ctx context.Context, fullURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retryableStatus(resp.StatusCode, body),
			fmt.Errorf("%w: HTTP %d: %s", ErrLCDStatus, resp.StatusCode, string(body))
	}
	return body, false, nil
}

// doRequestWithFailover performs a GET with retry, exponential backoff and failover
func (c *LCDClient) doRequestWithFailover(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	retryDelay := c.failoverConfig.RetryDelay

	for attempt := 0; attempt <= c.failoverConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}
		body, retryable, err := c.get(ctx, c.CurrentURL()+path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return nil, err
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Str("path", path).Msg("LCD request failed")
	}

	if len(c.backupURLs) > 0 && c.failover(ctx) {
		body, _, err := c.get(ctx, c.CurrentURL()+path)
		if err != nil {
			return nil, fmt.Errorf("failover request failed: %w (original: %w)", err, lastErr)
		}
		return body, nil
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", c.failoverConfig.MaxRetries+1, lastErr)
}
