package rpc

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var Logger zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Logger = zerolog.New(out).With().Timestamp().Str("component", "rpc").Logger()
}

// SetLogger replaces the package logger, tagging it with component=rpc
func SetLogger(l zerolog.Logger) {
	Logger = l.With().Str("component", "rpc").Logger()
}

// ServerConfig holds configuration for the RPC server
type ServerConfig struct {
	Address               string
	AllowedOrigins        []string
	EnableMetrics         bool
	RatePerMinute         *int
	MaxConcurrentRequests *int
	OTelConfig            *OTelConfig
}

// DefaultServerConfig returns a default server configuration
func DefaultServerConfig() *ServerConfig {
	rateLimit := 0
	maxConcurrentRequests := 100
	return &ServerConfig{
		Address:               "localhost:8080",
		AllowedOrigins:        []string{"http://localhost:3000", "http://localhost:8080"},
		EnableMetrics:         true,
		RatePerMinute:         &rateLimit,
		MaxConcurrentRequests: &maxConcurrentRequests,
		OTelConfig:            DefaultOTelConfig(),
	}
}

// Server wraps the HTTP server and provides lifecycle management
type Server struct {
	config       *ServerConfig
	httpServer   *http.Server
	otelShutdown func(context.Context) error
}

// NewServer creates the swap router RPC server around svc
func NewServer(ctx context.Context, config *ServerConfig, svc *RouterServer) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	}
	if svc == nil {
		return nil, fmt.Errorf("router service is required")
	}

	otelCfg := config.OTelConfig
	var otelShutdown func(context.Context) error
	if otelCfg != nil && (otelCfg.EnableTracing || otelCfg.EnableMetrics || otelCfg.EnableLogs) {
		shutdown, err := NewOTelSDK(ctx, otelCfg)
		if err != nil {
			// telemetry is optional, serve without it
			Logger.Error().Err(err).Msg("Failed to initialize OpenTelemetry")
		} else {
			otelShutdown = shutdown
		}
	}

	mux := chi.NewMux()
	// request id and client address first so the access log and recoverer can report them
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(cloudflareIP)
	mux.Use(accessLog)
	mux.Use(recoverPanics)
	mux.Use(middleware.Compress(5))
	mux.Use(middleware.Timeout(60 * time.Second))

	if config.RatePerMinute != nil && *config.RatePerMinute > 0 {
		mux.Use(httprate.LimitByIP(*config.RatePerMinute, 1*time.Minute))
	}
	if config.MaxConcurrentRequests != nil && *config.MaxConcurrentRequests > 0 {
		mux.Use(middleware.Throttle(*config.MaxConcurrentRequests))
	}

	if config.EnableMetrics || (otelCfg != nil && otelCfg.UsePrometheus) {
		mux.Handle("/server/metrics", promhttp.Handler())
		Logger.Info().Msg("Metrics endpoint enabled: /server/metrics")
	}

	mux.HandleFunc("/server/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"swap-router-rpc"}`))
	})

	// ready only once the LCD behind the router answers
	mux.HandleFunc("/server/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !svc.Ready(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	connectOpts := []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithRecover(recoverHandler),
		connect.WithInterceptors(
			loggingInterceptor(),
			metricsInterceptor(),
			noCacheInterceptor(),
		),
	}
	if otelCfg != nil && otelCfg.EnableTracing {
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			Logger.Warn().Err(err).Msg("Failed to create OTEL interceptor, continuing without it")
		} else {
			connectOpts = append(connectOpts, connect.WithInterceptors(otelInterceptor))
		}
	}

	path, handler := NewRouterServiceHandler(svc, connectOpts...)
	mux.Handle(path+"*", handler)

	corsHandler := newCORSHandler(config.AllowedOrigins, mux)

	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           h2c.NewHandler(corsHandler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{config: config, httpServer: httpServer, otelShutdown: otelShutdown}, nil
}

// Handler returns the fully wrapped HTTP handler, used by tests and embedders
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving RPC requests without TLS
func (s *Server) Start() error {
	s.logServerInfo("http")
	return s.httpServer.ListenAndServe()
}

// StartTLS begins serving RPC requests with TLS
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logServerInfo("https")
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

func (s *Server) logServerInfo(protocol string) {
	server := []string{"/server/health", "/server/ready"}
	if s.config.EnableMetrics || (s.config.OTelConfig != nil && s.config.OTelConfig.UsePrometheus) {
		server = append(server, "/server/metrics")
	}
	Logger.Info().
		Str("address", s.config.Address).
		Str("protocol", protocol).
		Str("service", RouterServiceName).
		Strs("methods", RouterMethods).
		Strs("server", server).
		Msg("Swap router RPC server starting")
}

// Shutdown stops accepting requests, then flushes telemetry
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Info().Msg("Shutting down RPC server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		Logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}
	if s.otelShutdown != nil {
		if err := s.otelShutdown(ctx); err != nil {
			Logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
			return err
		}
	}

	Logger.Info().Msg("Server shutdown complete")
	return nil
}

// recoverHandler turns a handler panic into a generic internal error
func recoverHandler(ctx context.Context, spec connect.Spec, header http.Header, p any) error {
	Logger.Error().
		Interface("panic", p).
		Str("procedure", spec.Procedure).
		Msg("Panic in RPC handler")
	return connect.NewError(connect.CodeInternal, fmt.Errorf("internal server error"))
}
