package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// accessLog writes one line per HTTP request and echoes the request id back to the caller.
// It must run after middleware.RequestID. Health and readiness checks are logged at debug.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set(middleware.RequestIDHeader, reqID)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		event := Logger.Info()
		if strings.HasPrefix(r.URL.Path, "/server/") {
			event = Logger.Debug()
		}
		if method, ok := routerMethod(r.URL.Path); ok {
			event = event.Str("method", method)
		} else {
			event = event.Str("path", r.URL.Path)
		}
		event.
			Str("verb", r.Method).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Str("request_id", reqID).
			Msg("http")
	})
}

// cloudflareIP prefers CF-Connecting-IP over what middleware.RealIP picked
func cloudflareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics catches panics in the plain HTTP routes, connect handlers use recoverHandler
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				Logger.Error().
					Interface("panic", rvr).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("Recovered from panic")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

/*
newCORSHandler allows browser wallets to call the router.

The router speaks the Connect protocol with a JSON codec only. Quotes and plans have no side
effects, so connect clients may send them as GET. No gRPC-web or binary headers are needed.
*/
func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	// credentials are not allowed together with a wildcard origin
	allowCredentials := !(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Connect-Content-Encoding",
			"Connect-Accept-Encoding",
			middleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			middleware.RequestIDHeader,
			"Connect-Content-Encoding",
		},
		AllowCredentials: allowCredentials,
		MaxAge:           int(2 * time.Hour / time.Second),
	}).Handler(next)
}

// loggingInterceptor logs every router call with its method, chain length and outcome
func loggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			method, _ := routerMethod(req.Spec().Procedure)
			event := rpcEvent(err)
			event = event.
				Str("method", method).
				Str("protocol", req.Peer().Protocol).
				Str("request_id", middleware.GetReqID(ctx))
			if sized, ok := req.Any().(chainSized); ok {
				event = event.Int("hops", sized.chainLen())
			}
			if s, ok := req.Any().(senderScoped); ok {
				event = event.Str("sender", s.senderAddr())
			}
			event.Dur("duration", time.Since(start)).Msg("rpc")
			return resp, err
		}
	}
}

// rpcEvent picks the level for a finished call. Rejected chains are the caller's problem
// and log as warnings, internal failures as errors.
func rpcEvent(err error) *zerolog.Event {
	if err == nil {
		return Logger.Info()
	}
	code := connect.CodeOf(err)
	event := Logger.Warn()
	if code == connect.CodeInternal || code == connect.CodeUnknown || code == connect.CodeUnavailable {
		event = Logger.Error()
	}
	return event.Err(err).Str("code", code.String())
}

// noCacheInterceptor marks quotes and plans as uncacheable, they go stale with every block
func noCacheInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err == nil && resp != nil {
				resp.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
			}
			return resp, err
		}
	}
}
