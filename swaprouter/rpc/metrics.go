package rpc

import (
	"context"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swaprouter",
		Name:      "rpc_requests_total",
		Help:      "RPC requests by procedure and connect code.",
	}, []string{"procedure", "code"})

	chainLength = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swaprouter",
		Name:      "operation_chain_length",
		Help:      "Number of swap operations per request.",
		Buckets:   prometheus.LinearBuckets(1, 1, 8),
	}, []string{"procedure"})
)

// chainSized is implemented by requests that carry an operation chain
type chainSized interface {
	chainLen() int
}

// senderScoped is implemented by requests submitted on behalf of an address
type senderScoped interface {
	senderAddr() string
}

func metricsInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			if sized, ok := req.Any().(chainSized); ok {
				chainLength.WithLabelValues(procedure).Observe(float64(sized.chainLen()))
			}

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			requestsTotal.WithLabelValues(procedure, code).Inc()
			return resp, err
		}
	}
}
