package rpc

import (
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// RouterServiceName is the fully-qualified name of the router service
	RouterServiceName = "swaprouter.v1.RouterService"

	ConfigProcedure                        = "/swaprouter.v1.RouterService/Config"
	SimulateSwapOperationsProcedure        = "/swaprouter.v1.RouterService/SimulateSwapOperations"
	ReverseSimulateSwapOperationsProcedure = "/swaprouter.v1.RouterService/ReverseSimulateSwapOperations"
	ExecuteSwapOperationsProcedure         = "/swaprouter.v1.RouterService/ExecuteSwapOperations"
	DryRunSwapOperationsProcedure          = "/swaprouter.v1.RouterService/DryRunSwapOperations"
)

// RouterMethods lists the method names served under RouterServiceName
var RouterMethods = []string{
	"Config",
	"SimulateSwapOperations",
	"ReverseSimulateSwapOperations",
	"ExecuteSwapOperations",
	"DryRunSwapOperations",
}

// routerMethod returns the method name of a path under the router service
func routerMethod(path string) (string, bool) {
	method, ok := strings.CutPrefix(path, "/"+RouterServiceName+"/")
	return method, ok && method != ""
}

/*
NewRouterServiceHandler builds the HTTP handler for every router procedure.

Params:
  - svc: the service implementation
  - opts: handler options shared by all procedures (codec, interceptors)

Returns:
  - the path prefix to mount the handler on
  - the handler
*/
func NewRouterServiceHandler(svc *RouterServer, opts ...connect.HandlerOption) (string, http.Handler) {
	queryOpts := append([]connect.HandlerOption{
		connect.WithIdempotency(connect.IdempotencyNoSideEffects),
	}, opts...)

	configHandler := connect.NewUnaryHandler(ConfigProcedure, svc.Config, queryOpts...)
	simulateHandler := connect.NewUnaryHandler(SimulateSwapOperationsProcedure, svc.SimulateSwapOperations, queryOpts...)
	reverseHandler := connect.NewUnaryHandler(ReverseSimulateSwapOperationsProcedure, svc.ReverseSimulateSwapOperations, queryOpts...)
	// planning and dry runs read chain state but never write it
	executeHandler := connect.NewUnaryHandler(ExecuteSwapOperationsProcedure, svc.ExecuteSwapOperations, queryOpts...)
	dryRunHandler := connect.NewUnaryHandler(DryRunSwapOperationsProcedure, svc.DryRunSwapOperations, queryOpts...)

	return "/" + RouterServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ConfigProcedure:
			configHandler.ServeHTTP(w, r)
		case SimulateSwapOperationsProcedure:
			simulateHandler.ServeHTTP(w, r)
		case ReverseSimulateSwapOperationsProcedure:
			reverseHandler.ServeHTTP(w, r)
		case ExecuteSwapOperationsProcedure:
			executeHandler.ServeHTTP(w, r)
		case DryRunSwapOperationsProcedure:
			dryRunHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
