// Package ops exposes the engine's observability surface as a read-only
// chi router: liveness/readiness, queue statistics, provider health, and
// audit trail queries. It is meant to be mounted into a host application's
// router or served standalone through pkg/httpserver:
//
//	srv := httpserver.New(httpserver.WithAddr(":8081"))
//	err := srv.Run(ctx, ops.Router(ops.RouterOptions{
//	    Stats:     engine,
//	    Providers: engine,
//	    Audit:     engine,
//	}))
//
// All endpoints respond with JSON. The router never mutates engine state;
// preference management and notification submission stay on the engine API.
package ops
