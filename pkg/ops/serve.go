package ops

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/httpserver"
)

// Serve mounts the operational router on its own graceful HTTP server and
// blocks until ctx is cancelled or the listener fails. Deployments that
// already run an HTTP server mount Router on their own mux instead.
func Serve(ctx context.Context, cfg httpserver.Config, opts RouterOptions, serverOpts ...httpserver.Option) error {
	if opts.Logger != nil {
		serverOpts = append(serverOpts, httpserver.WithLogger(opts.Logger))
	}
	srv := httpserver.NewFromConfig(cfg, serverOpts...)
	return srv.Run(ctx, Router(opts))
}
