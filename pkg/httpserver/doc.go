// Package httpserver hosts the engine's operational HTTP surface: a thin
// wrapper over net/http with graceful shutdown, configurable timeouts, and
// lifecycle hooks. The delivery pipeline never serves HTTP itself; pkg/ops
// mounts its read-only router on this server.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the configured shutdown
// deadline. Errors wrap the ErrStart and ErrShutdown sentinels for errors.Is
// inspection.
//
// # Usage
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//	)
//
//	router := ops.Router(ops.RouterOptions{Stats: engine, Providers: engine})
//	if err := srv.Run(ctx, router); err != nil {
//		slog.Error("ops server stopped", "err", err)
//	}
//
// NewFromConfig builds the same server from env-tagged Config, which is how
// the engine's LoadConfig path constructs it.
package httpserver
