// Package redis connects the engine to Redis: a dial helper with startup
// retry and a readiness probe for the operational health endpoint.
//
// The resulting client backs the presence tracker (pkg/presence) and the
// frequency-cap usage counters (pkg/prefs). Both want shared state with TTL
// semantics, which Redis provides natively.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ready := redis.Healthcheck(client) // feeds ops.RouterOptions.Readiness
package redis
