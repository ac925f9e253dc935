// Package provider defines the delivery-channel contract and the machinery
// that selects, calls, and supervises channels: a registry with per-provider
// circuit breakers and health statistics, and a manager that walks eligible
// providers in priority order until one delivers.
//
// # Contract
//
// Every channel implements Provider: a stable Name, declared Capabilities
// (transport kind plus whether success confirms receipt), an Available
// probe, and Send. Selection decisions are made against declared
// capabilities, never by inspecting concrete types.
//
// Errors returned from Send fall into two classes. Transient errors
// (timeouts, gateway outages) count against the provider's circuit breaker
// and make the manager fall through to the next candidate. Recipient-
// specific errors (dead device token, no live connection, no email address)
// are wrapped with Permanent: the attempt still fails and falls through, but
// the provider's health is untouched, because one user's dead token says
// nothing about the gateway.
//
// # Fallback
//
//	registry := provider.NewRegistry(provider.BreakerConfig{})
//	_ = registry.Register(socketProvider, provider.Config{Enabled: true, Priority: 0})
//	_ = registry.Register(expoProvider, provider.Config{Enabled: true, Priority: 1})
//	_ = registry.Register(emailProvider, provider.Config{Enabled: true, Priority: 9})
//
//	manager := provider.NewManager(registry,
//		provider.WithAttemptTimeout(10*time.Second),
//		provider.WithAttemptObserver(auditHook),
//	)
//
//	name, err := manager.Deliver(ctx, req,
//		provider.WithPreferred("expo"),
//		provider.WithExcluded("email"),
//	)
//
// Providers whose breaker is open are skipped without being called. A
// half-open breaker admits exactly one in-flight trial; concurrent
// deliveries queue behind it instead of stampeding a recovering gateway.
//
// # Built-in channels
//
// SocketProvider publishes to the in-process broadcast gateway live
// connections subscribe to. ExpoProvider and FCMProvider fan out to the
// user's registered device tokens over HTTPS and deactivate tokens their
// gateways report as unregistered. EmailProvider adapts any
// email.EmailSender as the lowest-priority fallback channel.
package provider
