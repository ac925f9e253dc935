// Package logger standardises structured logging across the delivery engine:
// a slog factory with functional options, attribute constructors for the
// domain vocabulary, and transparent injection of context values.
//
// New builds a *slog.Logger whose handler is wrapped by LogHandlerDecorator,
// so registered ContextExtractor callbacks run on every record. That is how
// notification and user IDs reach log lines without being threaded through
// every call site.
//
//	log := logger.New(
//	    logger.WithProduction("notify-engine"),
//	    logger.WithContextValue("notification_id", ctxKeyNotificationID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "delivery attempt finished",
//	    logger.Provider("expo"),
//	    logger.Status("delivered"),
//	)
//
// The constructors in attr.go (UserID, NotificationID, NotificationType,
// Provider, Attempt, QueueDepth, ...) keep attribute names consistent across
// packages. Error and Errors produce an empty attribute for nil errors, so
// they can be passed unconditionally.
//
// WithDevelopment, WithStaging, and WithProduction bundle per-environment
// defaults (level, format, service and env attributes); the finer-grained
// options override them in either direction.
package logger
