// Package audit records the outcome of every notification delivery
// attempt: deliveries, failures, and notifications blocked by user
// preferences before they ever reached a provider.
//
// # Events
//
// An Event captures one outcome. Constructors build well-formed events
// for the three results:
//
//	event := audit.Delivered(notificationID, userID, "comment", "fcm", 42*time.Millisecond)
//	event := audit.Failed(notificationID, userID, "comment", "expo", err)
//	event := audit.Blocked(userID, "marketing", "type_disabled")
//
// Blocked events carry a zero NotificationID because blocked
// notifications are never queued.
//
// # Storage
//
// Three Storage implementations are provided: MemoryStorage (bounded
// in-process buffer, oldest events evicted first), PostgresStorage, and
// MongoStorage. Query returns events newest first and filters on any
// combination of Criteria fields.
//
// # Asynchronous recording
//
// AsyncWriter decouples recording from storage latency. Events are
// buffered, batched, and written in the background; a full buffer falls
// back to a synchronous write so nothing is lost:
//
//	writer, err := audit.NewAsyncWriter(storage)
//	if err != nil {
//		return err
//	}
//	defer writer.Close(ctx)
//
//	_ = writer.Record(ctx, audit.Delivered(id, userID, "comment", "fcm", latency))
package audit
