// Package queue provides a durable notification queue with retry backoff,
// TTL expiry, and connectivity-aware dispatch.
//
// The package is organised around two main components:
//
//   - Storage    — persists notifications and enforces the delivery lifecycle
//   - Processor  — sweeps due notifications and walks them through providers
//
// Storage has in-memory and PostgreSQL implementations; any other engine can
// back the queue by implementing the interface. All lifecycle transitions are
// atomic check-and-set operations, so multiple processors can share one
// store without double-delivering.
//
// # Lifecycle
//
// A notification is created Pending and moves through:
//
//	Pending -> Processing -> Delivered
//	                      -> Pending   (failed attempt, retry scheduled)
//	                      -> Failed    (attempts exhausted)
//	Pending -> Cancelled
//	any non-terminal -> Expired        (TTL lapsed)
//
// Terminal states are immutable. A provider result that arrives after the
// notification was finalized elsewhere is discarded.
//
// Failed attempts back off exponentially: the n-th failure schedules the
// next attempt after base * 2^n, capped. Scheduled notifications and
// quiet-hours deferrals reuse the same Pending state with ScheduledFor set.
//
// # Dispatch
//
// The processor sweeps in three independent cadences: due Pending
// notifications, elapsed retry backoffs, and expiry/retention cleanup.
// Sweeps only dispatch to users the presence tracker reports reachable;
// everyone else's notifications wait in the queue. FlushUser drains a
// single user's backlog in priority order the moment they reconnect.
//
// Before each dispatch the preferences gate is re-checked: notifications
// whose type or channel was disabled while queued are cancelled, and quiet
// hours defer delivery to the end of the window.
//
// # Usage
//
//	storage := queue.NewMemoryStorage()
//	processor, err := queue.NewProcessor(storage, manager, gate, tracker)
//	if err != nil {
//	    return err
//	}
//
//	n := &queue.Notification{
//	    UserID:      userID,
//	    Type:        "comment",
//	    Title:       "New comment",
//	    Body:        "Alice commented on your post",
//	    Priority:    queue.PriorityNormal,
//	    MaxAttempts: 5,
//	}
//	if err := storage.Create(ctx, n); err != nil {
//	    return err
//	}
//
//	// Deliver immediately when the user is reachable, otherwise the
//	// background sweeps pick it up.
//	_ = processor.Dispatch(ctx, n)
//
// Run the background sweeps under errgroup:
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(processor.Run(ctx))
package queue
