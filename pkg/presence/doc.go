// Package presence tracks which users currently hold a live delivery path.
//
// The delivery engine consults the tracker to decide between immediate
// delivery and queueing: online users get an instant attempt, offline users
// get a queued notification that a background processor drains later.
//
// A Tracker records online/offline transitions together with the connection
// kind (socket or push) and the last-seen timestamp. Two implementations are
// provided: an in-memory tracker for single-process deployments and tests,
// and a Redis tracker whose entries expire automatically so crashed clients
// do not stay online forever.
//
// Basic usage:
//
//	tracker := presence.NewMemoryTracker(presence.WithStaleAfter(5 * time.Minute))
//
//	_ = tracker.SetOnline(ctx, userID, presence.KindSocket)
//	online, _ := tracker.IsOnline(ctx, userID)
package presence
