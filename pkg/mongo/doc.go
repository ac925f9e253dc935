// Package mongo connects the engine to MongoDB, which backs the delivery
// audit trail when the append-heavy event stream should live outside the
// relational store.
//
// New dials with retry so the engine survives Atlas transient failures at
// startup; NewWithDatabase is the usual entry point since the audit backend
// wants a database handle, not a bare client.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "notifications")
//	if err != nil {
//	    return err
//	}
//	trail := audit.NewMongoStorage(db, "delivery_audit")
//
// Healthcheck adapts a client ping for the operational health endpoint.
package mongo
