// Package ingest consumes upstream domain events from Kafka and turns each
// one into a notification request. The upstream social system publishes an
// envelope per event:
//
//	{"user_id": "…", "event": "like", "params": {"actor_name": "alice"}}
//
// A Handler decides what to do with a decoded event; the engine facade
// exposes an adapter so wiring is one line:
//
//	consumer, err := ingest.NewConsumer(cfg, engine.IngestHandler())
//	if err != nil {
//	    return err
//	}
//	g.Go(consumer.Run(ctx))
//
// Malformed or unhandleable events are logged and skipped so a single bad
// message can never wedge the partition.
package ingest
