package ingest

import "errors"

var (
	// ErrHandlerNil indicates a nil event handler was provided
	ErrHandlerNil = errors.New("ingest handler cannot be nil")

	// ErrNoBrokers indicates the consumer config names no Kafka brokers
	ErrNoBrokers = errors.New("at least one kafka broker is required")

	// ErrNoTopic indicates the consumer config names no topic
	ErrNoTopic = errors.New("kafka topic is required")

	// ErrMalformedEvent indicates an event that cannot be decoded or is
	// missing required fields
	ErrMalformedEvent = errors.New("malformed ingest event")
)
