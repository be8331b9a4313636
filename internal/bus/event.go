package bus

import "time"

// Event is one domain event. Kind is a dotted name whose first segment
// is the namespace subscribers filter on:
//
//	wa.*       raw adapter output (live messages, history batches)
//	sync.*     store ingestion results (connected, history counts, contacts)
//	message.*  per-message lifecycle (upserted, send_ack, send_failed)
//	session.*  connection status and authentication flow
//
// Payload types are documented at the publisher.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
