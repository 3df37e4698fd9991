package worker

import "horcrux/store"

// RequestKind identifies which shard operation a Request carries: Set,
// Get, or Snapshot.
type RequestKind int

const (
	Set RequestKind = iota
	Get
	Snapshot
)

// Request is the message type carried on a JobQueue. Exactly one of
// the fields is meaningful, selected by Kind.
type Request struct {
	Kind RequestKind

	// Set, Get
	Key   string
	Value store.Value // Set only

	// Snapshot
	Wait bool
}

// ResponseKind identifies the shape of a Response.
type ResponseKind int

const (
	Stored ResponseKind = iota
	ValueResult
	SnapshotAccepted
	SnapshotFinished
	SnapshotFailed
)

// Response is the single reply a worker sends per Request it consumes.
type Response struct {
	Kind ResponseKind

	// ValueResult
	Value store.Value
	Found bool
}
