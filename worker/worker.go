// Package worker implements the single-threaded actor that owns one
// shard: it is the sole goroutine that ever touches its store.Shard,
// which is what lets Shard itself stay lock-free.
package worker

import (
	"go.uber.org/zap"

	"horcrux/snapshot"
	"horcrux/store"
)

/*
Worker owns exactly one shard, one JobQueue, and the Snapshotter that
dumps its shard to disk. Its event loop is strictly serial: requests
enqueued on the same shard are processed in arrival order and never
concurrently, which is the ordering guarantee clients observe for a
given key.
*/
type Worker struct {
	id     int
	shard  *store.Shard
	queue  *JobQueue
	snap   *snapshot.Snapshotter
	logger *zap.Logger
}

// New creates a worker for shard, reading and writing through queue and
// dumping via snap. Run must be called (typically in its own goroutine)
// to start processing.
func New(shard *store.Shard, queue *JobQueue, snap *snapshot.Snapshotter, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:     shard.ID(),
		shard:  shard,
		queue:  queue,
		snap:   snap,
		logger: logger,
	}
}

// Run receives (request, reply) pairs from the queue forever, never
// dropping a request and never closing reply without sending. It
// returns only when the queue is closed (JobQueue.Close; the server
// process never closes its queues, so it runs forever).
func (w *Worker) Run() {
	for j := range w.queue.jobs() {
		j.reply <- w.handle(j.req)
	}
}

func (w *Worker) handle(req Request) Response {
	switch req.Kind {
	case Set:
		w.shard.Insert(req.Key, req.Value)
		return Response{Kind: Stored}

	case Get:
		val, ok := w.shard.Get(req.Key)
		return Response{Kind: ValueResult, Value: val, Found: ok}

	case Snapshot:
		return w.handleSnapshot(req.Wait)

	default:
		// Unreachable for any request built by this module's router;
		// treated as a failed snapshot rather than panicking the
		// worker goroutine over a single client's bad behavior.
		return Response{Kind: SnapshotFailed}
	}
}

func (w *Worker) handleSnapshot(wait bool) Response {
	outcome := w.snap.Dump(w.shard, wait)
	switch outcome {
	case snapshot.Accepted:
		return Response{Kind: SnapshotAccepted}
	case snapshot.Finished:
		return Response{Kind: SnapshotFinished}
	default:
		return Response{Kind: SnapshotFailed}
	}
}
