// Package router is the stateless dispatcher between the front-end and
// the per-shard workers: it hashes keys to select a job queue and fans
// snapshot requests out to every shard.
package router

import (
	"github.com/cespare/xxhash/v2"

	"horcrux/worker"
)

/*
Router holds the list of job queues, one per shard, indexed by shard
ID. The hash need not be stable across process restarts: N is fixed per
process and a restore simply reloads each shard's own snapshot file
regardless of how the current process's hash would route those keys,
so Router never needs to agree with a prior process's hash, only with
itself for the process's lifetime.
*/
type Router struct {
	queues []*worker.JobQueue
}

// New builds a router over queues, indexed by shard ID: queues[i] must
// be the JobQueue for the worker owning shard i.
func New(queues []*worker.JobQueue) *Router {
	return &Router{queues: queues}
}

// ShardCount reports N, the number of shards this router was built
// with.
func (r *Router) ShardCount() int {
	return len(r.queues)
}

// ShardFor returns the deterministic shard index for key. The hash is
// pure, so the shard serving a given key is stable for the process
// lifetime.
func (r *Router) ShardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(r.queues)))
}

// Route returns the job queue that owns key.
func (r *Router) Route(key string) *worker.JobQueue {
	return r.queues[r.ShardFor(key)]
}

// Send dispatches req to the single shard owning key and returns the
// channel its Response will arrive on.
func (r *Router) Send(key string, req worker.Request) <-chan worker.Response {
	return r.Route(key).Send(req)
}

/*
BroadcastSnapshot sends a Snapshot{wait} request to every shard,
collects every reply channel first, then awaits each in turn. The
aggregate reports success only if every shard's reply was Finished or
Accepted, whichever wait was — any single SnapshotFailed fails the
whole broadcast.
*/
func (r *Router) BroadcastSnapshot(wait bool) bool {
	replies := make([]<-chan worker.Response, len(r.queues))
	for i, q := range r.queues {
		replies[i] = q.Send(worker.Request{Kind: worker.Snapshot, Wait: wait})
	}

	ok := true
	for _, reply := range replies {
		resp := <-reply
		switch resp.Kind {
		case worker.SnapshotAccepted, worker.SnapshotFinished:
			// success for this shard
		default:
			ok = false
		}
	}
	return ok
}
