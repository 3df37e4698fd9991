package worker

// job pairs a Request with the single-use channel its Response is sent
// back on. Each ReplyChannel has capacity one; the worker sends exactly
// one Response per request it consumes.
type job struct {
	req   Request
	reply chan Response
}

/*
JobQueue is an unbounded, multi-producer single-consumer channel of
(Request, ReplyChannel) pairs, in FIFO order. Go channels are bounded
by construction, so JobQueue is backed by an internal pump goroutine
that buffers in a growable slice between an unbounded Send side and a
receive side workers can range over — the classic "unbounded channel"
idiom. Bounding this (an accepted future hardening) would mean giving
Send a capacity and translating a full queue into a protocol-level
ERROR; this module takes the simpler unbounded form.
*/
type JobQueue struct {
	in  chan job
	out chan job
}

// NewJobQueue creates an empty, ready-to-use queue and starts its pump
// goroutine.
func NewJobQueue() *JobQueue {
	q := &JobQueue{
		in:  make(chan job),
		out: make(chan job),
	}
	go q.pump()
	return q
}

// pump is the only goroutine that ever touches buf; it hands requests
// from in to out in arrival order with no bound on how far they can
// pile up.
func (q *JobQueue) pump() {
	var buf []job
	for {
		if len(buf) == 0 {
			j, ok := <-q.in
			if !ok {
				close(q.out)
				return
			}
			buf = append(buf, j)
			continue
		}

		select {
		case j, ok := <-q.in:
			if !ok {
				for _, pending := range buf {
					q.out <- pending
				}
				close(q.out)
				return
			}
			buf = append(buf, j)
		case q.out <- buf[0]:
			buf = buf[1:]
		}
	}
}

// Send enqueues req and returns the channel its single Response will
// arrive on.
func (q *JobQueue) Send(req Request) <-chan Response {
	reply := make(chan Response, 1)
	q.in <- job{req: req, reply: reply}
	return reply
}

// Close signals the pump to drain and stop once all buffered jobs have
// been delivered to the worker. Nothing in this module calls it; the
// long-running server process never closes its queues.
func (q *JobQueue) Close() {
	close(q.in)
}

// jobs exposes the receive side for the owning Worker's event loop.
func (q *JobQueue) jobs() <-chan job {
	return q.out
}
