package comm

import "context"

// Request is the handle of one in-flight non-blocking transfer of a single value.
// It is resolved either by Wait or by repeated calls to Test, and is never reused
// across steps.
type Request struct {
	op   string
	rank int
	peer int
	step int

	done  chan struct{}
	value float64
	err   error
}

func newRequest(op string, rank, peer, step int) *Request {
	return &Request{op: op, rank: rank, peer: peer, step: step, done: make(chan struct{})}
}

// complete records the outcome and releases waiters. Called exactly once.
func (r *Request) complete(value float64, err error) {
	r.value = value
	r.err = err
	close(r.done)
}

// Test reports whether the transfer has resolved, without blocking.
// It may be called any number of times; once it reports true it keeps doing so
// with the same error.
func (r *Request) Test() (bool, error) {
	select {
	case <-r.done:
		return true, r.err
	default:
		return false, nil
	}
}

// Wait blocks until the transfer resolves or ctx ends.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return &ChannelError{Rank: r.rank, Peer: r.peer, Op: r.op, Step: r.step, Err: ctx.Err()}
	}
}

// Value returns the received value of a resolved receive request.
// For send requests, and before resolution, it returns 0.
func (r *Request) Value() float64 {
	select {
	case <-r.done:
		return r.value
	default:
		return 0
	}
}

// Op returns "send" or "recv".
func (r *Request) Op() string { return r.op }

// Peer returns the rank on the other end of the transfer.
func (r *Request) Peer() int { return r.peer }
