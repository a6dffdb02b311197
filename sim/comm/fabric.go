// Package comm provides the point-to-point channel capability between workers:
// a blocking Send/Recv pair, non-blocking Isend/Irecv returning Request handles,
// and an in-process Fabric that implements them over Go channels.
//
// Each directed link (source, dest) is one FIFO Go channel, so transfers between
// two ranks are lossless and order-preserving. With the default capacity of 0 a
// link is a rendezvous: Send blocks until the matching Recv takes the value.
package comm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Tag identifies the direction of a halo transfer.
type Tag int

const (
	// TagLeftward marks a value sent to the left neighbour (it becomes that neighbour's right ghost).
	TagLeftward Tag = 0
	// TagRightward marks a value sent to the right neighbour (it becomes that neighbour's left ghost).
	TagRightward Tag = 1
)

func (t Tag) String() string {
	switch t {
	case TagLeftward:
		return "leftward"
	case TagRightward:
		return "rightward"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// Message is one scalar transfer between two ranks for one step.
type Message struct {
	Source int
	Dest   int
	Tag    Tag
	Step   int
	Value  float64
}

// Comm is the channel capability a worker needs: its own identity plus
// point-to-point transfers keyed by (peer, tag, step).
type Comm interface {
	Rank() int
	Size() int
	Send(ctx context.Context, dest int, tag Tag, step int, value float64) error
	Recv(ctx context.Context, source int, tag Tag, step int) (float64, error)
	Isend(ctx context.Context, dest int, tag Tag, step int, value float64) (*Request, error)
	Irecv(ctx context.Context, source int, tag Tag, step int) (*Request, error)
}

type link struct {
	src, dst int
}

// Fabric connects a fixed set of ranks. Links are created on first use.
type Fabric struct {
	size     int
	capacity int

	mu    sync.Mutex
	links map[link]chan Message

	closed    chan struct{}
	closeOnce sync.Once

	delivered atomic.Int64
}

// Option configures a Fabric.
type Option func(*Fabric)

// WithBuffer sets the per-link channel capacity. 0 (the default) makes every
// link a rendezvous.
func WithBuffer(n int) Option {
	return func(f *Fabric) {
		if n > 0 {
			f.capacity = n
		}
	}
}

// NewFabric creates a fabric for size ranks.
func NewFabric(size int, opts ...Option) (*Fabric, error) {
	if size <= 0 {
		return nil, fmt.Errorf("fabric size must be positive, got %d", size)
	}
	f := &Fabric{
		size:   size,
		links:  make(map[link]chan Message),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Size returns the number of ranks.
func (f *Fabric) Size() int { return f.size }

// Capacity returns the per-link buffer size.
func (f *Fabric) Capacity() int { return f.capacity }

// Delivered returns the number of messages received so far across all links.
func (f *Fabric) Delivered() int64 { return f.delivered.Load() }

// Endpoint returns the Comm of the given rank.
func (f *Fabric) Endpoint(rank int) (*Endpoint, error) {
	if rank < 0 || rank >= f.size {
		return nil, fmt.Errorf("rank %d outside [0, %d)", rank, f.size)
	}
	return &Endpoint{fabric: f, rank: rank}, nil
}

// Close interrupts every pending and future transfer with ErrClosed.
// It is safe to call more than once.
func (f *Fabric) Close() {
	f.closeOnce.Do(func() {
		close(f.closed)
		logrus.Debugf("fabric closed after %d messages", f.delivered.Load())
	})
}

func (f *Fabric) link(src, dst int) chan Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := link{src: src, dst: dst}
	ch, ok := f.links[key]
	if !ok {
		ch = make(chan Message, f.capacity)
		f.links[key] = ch
	}
	return ch
}

// Endpoint is one rank's view of a Fabric. It implements Comm.
type Endpoint struct {
	fabric *Fabric
	rank   int
}

var _ Comm = (*Endpoint)(nil)

func (e *Endpoint) Rank() int { return e.rank }

func (e *Endpoint) Size() int { return e.fabric.size }

func (e *Endpoint) fail(op string, peer, step int, err error) *ChannelError {
	return &ChannelError{Rank: e.rank, Peer: peer, Op: op, Step: step, Err: err}
}

func (e *Endpoint) checkPeer(peer int) error {
	if peer < 0 || peer >= e.fabric.size || peer == e.rank {
		return fmt.Errorf("%w: %d", ErrInvalidPeer, peer)
	}
	select {
	case <-e.fabric.closed:
		return ErrClosed
	default:
		return nil
	}
}

// Send blocks until the value is handed to the link (taken by the receiver on a
// rendezvous link), ctx ends, or the fabric closes.
func (e *Endpoint) Send(ctx context.Context, dest int, tag Tag, step int, value float64) error {
	if err := e.checkPeer(dest); err != nil {
		return e.fail("send", dest, step, err)
	}
	return e.send(ctx, dest, Message{Source: e.rank, Dest: dest, Tag: tag, Step: step, Value: value})
}

func (e *Endpoint) send(ctx context.Context, dest int, msg Message) error {
	ch := e.fabric.link(e.rank, dest)
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return e.fail("send", dest, msg.Step, ctx.Err())
	case <-e.fabric.closed:
		return e.fail("send", dest, msg.Step, ErrClosed)
	}
}

// Recv blocks until the next message from source arrives. The message must carry
// the expected tag and step; anything else is a ChannelError.
func (e *Endpoint) Recv(ctx context.Context, source int, tag Tag, step int) (float64, error) {
	if err := e.checkPeer(source); err != nil {
		return 0, e.fail("recv", source, step, err)
	}
	return e.recv(ctx, source, tag, step)
}

func (e *Endpoint) recv(ctx context.Context, source int, tag Tag, step int) (float64, error) {
	ch := e.fabric.link(source, e.rank)
	select {
	case msg := <-ch:
		if msg.Tag != tag || msg.Step != step {
			return 0, e.fail("recv", source, step, fmt.Errorf("%w: got %s step %d, want %s step %d",
				ErrMismatch, msg.Tag, msg.Step, tag, step))
		}
		e.fabric.delivered.Add(1)
		return msg.Value, nil
	case <-ctx.Done():
		return 0, e.fail("recv", source, step, ctx.Err())
	case <-e.fabric.closed:
		return 0, e.fail("recv", source, step, ErrClosed)
	}
}

// Isend issues a send without waiting for it. The value is captured at issue time.
func (e *Endpoint) Isend(ctx context.Context, dest int, tag Tag, step int, value float64) (*Request, error) {
	if err := e.checkPeer(dest); err != nil {
		return nil, e.fail("send", dest, step, err)
	}
	req := newRequest("send", e.rank, dest, step)
	msg := Message{Source: e.rank, Dest: dest, Tag: tag, Step: step, Value: value}
	go func() {
		req.complete(0, e.send(ctx, dest, msg))
	}()
	return req, nil
}

// Irecv issues a receive without waiting for it. The value is available from
// Request.Value once the request resolves.
func (e *Endpoint) Irecv(ctx context.Context, source int, tag Tag, step int) (*Request, error) {
	if err := e.checkPeer(source); err != nil {
		return nil, e.fail("recv", source, step, err)
	}
	req := newRequest("recv", e.rank, source, step)
	go func() {
		v, err := e.recv(ctx, source, tag, step)
		req.complete(v, err)
	}()
	return req, nil
}
