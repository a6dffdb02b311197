package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for transfers issued on, or interrupted by, a closed fabric.
	ErrClosed = errors.New("fabric closed")
	// ErrInvalidPeer is returned when the peer rank is outside [0, size) or equals the caller.
	ErrInvalidPeer = errors.New("invalid peer rank")
	// ErrMismatch is returned when a received message carries an unexpected tag or step.
	ErrMismatch = errors.New("unexpected message")
)

// ChannelError reports a point-to-point transfer that could not be issued or
// never resolved.
type ChannelError struct {
	Rank int    // rank that observed the failure
	Peer int    // rank on the other end of the transfer
	Op   string // "send" or "recv"
	Step int    // step tag of the transfer
	Err  error  // underlying cause
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s rank %d <-> %d at step %d: %v", e.Op, e.Rank, e.Peer, e.Step, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
