package sim

import (
	"errors"
	"fmt"

	"github.com/halo-sim/halo-sim/sim/comm"
)

// ErrDone is returned when Run is called on a worker that already finished its steps.
var ErrDone = errors.New("worker already done")

// ConfigurationError reports an invalid run configuration: a partition that does
// not divide evenly, or a non-positive size, worker count or step count.
// It is detected before any stepping begins and is never retried.
type ConfigurationError struct {
	Field  string // config field name (e.g., "n", "workers", "steps")
	Value  any    // offending value
	Reason string // human-readable constraint that was violated
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// IsConfigurationError reports whether any error in err's chain is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ChannelError reports a point-to-point transfer that could not be issued or
// never resolved. It is defined next to the fabric that produces it.
type ChannelError = comm.ChannelError

// IsChannelError reports whether any error in err's chain is a ChannelError.
func IsChannelError(err error) bool {
	var ce *ChannelError
	return errors.As(err, &ce)
}
