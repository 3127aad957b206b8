package neat

import (
	"errors"
	"fmt"
)

// ErrInvalidTopology reports a malformed structural request on a genome,
// such as a connection referencing an unknown node. It indicates a caller
// bug and is never retried.
var ErrInvalidTopology = errors.New("invalid topology")

// ErrEnvironment reports a failure of the external environment collaborator
// during fitness evaluation. Callers recover by assigning the configured
// floor fitness to the affected genome.
var ErrEnvironment = errors.New("environment failure")

// ErrExtinct reports that every species was removed and reproduction cannot
// continue. Fatal to the run unless reset_on_extinction is set.
var ErrExtinct = errors.New("population extinct")

// topologyError wraps ErrInvalidTopology with detail about the offending
// request.
func topologyError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTopology, fmt.Sprintf(format, args...))
}
