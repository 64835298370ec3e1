package raft

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLeader reports a write sent to a node that is not the
	// leader. Use AsNotLeader to recover the last-known leader for
	// forwarding.
	ErrNotLeader = errors.New("raft: not leader")

	// ErrTimeout reports that a proposal was not committed and applied
	// within the configured client-visible bound.
	ErrTimeout = errors.New("raft: proposal timed out")

	// ErrStateMachineReject reports that the state machine refused a
	// committed entry. The entry stays committed; it is not retried.
	ErrStateMachineReject = errors.New("raft: state machine rejected entry")

	// ErrStopped reports an operation on a node that is shutting down.
	ErrStopped = errors.New("raft: node stopped")
)

// NotLeaderError carries the last-known leader so callers can forward.
// HasLeader is false while no leader has been observed this term.
type NotLeaderError struct {
	Leader    NodeAddr
	HasLeader bool
}

func (e *NotLeaderError) Error() string {
	if e.HasLeader {
		return fmt.Sprintf("raft: not leader (leader is %s)", e.Leader)
	}
	return "raft: not leader (no known leader)"
}

func (e *NotLeaderError) Is(target error) bool { return target == ErrNotLeader }

// AsNotLeader unwraps err into a NotLeaderError, if it is one.
func AsNotLeader(err error) (*NotLeaderError, bool) {
	var nl *NotLeaderError
	if errors.As(err, &nl) {
		return nl, true
	}
	return nil, false
}
