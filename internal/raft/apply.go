package raft

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raftlog"
)

// applyResult is the outcome delivered to a waiting proposer.
type applyResult struct {
	value []byte
	err   error
}

// applyLoop hands committed entries to the state machine in strict
// index order, exactly once per process lifetime. The state machine
// runs with the mutex released; the applied index is persisted and the
// waiter for that index notified afterwards. No-ops are skipped
// silently.
func (n *Node) applyLoop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for !n.exiting {
		if n.commitIndex <= n.lastApplied {
			n.waitLocked(time.Time{})
			continue
		}

		index := n.lastApplied + 1
		e, err := n.log.Get(index)
		if err != nil {
			n.fatal(fmt.Sprintf("read committed entry %d", index), err)
		}

		var res applyResult
		if e.Kind == raftlog.KindData {
			n.mu.Unlock()
			value, aerr := n.sm.Apply(index, e.Payload)
			n.mu.Lock()
			if aerr != nil {
				slog.Warn("state machine rejected entry", "index", index, "error", aerr)
				res = applyResult{err: fmt.Errorf("%w: %v", ErrStateMachineReject, aerr)}
			} else {
				res = applyResult{value: value}
			}
		}

		n.lastApplied = index
		n.updateMetadataLocked()
		metrics.RaftAppliedIndex.Set(float64(index))

		n.applyWait.Trigger(index, res)
		n.cond.Broadcast()
	}
}
