package raft

import (
	"time"

	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raftlog"
)

// Propose replicates an opaque command. On the leader it appends a DATA
// entry, waits for the commit frontier to reach the assigned index, then
// waits for the apply loop to record that index's outcome, and returns
// the index with the state machine's result. Anywhere else it fails
// fast with the last-known leader attached.
func (n *Node) Propose(payload []byte) (uint64, []byte, error) {
	start := time.Now()
	metrics.RaftProposalsTotal.Inc()

	n.mu.Lock()

	if n.exiting {
		n.mu.Unlock()
		metrics.RaftProposalsFailed.Inc()
		return 0, nil, ErrStopped
	}
	if n.role != Leader {
		err := &NotLeaderError{Leader: n.leader, HasLeader: !n.leader.IsZero()}
		n.mu.Unlock()
		metrics.RaftProposalsFailed.Inc()
		return 0, nil, err
	}

	term := n.currentTerm
	_, index := n.appendLocked([]raftlog.Entry{{
		Term:    term,
		Kind:    raftlog.KindData,
		Payload: payload,
	}})
	ch := n.applyWait.Register(index)
	deadline := start.Add(n.cfg.ProposeTimeout)

	for n.commitIndex < index && n.role == Leader && n.currentTerm == term &&
		!n.exiting && time.Now().Before(deadline) {
		n.waitLocked(deadline)
	}

	switch {
	case n.exiting:
		n.applyWait.Trigger(index, nil)
		n.mu.Unlock()
		metrics.RaftProposalsFailed.Inc()
		return 0, nil, ErrStopped

	case n.role != Leader || n.currentTerm != term:
		err := &NotLeaderError{Leader: n.leader, HasLeader: !n.leader.IsZero()}
		n.applyWait.Trigger(index, nil)
		n.mu.Unlock()
		metrics.RaftProposalsFailed.Inc()
		return 0, nil, err

	case n.commitIndex < index:
		n.applyWait.Trigger(index, nil)
		n.mu.Unlock()
		metrics.RaftProposalsFailed.Inc()
		return 0, nil, ErrTimeout
	}

	n.mu.Unlock()

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}

	select {
	case v := <-ch:
		res, ok := v.(applyResult)
		if !ok {
			metrics.RaftProposalsFailed.Inc()
			return 0, nil, ErrStopped
		}
		if res.err != nil {
			metrics.RaftProposalsFailed.Inc()
			return index, nil, res.err
		}
		metrics.ProposeDuration.Observe(time.Since(start).Seconds())
		return index, res.value, nil

	case <-time.After(remaining):
		n.mu.Lock()
		if n.applyWait.IsRegistered(index) {
			n.applyWait.Trigger(index, nil)
		}
		n.mu.Unlock()
		metrics.RaftProposalsFailed.Inc()
		return 0, nil, ErrTimeout
	}
}
