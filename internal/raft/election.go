package raft

import (
	"log/slog"
	"time"

	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raftlog"
)

// electionLoop watches the randomized deadline and promotes the node to
// candidate when no leader contact arrives in time. While leader the
// deadline is disabled and the loop idles on the condition.
func (n *Node) electionLoop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for !n.exiting {
		if !n.electionDeadline.IsZero() && !time.Now().Before(n.electionDeadline) {
			n.startElectionLocked()
		}
		n.waitLocked(n.electionDeadline)
	}
}

// startElectionLocked begins a new election: bump the term, vote for
// ourselves, rearm the timer, and hand every replicator a vote request.
// A timed-out candidate lands here again and restarts at term+1.
func (n *Node) startElectionLocked() {
	n.currentTerm++
	n.role = Candidate
	n.leader = NodeAddr{}
	n.votedFor = n.cfg.Local
	n.setElectionTimerLocked()

	for _, p := range n.peers {
		p.beginRequestVote()
	}
	n.updateMetadataLocked()

	metrics.RaftElectionsTotal.Inc()
	n.publishMetricsLocked()
	slog.Info("starting election", "term", n.currentTerm, "local", n.cfg.Local)
	n.cond.Broadcast()

	// A single-node cluster has its quorum already.
	if n.quorumVotesLocked() {
		n.becomeLeaderLocked()
	}
}

// becomeLeaderLocked installs leadership: disable the election timer,
// reset per-peer replication state, and append a no-op so an entry in
// the current term exists for the commit frontier to advance over.
func (n *Node) becomeLeaderLocked() {
	if n.role != Candidate {
		panic("raft: becoming leader from role " + n.role.String())
	}
	n.role = Leader
	n.leader = n.cfg.Local
	n.electionDeadline = time.Time{}

	next := n.log.LastIndex() + 1
	for _, p := range n.peers {
		p.beginLeadership(next)
	}

	n.appendLocked([]raftlog.Entry{{
		Term: n.currentTerm,
		Kind: raftlog.KindNoop,
	}})

	n.publishMetricsLocked()
	slog.Info("became leader", "term", n.currentTerm, "local", n.cfg.Local)
	n.cond.Broadcast()
}
