package raft

import (
	"fmt"
	"log/slog"

	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raftlog"
)

// HandleRequestVote is the inbound vote handler, invoked by the RPC
// worker. A vote is granted only when the candidate is on our term, we
// have not voted for anyone else this term, the candidate's log is at
// least as up-to-date as ours, and this node has reached its vote
// eligibility thresholds. The grant is persisted before the reply
// leaves.
func (n *Node) HandleRequestVote(req *RequestVoteRequest) *RequestVoteReply {
	n.mu.Lock()
	defer n.mu.Unlock()

	metrics.RaftMessagesTotal.WithLabelValues("received", MsgRequestVote.String()).Inc()

	if req.Term > n.currentTerm {
		n.stepDownLocked(req.Term)
	}

	reply := &RequestVoteReply{Term: n.currentTerm}

	lastIndex := n.log.LastIndex()
	lastTerm := n.lastLogTermLocked()
	upToDate := req.LastLogTerm > lastTerm ||
		(req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIndex)

	// A node that joined behind the cluster may not vote until it has
	// caught up to both thresholds; once reached, eligibility latches.
	if !n.voteable &&
		n.currentTerm >= n.cfg.VoteTargetTerm &&
		n.commitIndex >= n.cfg.VoteTargetIndex {
		n.voteable = true
	}

	candidate := NodeAddr{IP: req.CandidateIP, Port: req.CandidatePort}

	if req.Term == n.currentTerm && upToDate && n.voteable &&
		(n.votedFor.IsZero() || n.votedFor == candidate) {
		n.votedFor = candidate
		n.updateMetadataLocked()
		n.setElectionTimerLocked()
		reply.Granted = true
		slog.Info("granted vote", "term", n.currentTerm, "candidate", candidate)
	}

	reply.Term = n.currentTerm
	return reply
}

// HandleAppendEntries is the inbound replication handler. It accepts
// the sender as leader for its term, performs the log-match check, then
// reconciles the local suffix against the incoming entries: matching
// entries are skipped, and the first term conflict truncates everything
// from that index before the remainder is appended.
func (n *Node) HandleAppendEntries(req *AppendEntriesRequest) *AppendEntriesReply {
	n.mu.Lock()
	defer n.mu.Unlock()

	metrics.RaftMessagesTotal.WithLabelValues("received", MsgAppendEntries.String()).Inc()

	reply := &AppendEntriesReply{Term: n.currentTerm}
	if req.Term < n.currentTerm {
		return reply
	}

	n.stepDownLocked(req.Term)
	n.setElectionTimerLocked()
	reply.Term = n.currentTerm

	sender := NodeAddr{IP: req.LeaderIP, Port: req.LeaderPort}
	if n.leader.IsZero() {
		n.leader = sender
		slog.Info("following leader", "leader", sender, "term", n.currentTerm)
	} else if n.leader != sender {
		panic(fmt.Sprintf("raft: two leaders in term %d: %s and %s", n.currentTerm, n.leader, sender))
	}

	if req.PrevLogIndex > 0 {
		if req.PrevLogIndex > n.log.LastIndex() {
			return reply
		}
		prev, err := n.log.Get(req.PrevLogIndex)
		if err != nil {
			n.fatal("read prev entry", err)
		}
		if prev.Term != req.PrevLogTerm {
			return reply
		}
	}

	index := req.PrevLogIndex
	for i, we := range req.Entries {
		index++
		if n.log.LastIndex() >= index {
			local, err := n.log.Get(index)
			if err != nil {
				n.fatal("read entry during reconcile", err)
			}
			if local.Term == we.Term {
				continue
			}
			if err := n.log.TruncateSuffix(index - 1); err != nil {
				n.fatal("truncate conflicting suffix", err)
			}
			if n.lastSynced > index-1 {
				n.lastSynced = index - 1
			}
		}

		fresh := make([]raftlog.Entry, 0, len(req.Entries)-i)
		for _, rest := range req.Entries[i:] {
			fresh = append(fresh, raftlog.Entry{
				Index:   rest.Index,
				Term:    rest.Term,
				Kind:    raftlog.Kind(rest.Kind),
				Payload: rest.Payload,
			})
		}
		n.appendLocked(fresh)
		break
	}

	// appendLocked releases the mutex for its sync wait; if a higher
	// term slipped in, this acceptance is stale.
	if n.currentTerm != req.Term {
		return &AppendEntriesReply{Term: n.currentTerm}
	}
	reply.Success = true

	lastNew := req.PrevLogIndex + uint64(len(req.Entries))
	if req.LeaderCommit > n.commitIndex {
		next := req.LeaderCommit
		if lastNew < next {
			next = lastNew
		}
		if next > n.commitIndex {
			n.commitIndex = next
			metrics.RaftCommitIndex.Set(float64(next))
			n.cond.Broadcast()
		}
	}

	return reply
}
