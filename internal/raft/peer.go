package raft

import (
	"context"
	"time"

	"github.com/cy99/floyd/internal/metrics"
)

const (
	rpcTimeout     = 2 * time.Second
	minSendBackoff = 50 * time.Millisecond
	maxSendBackoff = time.Second
)

// peerState is the leader- and candidate-side view of one remote. All
// fields are guarded by the consensus mutex; the owning replicator
// snapshots what it needs before releasing the mutex for network I/O.
type peerState struct {
	addr   NodeAddr
	client PeerClient

	nextIndex      uint64
	matchIndex     uint64
	haveVote       bool
	haveLeadership bool
	voteDone       bool

	nextHeartbeat time.Time
	retryAt       time.Time
	backoff       time.Duration
}

// beginRequestVote arms a vote request for the election just started.
func (p *peerState) beginRequestVote() {
	p.voteDone = false
	p.haveVote = false
	p.retryAt = time.Time{}
	p.backoff = 0
}

// beginLeadership resets replication state on winning an election.
func (p *peerState) beginLeadership(next uint64) {
	p.nextIndex = next
	p.matchIndex = 0
	p.haveLeadership = false
	p.nextHeartbeat = time.Time{}
	p.retryAt = time.Time{}
	p.backoff = 0
}

// lastAgreeIndex is this peer's contribution to the commit quorum.
func (p *peerState) lastAgreeIndex() uint64 { return p.matchIndex }

func (p *peerState) bumpBackoff() {
	if p.backoff == 0 {
		p.backoff = minSendBackoff
	} else {
		p.backoff *= 2
		if p.backoff > maxSendBackoff {
			p.backoff = maxSendBackoff
		}
	}
	p.retryAt = time.Now().Add(p.backoff)
}

func (p *peerState) resetBackoff() {
	p.backoff = 0
	p.retryAt = time.Time{}
}

// replicatorLoop is the long-lived task for one remote peer. The work
// each pass performs is a function of the current role: send the pending
// vote request as candidate, ship entries or heartbeats as leader, idle
// otherwise. Sends happen with the mutex released.
func (n *Node) replicatorLoop(p *peerState) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for !n.exiting {
		now := time.Now()

		if n.role == Candidate && !p.voteDone {
			if now.Before(p.retryAt) {
				n.waitLocked(p.retryAt)
				continue
			}
			n.sendRequestVote(p)
			continue
		}

		if n.role == Leader {
			pending := n.log.LastIndex() >= p.nextIndex
			if (pending && !now.Before(p.retryAt)) || !now.Before(p.nextHeartbeat) {
				n.sendAppendEntries(p)
				continue
			}
			deadline := p.nextHeartbeat
			if pending && p.retryAt.Before(deadline) {
				deadline = p.retryAt
			}
			n.waitLocked(deadline)
			continue
		}

		n.waitLocked(time.Time{})
	}
}

func (n *Node) sendRequestVote(p *peerState) {
	term := n.currentTerm
	req := &RequestVoteRequest{
		Term:          term,
		CandidateIP:   n.cfg.Local.IP,
		CandidatePort: n.cfg.Local.Port,
		LastLogIndex:  n.log.LastIndex(),
		LastLogTerm:   n.lastLogTermLocked(),
	}

	n.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	reply, err := p.client.RequestVote(ctx, req)
	cancel()
	n.mu.Lock()

	metrics.RaftMessagesTotal.WithLabelValues("sent", MsgRequestVote.String()).Inc()
	if err != nil {
		metrics.RaftMessageErrors.WithLabelValues(p.addr.String()).Inc()
		p.bumpBackoff()
		return
	}
	p.resetBackoff()

	if reply.Term > n.currentTerm {
		n.stepDownLocked(reply.Term)
		return
	}
	if n.role != Candidate || n.currentTerm != term {
		return
	}

	p.voteDone = true
	p.haveVote = reply.Granted
	if reply.Granted && n.quorumVotesLocked() {
		n.becomeLeaderLocked()
	}
	n.cond.Broadcast()
}

func (n *Node) sendAppendEntries(p *peerState) {
	term := n.currentTerm
	prev := p.nextIndex - 1

	var prevTerm uint64
	if prev > 0 {
		e, err := n.log.Get(prev)
		if err != nil {
			n.fatal("read prev entry for append", err)
		}
		prevTerm = e.Term
	}

	last := n.log.LastIndex()
	end := last
	if limit := p.nextIndex + uint64(n.cfg.AppendBatch) - 1; end > limit {
		end = limit
	}

	var entries []WireEntry
	for i := p.nextIndex; i <= end; i++ {
		e, err := n.log.Get(i)
		if err != nil {
			n.fatal("read entry for append", err)
		}
		entries = append(entries, WireEntry{
			Index:   e.Index,
			Term:    e.Term,
			Kind:    uint32(e.Kind),
			Payload: e.Payload,
		})
	}
	sentLast := prev + uint64(len(entries))

	req := &AppendEntriesRequest{
		Term:         term,
		LeaderIP:     n.cfg.Local.IP,
		LeaderPort:   n.cfg.Local.Port,
		PrevLogIndex: prev,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: n.commitIndex,
	}

	n.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	reply, err := p.client.AppendEntries(ctx, req)
	cancel()
	n.mu.Lock()

	metrics.RaftMessagesTotal.WithLabelValues("sent", MsgAppendEntries.String()).Inc()
	if err != nil {
		metrics.RaftMessageErrors.WithLabelValues(p.addr.String()).Inc()
		p.bumpBackoff()
		return
	}
	p.resetBackoff()
	p.nextHeartbeat = time.Now().Add(n.cfg.HeartbeatPeriod)

	if reply.Term > n.currentTerm {
		n.stepDownLocked(reply.Term)
		return
	}
	if n.role != Leader || n.currentTerm != term {
		return
	}

	if reply.Success {
		if sentLast > p.matchIndex {
			p.matchIndex = sentLast
		}
		p.nextIndex = p.matchIndex + 1
		p.haveLeadership = true
		n.advanceCommitIndexLocked()
	} else if p.nextIndex > 1 {
		// The follower's prev check failed; probe backwards.
		p.nextIndex--
	}
	n.cond.Broadcast()
}
