package raft

import (
	"context"
	"time"
)

// PeerClient sends consensus messages to one remote peer. Implementations
// own their connection and retry transport failures internally with
// bounded backoff; a send that still fails is reported as an error and
// retried by the replicator.
type PeerClient interface {
	RequestVote(ctx context.Context, req *RequestVoteRequest) (*RequestVoteReply, error)
	AppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesReply, error)
}

// StateMachine consumes committed DATA entries in strict index order,
// exactly once per process lifetime. The returned bytes are handed to
// the waiting proposer, if any; an error marks the entry rejected.
type StateMachine interface {
	Apply(index uint64, payload []byte) ([]byte, error)
}

// Config carries the fixed membership and timing knobs of one node.
// Membership is explicit: Peers lists every remote member of the voting
// set, and the cluster size is len(Peers)+1.
type Config struct {
	Local NodeAddr
	Peers []NodeAddr

	// ElectTimeout is the election timer base; the armed deadline is
	// now + base + uniform(0, 3*base).
	ElectTimeout time.Duration

	// HeartbeatPeriod bounds the silence between append-entries sends
	// to each peer while leader.
	HeartbeatPeriod time.Duration

	// AppendBatch caps the entries shipped in one append-entries.
	AppendBatch int

	// ProposeTimeout bounds how long Propose waits for commit and
	// apply before reporting ErrTimeout.
	ProposeTimeout time.Duration

	// VoteTargetTerm and VoteTargetIndex gate voting for a node that
	// joined behind the cluster: every inbound vote is refused until
	// current term and commit index have reached both thresholds, after
	// which eligibility latches on. Zero values make a node eligible
	// immediately.
	VoteTargetTerm  uint64
	VoteTargetIndex uint64

	// Seed seeds the per-node election jitter source; zero draws a seed
	// from the clock once at construction.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.ElectTimeout <= 0 {
		c.ElectTimeout = time.Second
	}
	if c.HeartbeatPeriod <= 0 {
		c.HeartbeatPeriod = 200 * time.Millisecond
	}
	if c.AppendBatch <= 0 {
		c.AppendBatch = 64
	}
	if c.ProposeTimeout <= 0 {
		c.ProposeTimeout = 10 * time.Second
	}
	return c
}
