package raft

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raftlog"

	"go.etcd.io/etcd/pkg/v3/wait"
)

// Role is the consensus role of a node.
type Role uint8

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "FOLLOWER"
	case Candidate:
		return "CANDIDATE"
	case Leader:
		return "LEADER"
	default:
		return fmt.Sprintf("ROLE(%d)", uint8(r))
	}
}

// Node is the consensus core. A single mutex and condition protect every
// role, term, index and per-peer field; the long-lived tasks (election
// timer, disk sync, apply loop, one replicator per peer) borrow the core
// and coordinate exclusively through them. Nothing holds the mutex
// across network I/O or a log sync wait.
type Node struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg Config
	log *raftlog.Log
	sm  StateMachine

	role        Role
	currentTerm uint64
	votedFor    NodeAddr
	leader      NodeAddr
	commitIndex uint64
	lastApplied uint64

	// lastSynced is the highest local index known durable; the leader's
	// own contribution to the replication quorum.
	lastSynced    uint64
	logSyncQueued bool

	voteable         bool
	electionDeadline time.Time

	peers []*peerState
	rng   *rand.Rand

	applyWait wait.Wait

	exiting bool
	started bool
	wg      sync.WaitGroup
}

// New builds a node over a recovered log. clients maps every remote
// member to its transport; membership is fixed for the process lifetime.
func New(cfg Config, log *raftlog.Log, sm StateMachine, clients map[NodeAddr]PeerClient) (*Node, error) {
	cfg = cfg.withDefaults()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	n := &Node{
		cfg:       cfg,
		log:       log,
		sm:        sm,
		rng:       rand.New(rand.NewSource(seed)),
		applyWait: wait.New(),
	}
	n.cond = sync.NewCond(&n.mu)

	for _, addr := range cfg.Peers {
		client, ok := clients[addr]
		if !ok {
			return nil, fmt.Errorf("no client for peer %s", addr)
		}
		n.peers = append(n.peers, &peerState{addr: addr, client: client})
	}

	term, votedIP, votedPort, applied := log.Metadata()
	n.currentTerm = term
	if votedIP != "" || votedPort != 0 {
		n.votedFor = NodeAddr{IP: votedIP, Port: votedPort}
	}
	n.lastApplied = applied
	n.commitIndex = applied
	n.lastSynced = log.LastIndex()
	n.voteable = cfg.VoteTargetTerm == 0 && cfg.VoteTargetIndex == 0

	return n, nil
}

// Start launches the long-lived tasks and arms the election timer.
func (n *Node) Start() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.role = Follower
	n.setElectionTimerLocked()

	next := n.log.LastIndex() + 1
	for _, p := range n.peers {
		p.nextIndex = next
	}
	n.publishMetricsLocked()
	n.mu.Unlock()

	n.spawn(n.electionLoop)
	n.spawn(n.diskSyncLoop)
	n.spawn(n.applyLoop)
	for _, p := range n.peers {
		p := p
		n.spawn(func() { n.replicatorLoop(p) })
	}

	slog.Info("consensus started",
		"local", n.cfg.Local,
		"peers", len(n.peers),
		"term", n.currentTerm,
		"last_index", n.log.LastIndex(),
	)
}

// Stop signals every task, waits for them to unwind, and drains any
// queued log sync so no append is left buffered.
func (n *Node) Stop() {
	n.mu.Lock()
	if n.exiting {
		n.mu.Unlock()
		return
	}
	n.exiting = true
	n.cond.Broadcast()
	n.mu.Unlock()

	n.wg.Wait()

	n.mu.Lock()
	queued := n.logSyncQueued
	n.logSyncQueued = false
	n.mu.Unlock()
	if queued {
		if err := n.log.Sync().Wait(); err != nil {
			slog.Error("final log sync failed", "error", err)
		}
	}

	slog.Info("consensus stopped", "local", n.cfg.Local)
}

func (n *Node) spawn(f func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		f()
	}()
}

// Leader returns the last-known leader, if any.
func (n *Node) Leader() (NodeAddr, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.leader, !n.leader.IsZero()
}

func (n *Node) IsLeader() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role == Leader
}

func (n *Node) Term() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentTerm
}

func (n *Node) CommitIndex() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.commitIndex
}

// waitLocked blocks on the condition until a broadcast, or until
// deadline when one is set (zero means no deadline).
func (n *Node) waitLocked(deadline time.Time) {
	if deadline.IsZero() {
		n.cond.Wait()
		return
	}
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	t := time.AfterFunc(d, n.cond.Broadcast)
	n.cond.Wait()
	t.Stop()
}

// setElectionTimerLocked rearms the randomized deadline: the follower
// hears from a valid leader, grants a vote, or starts an election.
func (n *Node) setElectionTimerLocked() {
	base := n.cfg.ElectTimeout
	jitter := time.Duration(n.rng.Int63n(int64(3 * base)))
	n.electionDeadline = time.Now().Add(base + jitter)
	n.cond.Broadcast()
}

// stepDownLocked adopts newTerm when it is higher (clearing vote and
// leader and persisting) and drops to follower, rearming the election
// timer if it was disabled.
func (n *Node) stepDownLocked(newTerm uint64) {
	if newTerm > n.currentTerm {
		slog.Info("stepping down",
			"from_term", n.currentTerm,
			"to_term", newTerm,
			"role", n.role,
		)
		n.currentTerm = newTerm
		n.leader = NodeAddr{}
		n.votedFor = NodeAddr{}
		n.updateMetadataLocked()
	}
	n.role = Follower

	if n.electionDeadline.IsZero() {
		n.setElectionTimerLocked()
	}
	n.publishMetricsLocked()
	n.cond.Broadcast()
}

// updateMetadataLocked persists (current_term, voted_for, last_applied).
func (n *Node) updateMetadataLocked() {
	if err := n.log.UpdateMetadata(n.currentTerm, n.votedFor.IP, n.votedFor.Port, n.lastApplied); err != nil {
		n.fatal("persist metadata", err)
	}
}

// appendLocked writes entries and handles durability per role: the
// leader queues a sync for the disk task; anyone else syncs before
// returning, releasing the mutex for the wait.
func (n *Node) appendLocked(entries []raftlog.Entry) (first, last uint64) {
	first, last, err := n.log.Append(entries)
	if err != nil {
		n.fatal("append entries", err)
	}

	if n.role == Leader {
		n.logSyncQueued = true
	} else {
		h := n.log.Sync()
		n.mu.Unlock()
		werr := h.Wait()
		n.mu.Lock()
		if werr != nil {
			n.fatal("sync entries", werr)
		}
		if h.LastIndex > n.lastSynced {
			n.lastSynced = h.LastIndex
		}
	}

	n.cond.Broadcast()
	return first, last
}

// advanceCommitIndexLocked recomputes the quorum frontier over the
// local synced index and every peer's match index: the highest index
// held by a strict majority of the cluster. The commit index moves only
// when that entry carries the current term; counting replicas alone
// must never commit an entry from a prior term.
func (n *Node) advanceCommitIndexLocked() {
	if n.role != Leader {
		return
	}

	values := make([]uint64, 0, len(n.peers)+1)
	values = append(values, n.lastSynced)
	for _, p := range n.peers {
		values = append(values, p.lastAgreeIndex())
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	// With N values ascending, the largest index that a strict
	// majority (N/2+1 replicas) meets or exceeds sits N/2+1 from the
	// top. Taking the middle element instead would overshoot by one
	// for even cluster sizes.
	agreed := values[len(values)-(len(values)/2+1)]

	if agreed <= n.commitIndex {
		return
	}
	e, err := n.log.Get(agreed)
	if err != nil {
		n.fatal(fmt.Sprintf("read entry %d for commit", agreed), err)
	}
	if e.Term != n.currentTerm {
		return
	}

	n.commitIndex = agreed
	metrics.RaftCommitIndex.Set(float64(agreed))
	n.cond.Broadcast()
}

// quorumVotesLocked counts the local self-vote plus every granted peer.
func (n *Node) quorumVotesLocked() bool {
	count := 1
	for _, p := range n.peers {
		if p.haveVote {
			count++
		}
	}
	return count >= (len(n.peers)+1)/2+1
}

func (n *Node) lastLogTermLocked() uint64 { return n.log.LastTerm() }

func (n *Node) publishMetricsLocked() {
	if n.role == Leader {
		metrics.RaftIsLeader.Set(1)
	} else {
		metrics.RaftIsLeader.Set(0)
	}
	metrics.RaftTerm.Set(float64(n.currentTerm))
	metrics.RaftCommitIndex.Set(float64(n.commitIndex))
	metrics.RaftAppliedIndex.Set(float64(n.lastApplied))
	metrics.RaftPeersTotal.Set(float64(len(n.peers)))
}

// fatal reports an unrecoverable durability failure. A log that cannot
// persist cannot uphold the consensus contract, so the process stops.
func (n *Node) fatal(op string, err error) {
	slog.Error("fatal log failure", "op", op, "error", err)
	os.Exit(1)
}
