package raft_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cy99/floyd/internal/raft"
	"github.com/cy99/floyd/internal/raftlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCluster wires nodes together through in-process clients so the
// consensus scenarios run without sockets. Links can be cut per
// direction to stage partitions.
type testCluster struct {
	t *testing.T

	mu    sync.Mutex
	nodes map[string]*raft.Node
	logs  map[string]*raftlog.Log
	sms   map[string]*recordingSM
	addrs []raft.NodeAddr
	down  map[string]bool
	cut   map[string]bool
}

type recordingSM struct {
	mu      sync.Mutex
	applied []string
}

func (sm *recordingSM) Apply(index uint64, payload []byte) ([]byte, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.applied = append(sm.applied, string(payload))
	return payload, nil
}

func (sm *recordingSM) snapshot() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return append([]string(nil), sm.applied...)
}

// fakeClient routes sends straight into the target node's handlers,
// honoring staged partitions and stopped nodes.
type fakeClient struct {
	c        *testCluster
	from, to raft.NodeAddr
}

var errUnreachable = errors.New("peer unreachable")

func (f *fakeClient) target() (*raft.Node, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if f.c.cut[linkKey(f.from, f.to)] || f.c.down[f.to.String()] {
		return nil, errUnreachable
	}
	return f.c.nodes[f.to.String()], nil
}

func (f *fakeClient) RequestVote(_ context.Context, req *raft.RequestVoteRequest) (*raft.RequestVoteReply, error) {
	n, err := f.target()
	if err != nil {
		return nil, err
	}
	return n.HandleRequestVote(req), nil
}

func (f *fakeClient) AppendEntries(_ context.Context, req *raft.AppendEntriesRequest) (*raft.AppendEntriesReply, error) {
	n, err := f.target()
	if err != nil {
		return nil, err
	}
	return n.HandleAppendEntries(req), nil
}

func linkKey(from, to raft.NodeAddr) string { return from.String() + "->" + to.String() }

func newTestCluster(t *testing.T, size int) *testCluster {
	t.Helper()

	c := &testCluster{
		t:     t,
		nodes: make(map[string]*raft.Node),
		logs:  make(map[string]*raftlog.Log),
		sms:   make(map[string]*recordingSM),
		down:  make(map[string]bool),
		cut:   make(map[string]bool),
	}

	for i := 0; i < size; i++ {
		c.addrs = append(c.addrs, raft.NodeAddr{IP: "127.0.0.1", Port: 7001 + i})
	}

	for i, local := range c.addrs {
		log, err := raftlog.Open(t.TempDir(), 16*1024*1024)
		require.NoError(t, err)

		var peers []raft.NodeAddr
		clients := make(map[raft.NodeAddr]raft.PeerClient)
		for _, other := range c.addrs {
			if other == local {
				continue
			}
			peers = append(peers, other)
			clients[other] = &fakeClient{c: c, from: local, to: other}
		}

		sm := &recordingSM{}
		node, err := raft.New(raft.Config{
			Local:           local,
			Peers:           peers,
			ElectTimeout:    50 * time.Millisecond,
			HeartbeatPeriod: 20 * time.Millisecond,
			ProposeTimeout:  3 * time.Second,
			Seed:            int64(i + 1),
		}, log, sm, clients)
		require.NoError(t, err)

		key := local.String()
		c.nodes[key] = node
		c.logs[key] = log
		c.sms[key] = sm
	}

	for _, node := range c.nodes {
		node.Start()
	}

	t.Cleanup(c.shutdown)
	return c
}

func (c *testCluster) shutdown() {
	c.mu.Lock()
	nodes := make([]*raft.Node, 0, len(c.nodes))
	logs := make([]*raftlog.Log, 0, len(c.logs))
	for key, n := range c.nodes {
		if !c.down[key] {
			nodes = append(nodes, n)
		}
	}
	for _, l := range c.logs {
		logs = append(logs, l)
	}
	c.mu.Unlock()

	for _, n := range nodes {
		n.Stop()
	}
	for _, l := range logs {
		l.Close()
	}
}

func (c *testCluster) node(addr raft.NodeAddr) *raft.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[addr.String()]
}

func (c *testCluster) waitForLeader() raft.NodeAddr {
	c.t.Helper()

	var leader raft.NodeAddr
	require.Eventually(c.t, func() bool {
		count := 0
		for _, addr := range c.addrs {
			c.mu.Lock()
			down := c.down[addr.String()]
			n := c.nodes[addr.String()]
			c.mu.Unlock()
			if down {
				continue
			}
			if n.IsLeader() {
				leader = addr
				count++
			}
		}
		return count == 1
	}, 10*time.Second, 10*time.Millisecond, "no single leader emerged")
	return leader
}

// partition isolates addr in both directions on every link.
func (c *testCluster) partition(addr raft.NodeAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, other := range c.addrs {
		if other == addr {
			continue
		}
		c.cut[linkKey(addr, other)] = true
		c.cut[linkKey(other, addr)] = true
	}
}

func (c *testCluster) heal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cut = make(map[string]bool)
}

func (c *testCluster) cutLink(from, to raft.NodeAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cut[linkKey(from, to)] = true
}

// stop halts a node and marks it unreachable for good.
func (c *testCluster) stop(addr raft.NodeAddr) {
	c.mu.Lock()
	n := c.nodes[addr.String()]
	c.down[addr.String()] = true
	c.mu.Unlock()
	n.Stop()
}

// logEntries reads a node's whole log as (term, payload) strings.
func (c *testCluster) logEntries(addr raft.NodeAddr) []string {
	c.mu.Lock()
	log := c.logs[addr.String()]
	c.mu.Unlock()

	var out []string
	for i := uint64(1); i <= log.LastIndex(); i++ {
		e, err := log.Get(i)
		if err != nil {
			return nil
		}
		out = append(out, fmt.Sprintf("%d/%s/%s", e.Term, e.Kind, e.Payload))
	}
	return out
}

func TestSingleNodeCommit(t *testing.T) {
	c := newTestCluster(t, 1)
	leader := c.waitForLeader()

	index, value, err := c.node(leader).Propose([]byte("k=1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), index, "no-op at 1, client entry at 2")
	assert.Equal(t, []byte("k=1"), value)

	assert.Equal(t, []string{"k=1"}, c.sms[leader.String()].snapshot(),
		"exactly one DATA delivery")
}

func TestThreeNodeReplication(t *testing.T) {
	c := newTestCluster(t, 3)
	leader := c.waitForLeader()
	n := c.node(leader)

	for _, payload := range []string{"a", "b", "c"} {
		_, _, err := n.Propose([]byte(payload))
		require.NoError(t, err)
	}

	want := c.logEntries(leader)
	require.Len(t, want, 4, "no-op plus three client entries")

	require.Eventually(t, func() bool {
		for _, addr := range c.addrs {
			entries := c.logEntries(addr)
			if len(entries) != len(want) {
				return false
			}
			for i := range want {
				if entries[i] != want[i] {
					return false
				}
			}
			applied := c.sms[addr.String()].snapshot()
			if len(applied) != 3 || applied[0] != "a" || applied[1] != "b" || applied[2] != "c" {
				return false
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond, "replicas did not converge")

	// At most one leader per term.
	terms := make(map[uint64]int)
	for _, addr := range c.addrs {
		n := c.node(addr)
		if n.IsLeader() {
			terms[n.Term()]++
		}
	}
	for term, count := range terms {
		assert.LessOrEqual(t, count, 1, "term %d has %d leaders", term, count)
	}
}

func TestStaleCandidateStepsDownAndReconciles(t *testing.T) {
	c := newTestCluster(t, 3)
	leader := c.waitForLeader()
	n := c.node(leader)

	// Pick a follower and isolate it; it will churn through terms.
	var isolated raft.NodeAddr
	for _, addr := range c.addrs {
		if addr != leader {
			isolated = addr
			break
		}
	}
	c.partition(isolated)

	_, _, err := n.Propose([]byte("x"))
	require.NoError(t, err)

	// Let the isolated node's term race ahead of the leader's.
	leaderTerm := n.Term()
	require.Eventually(t, func() bool {
		return c.node(isolated).Term() > leaderTerm+2
	}, 10*time.Second, 10*time.Millisecond, "isolated node never started elections")

	c.heal()

	// The cluster settles on one leader again and the rejoined node
	// follows it; a fresh proposal reaches all three replicas.
	newLeader := c.waitForLeader()
	_, _, err = c.node(newLeader).Propose([]byte("y"))
	require.NoError(t, err)

	want := c.logEntries(newLeader)
	require.Eventually(t, func() bool {
		if c.node(isolated).IsLeader() {
			return false
		}
		entries := c.logEntries(isolated)
		if len(entries) != len(want) {
			return false
		}
		for i := range want {
			if entries[i] != want[i] {
				return false
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond, "rejoined node did not reconcile")
}

func TestLeaderCrashMidReplication(t *testing.T) {
	c := newTestCluster(t, 3)
	leader := c.waitForLeader()
	n := c.node(leader)

	var survivors []raft.NodeAddr
	for _, addr := range c.addrs {
		if addr != leader {
			survivors = append(survivors, addr)
		}
	}
	reached, missed := survivors[0], survivors[1]

	// The entry reaches exactly one follower.
	c.cutLink(leader, missed)
	_, _, err := n.Propose([]byte("x"))
	require.NoError(t, err, "leader plus one follower is still a quorum")

	c.stop(leader)
	c.heal()

	// The survivors elect a new leader; only the one holding "x" has
	// the fresher log, so "x" survives.
	newLeader := c.waitForLeader()
	_, _, err = c.node(newLeader).Propose([]byte("y"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, b := c.logEntries(reached), c.logEntries(missed)
		if len(a) == 0 || len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond, "survivors did not converge")

	foundX, foundY := false, false
	for _, entry := range c.logEntries(reached) {
		if entry[len(entry)-1] == 'x' {
			foundX = true
		}
		if entry[len(entry)-1] == 'y' {
			foundY = true
		}
	}
	assert.True(t, foundX, "committed entry x must survive the crash")
	assert.True(t, foundY)
}

func TestProposeOnFollowerFailsFast(t *testing.T) {
	c := newTestCluster(t, 3)
	leader := c.waitForLeader()

	var follower raft.NodeAddr
	for _, addr := range c.addrs {
		if addr != leader {
			follower = addr
			break
		}
	}

	// Wait until the follower has heard from the leader.
	require.Eventually(t, func() bool {
		got, ok := c.node(follower).Leader()
		return ok && got == leader
	}, 10*time.Second, 10*time.Millisecond)

	_, _, err := c.node(follower).Propose([]byte("nope"))
	require.ErrorIs(t, err, raft.ErrNotLeader)

	nl, ok := raft.AsNotLeader(err)
	require.True(t, ok)
	assert.True(t, nl.HasLeader)
	assert.Equal(t, leader, nl.Leader)
}
