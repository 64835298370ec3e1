package transport

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/cy99/floyd/internal/configuration/properties"
	"github.com/cy99/floyd/internal/raft"
	"github.com/cy99/floyd/internal/raftlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSM struct{}

func (nopSM) Apply(index uint64, payload []byte) ([]byte, error) { return payload, nil }

// startLoopback serves a quiet (unstarted) node on an ephemeral port
// and dials it back, exercising the full envelope round trip.
func startLoopback(t *testing.T) (*raft.Node, *PeerClient) {
	t.Helper()

	log, err := raftlog.Open(t.TempDir(), 16*1024*1024)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	local := raft.NodeAddr{IP: "127.0.0.1", Port: 0}
	node, err := raft.New(raft.Config{Local: local, ElectTimeout: time.Hour}, log, nopSM{}, nil)
	require.NoError(t, err)

	cfg := &properties.TransportConfigProperties{Network: "tcp", Timeout: 2}
	lis, srv, err := Start(cfg, local, node)
	require.NoError(t, err)
	t.Cleanup(srv.GracefulStop)

	port := lis.Addr().(*net.TCPAddr).Port
	client, err := DialPeer(raft.NodeAddr{IP: "127.0.0.1", Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return node, client
}

func TestRequestVoteOverLoopback(t *testing.T) {
	node, client := startLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := client.RequestVote(ctx, &raft.RequestVoteRequest{
		Term:          1,
		CandidateIP:   "127.0.0.1",
		CandidatePort: 9101,
		LastLogIndex:  0,
		LastLogTerm:   0,
	})
	require.NoError(t, err)
	assert.True(t, reply.Granted)
	assert.Equal(t, uint64(1), reply.Term)
	assert.Equal(t, uint64(1), node.Term())
}

func TestAppendEntriesOverLoopback(t *testing.T) {
	node, client := startLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := []byte{0x00, 0x01, 0xfe}
	reply, err := client.AppendEntries(ctx, &raft.AppendEntriesRequest{
		Term:       1,
		LeaderIP:   "127.0.0.1",
		LeaderPort: 9109,
		Entries: []raft.WireEntry{
			{Index: 1, Term: 1, Kind: 1},
			{Index: 2, Term: 1, Kind: 0, Payload: payload},
		},
		LeaderCommit: 1,
	})
	require.NoError(t, err)
	assert.True(t, reply.Success)

	leader, ok := node.Leader()
	require.True(t, ok)
	assert.Equal(t, raft.NodeAddr{IP: "127.0.0.1", Port: 9109}, leader)
	assert.Equal(t, uint64(1), node.CommitIndex())
}

func TestSendToDeadPeerFails(t *testing.T) {
	// An unused port: the send must error out, not hang.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())

	client, err := DialPeer(raft.NodeAddr{IP: "127.0.0.1", Port: port})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = client.RequestVote(ctx, &raft.RequestVoteRequest{Term: 1})
	require.Error(t, err)
	assert.Contains(t, fmt.Sprintf("%v", err), "send to")
}
