package command

import (
	"testing"
	"time"

	"github.com/cy99/floyd/internal/raft"
	"github.com/cy99/floyd/internal/raftlog"
	"github.com/cy99/floyd/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startSingleNode spins a one-member cluster: it elects itself and
// commits without any transport.
func startSingleNode(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	log, err := raftlog.Open(t.TempDir(), 16*1024*1024)
	require.NoError(t, err)

	kv := store.New()
	node, err := raft.New(raft.Config{
		Local:           raft.NodeAddr{IP: "127.0.0.1", Port: 9100},
		ElectTimeout:    20 * time.Millisecond,
		HeartbeatPeriod: 10 * time.Millisecond,
		ProposeTimeout:  3 * time.Second,
		Seed:            1,
	}, log, NewApplier(kv), nil)
	require.NoError(t, err)
	node.Start()

	t.Cleanup(func() {
		node.Stop()
		log.Close()
	})

	require.Eventually(t, node.IsLeader, 5*time.Second, 5*time.Millisecond)
	return NewService(node, kv, 9100), kv
}

func TestServiceWriteReadDelete(t *testing.T) {
	svc, _ := startSingleNode(t)

	require.NoError(t, svc.Write("k", []byte("v")))

	v, err := svc.Read("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, svc.Delete("k"))

	_, err = svc.Read("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestServiceDirtyRead(t *testing.T) {
	svc, kv := startSingleNode(t)

	_, err := svc.DirtyRead("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, svc.Write("k", []byte("v")))

	// The write applied locally before Propose returned.
	v, err := svc.DirtyRead("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, kv.Len())
}

func TestServiceLocks(t *testing.T) {
	svc, _ := startSingleNode(t)

	require.NoError(t, svc.TryLock("res", "s1"))
	require.NoError(t, svc.TryLock("res", "s1"), "re-entrant for the holder")

	err := svc.TryLock("res", "s2")
	assert.ErrorIs(t, err, ErrLockHeld)

	err = svc.UnLock("res", "s2")
	assert.ErrorIs(t, err, ErrNotLockHolder)

	require.NoError(t, svc.UnLock("res", "s1"))
	require.NoError(t, svc.TryLock("res", "s2"))
}

func TestServiceNotLeader(t *testing.T) {
	log, err := raftlog.Open(t.TempDir(), 16*1024*1024)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	kv := store.New()
	// Never started: the node stays a follower with no leader known.
	node, err := raft.New(raft.Config{
		Local: raft.NodeAddr{IP: "127.0.0.1", Port: 9100},
	}, log, NewApplier(kv), nil)
	require.NoError(t, err)

	svc := NewService(node, kv, 9100)
	err = svc.Write("k", []byte("v"))
	assert.ErrorIs(t, err, raft.ErrNotLeader)
}
