// Package floyd is a small replicated key-value store built on a
// leader-based consensus core. A fixed membership of processes elects a
// single leader per term; the leader appends client commands to a
// durable log and commands apply to every replica once a quorum has
// persisted them.
package floyd

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cy99/floyd/internal/command"
	"github.com/cy99/floyd/internal/configuration/properties"
	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raft"
	"github.com/cy99/floyd/internal/raftlog"
	"github.com/cy99/floyd/internal/store"
	"github.com/cy99/floyd/internal/transport"

	"github.com/google/uuid"
	"google.golang.org/grpc"
)

// Floyd is one replicated KV node. Open starts it; every method is safe
// for concurrent use until Close.
type Floyd struct {
	cfg *properties.Config

	log     *raftlog.Log
	node    *raft.Node
	store   *store.Store
	cmds    *command.Service
	clients []*transport.PeerClient

	listener net.Listener
	server   *grpc.Server
	metrics  *metrics.Server

	// session identifies this process as a lock holder.
	session string
}

// Open recovers the durable log, wires the consensus core to its peers,
// and starts serving the consensus transport. The returned node may not
// have a leader yet; writes and consistent reads fail with a not-leader
// error on any node that is not currently the leader.
func Open(cfg *properties.Config) (*Floyd, error) {
	local := raft.NodeAddr{IP: cfg.Raft.Local.IP, Port: cfg.Raft.Local.Port}

	log, err := raftlog.Open(cfg.Raft.DataDir, cfg.Raft.SegmentSize)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	kv := store.New()
	applier := command.NewApplier(kv)

	var peers []raft.NodeAddr
	clients := make(map[raft.NodeAddr]raft.PeerClient)
	var peerClients []*transport.PeerClient
	for _, p := range cfg.Raft.Peers {
		addr := raft.NodeAddr{IP: p.IP, Port: p.Port}
		if addr == local {
			continue
		}
		pc, err := transport.DialPeer(addr)
		if err != nil {
			log.Close()
			return nil, err
		}
		peers = append(peers, addr)
		clients[addr] = pc
		peerClients = append(peerClients, pc)
	}

	node, err := raft.New(raft.Config{
		Local:           local,
		Peers:           peers,
		ElectTimeout:    time.Duration(cfg.Raft.ElectTimeoutMs) * time.Millisecond,
		HeartbeatPeriod: time.Duration(cfg.Raft.HeartbeatMs) * time.Millisecond,
		AppendBatch:     int(cfg.Raft.AppendBatch),
		ProposeTimeout:  time.Duration(cfg.Raft.ProposeTimeout) * time.Millisecond,
		VoteTargetTerm:  cfg.Raft.VoteTargetTerm,
		VoteTargetIndex: cfg.Raft.VoteTargetIndex,
	}, log, applier, clients)
	if err != nil {
		log.Close()
		return nil, err
	}

	lis, srv, err := transport.Start(&cfg.Transport, local, node)
	if err != nil {
		log.Close()
		return nil, err
	}

	f := &Floyd{
		cfg:      cfg,
		log:      log,
		node:     node,
		store:    kv,
		cmds:     command.NewService(node, kv, uint16(local.Port)),
		clients:  peerClients,
		listener: lis,
		server:   srv,
		session:  uuid.NewString(),
	}

	if addr := cfg.Metrics.Address; addr != "" {
		f.metrics = metrics.NewServer(addr)
		f.metrics.Start()
	}

	node.Start()
	slog.Info("floyd node open", "local", local, "session", f.session)
	return f, nil
}

// Close stops consensus, the transport, and releases the log.
func (f *Floyd) Close() error {
	f.node.Stop()
	f.server.GracefulStop()
	for _, c := range f.clients {
		c.Close()
	}
	if f.metrics != nil {
		f.metrics.Stop()
	}
	err := f.log.Close()
	slog.Info("floyd node closed", "local", f.cfg.Raft.Local)
	return err
}

func (f *Floyd) Write(key string, value []byte) error { return f.cmds.Write(key, value) }

func (f *Floyd) Read(key string) ([]byte, error) { return f.cmds.Read(key) }

func (f *Floyd) Delete(key string) error { return f.cmds.Delete(key) }

// DirtyRead reads the local replica without consensus; it may lag.
func (f *Floyd) DirtyRead(key string) ([]byte, error) { return f.cmds.DirtyRead(key) }

// TryLock acquires key on behalf of this process's session.
func (f *Floyd) TryLock(key string) error { return f.cmds.TryLock(key, f.session) }

// UnLock releases key if this process's session holds it.
func (f *Floyd) UnLock(key string) error { return f.cmds.UnLock(key, f.session) }

// Session is the lock-holder identity of this process.
func (f *Floyd) Session() string { return f.session }

// GetLeader reports the last-known leader, if one has been observed.
func (f *Floyd) GetLeader() (string, int, bool) {
	addr, ok := f.node.Leader()
	return addr.IP, addr.Port, ok
}

func (f *Floyd) IsLeader() bool { return f.node.IsLeader() }
