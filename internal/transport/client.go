package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/cy99/floyd/internal/raft"
	raftevents "github.com/cy99/floyd/internal/transport/gen/raftevents"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// PeerClient implements raft.PeerClient over one gRPC connection. The
// connection is owned here; gRPC redials a failed peer with bounded
// backoff, so a dead peer costs the replicator one failed send per
// attempt and never blocks the core.
type PeerClient struct {
	addr   raft.NodeAddr
	conn   *grpc.ClientConn
	client raftevents.RaftTransportServiceClient
}

func DialPeer(addr raft.NodeAddr) (*PeerClient, error) {
	conn, err := grpc.NewClient(addr.String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  100 * time.Millisecond,
				Multiplier: 1.6,
				Jitter:     0.2,
				MaxDelay:   5 * time.Second,
			},
		}),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", addr, err)
	}

	return &PeerClient{
		addr:   addr,
		conn:   conn,
		client: raftevents.NewRaftTransportServiceClient(conn),
	}, nil
}

func (c *PeerClient) RequestVote(ctx context.Context, req *raft.RequestVoteRequest) (*raft.RequestVoteReply, error) {
	reply, err := c.send(ctx, &raft.Message{Kind: raft.MsgRequestVote, RequestVote: req})
	if err != nil {
		return nil, err
	}
	if reply.Kind != raft.MsgRequestVoteReply || reply.RequestVoteReply == nil {
		return nil, fmt.Errorf("peer %s replied %s to a vote request", c.addr, reply.Kind)
	}
	return reply.RequestVoteReply, nil
}

func (c *PeerClient) AppendEntries(ctx context.Context, req *raft.AppendEntriesRequest) (*raft.AppendEntriesReply, error) {
	reply, err := c.send(ctx, &raft.Message{Kind: raft.MsgAppendEntries, AppendEntries: req})
	if err != nil {
		return nil, err
	}
	if reply.Kind != raft.MsgAppendEntriesReply || reply.AppendEntriesReply == nil {
		return nil, fmt.Errorf("peer %s replied %s to append entries", c.addr, reply.Kind)
	}
	return reply.AppendEntriesReply, nil
}

func (c *PeerClient) send(ctx context.Context, msg *raft.Message) (*raft.Reply, error) {
	data, err := raft.EncodeMessage(msg)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.SendRaftMessage(ctx, &raftevents.RaftMessage{Data: data})
	if err != nil {
		return nil, fmt.Errorf("send to %s: %w", c.addr, err)
	}

	return raft.DecodeReply(resp.GetData())
}

func (c *PeerClient) Close() error { return c.conn.Close() }
