package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cy99/floyd/internal/configuration/properties"
	"github.com/cy99/floyd/internal/raft"
	raftevents "github.com/cy99/floyd/internal/transport/gen/raftevents"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// raftTransportServer is the inbound RPC worker: it decodes the
// envelope and hands the message to the consensus core's handlers.
type raftTransportServer struct {
	raftevents.UnimplementedRaftTransportServiceServer
	node *raft.Node
}

func (s *raftTransportServer) SendRaftMessage(_ context.Context, req *raftevents.RaftMessage) (*raftevents.RaftMessageResponse, error) {
	msg, err := raft.DecodeMessage(req.GetData())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode consensus message: %v", err)
	}

	var reply raft.Reply
	switch msg.Kind {
	case raft.MsgRequestVote:
		reply.Kind = raft.MsgRequestVoteReply
		reply.RequestVoteReply = s.node.HandleRequestVote(msg.RequestVote)
	case raft.MsgAppendEntries:
		reply.Kind = raft.MsgAppendEntriesReply
		reply.AppendEntriesReply = s.node.HandleAppendEntries(msg.AppendEntries)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unexpected message kind %s", msg.Kind)
	}

	data, err := raft.EncodeReply(&reply)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode consensus reply: %v", err)
	}
	return &raftevents.RaftMessageResponse{Data: data}, nil
}

// Start listens on the local consensus address and serves the raft
// transport until the returned server is stopped.
func Start(cfg *properties.TransportConfigProperties, local raft.NodeAddr, node *raft.Node) (net.Listener, *grpc.Server, error) {
	addr := cfg.Address
	if addr == "" {
		addr = local.IP
	}
	lis, err := net.Listen(cfg.Network, fmt.Sprintf("%s:%d", addr, local.Port))
	if err != nil {
		return nil, nil, err
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		slog.Warn("transport timeout must be at least 1 second, using 1s")
		timeout = time.Second
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(timeoutInterceptor(timeout)))

	raftevents.RegisterRaftTransportServiceServer(s, &raftTransportServer{node: node})

	slog.Info("raft transport listening", "addr", lis.Addr().String())
	go func() {
		if err := s.Serve(lis); err != nil {
			slog.Error("raft transport serve failed", "error", err)
		}
	}()

	return lis, s, nil
}

func timeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return handler(ctx, req)
	}
}
