package command

import (
	"errors"
	"log/slog"
	"time"

	"github.com/cy99/floyd/internal/metrics"
	"github.com/cy99/floyd/internal/raft"
	"github.com/cy99/floyd/internal/store"

	"go.etcd.io/etcd/pkg/v3/idutil"
)

var (
	// ErrKeyNotFound reports a read or delete of an absent key.
	ErrKeyNotFound = errors.New("command: key not found")

	// ErrLockHeld reports a TryLock on a key locked by another holder.
	ErrLockHeld = errors.New("command: lock held by another holder")

	// ErrNotLockHolder reports an UnLock by someone other than the holder.
	ErrNotLockHolder = errors.New("command: not the lock holder")
)

// Service is the client entry point layer: it turns user calls into
// consensus proposals and blocks for their commit and apply result.
// Reads go through consensus too, so a successful Read reflects a state
// at least as new as every previously committed write; DirtyRead trades
// that for a local lookup.
type Service struct {
	node  *raft.Node
	store *store.Store
	reqID *idutil.Generator
}

func NewService(node *raft.Node, s *store.Store, memberID uint16) *Service {
	return &Service{
		node:  node,
		store: s,
		reqID: idutil.NewGenerator(memberID, time.Now()),
	}
}

func (s *Service) Write(key string, value []byte) error {
	_, err := s.propose(&Command{Type: TypeWrite, Key: key, Value: value})
	return err
}

func (s *Service) Read(key string) ([]byte, error) {
	res, err := s.propose(&Command{Type: TypeRead, Key: key})
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, ErrKeyNotFound
	}
	return res.Value, nil
}

func (s *Service) Delete(key string) error {
	_, err := s.propose(&Command{Type: TypeDelete, Key: key})
	return err
}

// DirtyRead returns the local replica's current value without going
// through consensus; it may lag the leader.
func (s *Service) DirtyRead(key string) ([]byte, error) {
	v, ok := s.store.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (s *Service) TryLock(key, holder string) error {
	res, err := s.propose(&Command{Type: TypeTryLock, Key: key, Holder: holder})
	if err != nil {
		return err
	}
	if !res.Acquired {
		return ErrLockHeld
	}
	return nil
}

func (s *Service) UnLock(key, holder string) error {
	res, err := s.propose(&Command{Type: TypeUnLock, Key: key, Holder: holder})
	if err != nil {
		return err
	}
	if !res.Released {
		return ErrNotLockHolder
	}
	return nil
}

func (s *Service) propose(cmd *Command) (*Result, error) {
	reqID := s.reqID.Next()

	payload, err := Encode(cmd)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Type.String(), "encode_error").Inc()
		return nil, err
	}

	index, value, err := s.node.Propose(payload)
	if err != nil {
		slog.Debug("proposal failed",
			"req_id", reqID,
			"type", cmd.Type,
			"key", cmd.Key,
			"error", err,
		)
		metrics.CommandsTotal.WithLabelValues(cmd.Type.String(), "error").Inc()
		return nil, err
	}

	res, err := decodeResult(value)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Type.String(), "decode_error").Inc()
		return nil, err
	}

	slog.Debug("command committed",
		"req_id", reqID,
		"type", cmd.Type,
		"key", cmd.Key,
		"index", index,
	)
	metrics.CommandsTotal.WithLabelValues(cmd.Type.String(), "ok").Inc()
	return res, nil
}
