package command

import (
	"log/slog"

	"github.com/cy99/floyd/internal/store"
)

// Applier is the user state machine fed by the consensus apply loop.
// It decodes each committed command and executes it against the store.
type Applier struct {
	store *store.Store
}

func NewApplier(s *store.Store) *Applier { return &Applier{store: s} }

// Apply executes one committed command. A command that cannot be
// decoded is rejected; the consensus layer surfaces that to the waiter
// and moves on.
func (a *Applier) Apply(index uint64, payload []byte) ([]byte, error) {
	cmd, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	switch cmd.Type {
	case TypeWrite:
		a.store.Set(cmd.Key, cmd.Value)
		res.Found = true

	case TypeRead:
		res.Value, res.Found = a.store.Get(cmd.Key)

	case TypeDelete:
		res.Found = a.store.Delete(cmd.Key)

	case TypeTryLock:
		res.Acquired = a.store.TryLock(cmd.Key, cmd.Holder)

	case TypeUnLock:
		res.Released = a.store.UnLock(cmd.Key, cmd.Holder)
	}

	slog.Debug("applied command",
		"index", index,
		"type", cmd.Type,
		"key", cmd.Key,
	)
	return encodeResult(res)
}
