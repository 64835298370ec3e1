package raftlog

import (
	"encoding/binary"
	"fmt"
)

// Kind discriminates leader-generated no-ops from client data.
type Kind uint32

const (
	KindData Kind = iota
	KindNoop
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindNoop:
		return "NOOP"
	default:
		return fmt.Sprintf("KIND(%d)", uint32(k))
	}
}

// Entry is one immutable record of the replicated log. Index is 1-based
// and gap-free; once assigned, (Term, Payload) never change for it. Noop
// entries carry an empty payload.
type Entry struct {
	Index   uint64
	Term    uint64
	Kind    Kind
	Payload []byte
}

const entryBodyHeaderLen = 8 + 4

// encodeEntryBody serializes the term, kind and payload of an entry.
// The index travels outside the body, in the record framing.
func encodeEntryBody(e Entry) []byte {
	buf := make([]byte, entryBodyHeaderLen+len(e.Payload))
	binary.LittleEndian.PutUint64(buf[0:8], e.Term)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(e.Kind))
	copy(buf[entryBodyHeaderLen:], e.Payload)
	return buf
}

func decodeEntryBody(index uint64, body []byte) (Entry, error) {
	if len(body) < entryBodyHeaderLen {
		return Entry{}, fmt.Errorf("%w: entry %d body too short (%d bytes)", ErrCorrupt, index, len(body))
	}
	e := Entry{
		Index: index,
		Term:  binary.LittleEndian.Uint64(body[0:8]),
		Kind:  Kind(binary.LittleEndian.Uint32(body[8:12])),
	}
	if n := len(body) - entryBodyHeaderLen; n > 0 {
		e.Payload = make([]byte, n)
		copy(e.Payload, body[entryBodyHeaderLen:])
	}
	return e, nil
}
