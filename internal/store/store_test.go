package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetDelete(t *testing.T) {
	s := New()

	_, ok := s.Get("k")
	assert.False(t, ok)

	s.Set("k", []byte("v1"))
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	s.Set("k", []byte("v2"))
	v, _ = s.Get("k")
	assert.Equal(t, []byte("v2"), v)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Delete("k"))
	assert.False(t, s.Delete("k"))
	assert.Equal(t, 0, s.Len())
}

func TestTryLockSemantics(t *testing.T) {
	s := New()

	assert.True(t, s.TryLock("res", "alice"))
	// Re-entrant for the same holder.
	assert.True(t, s.TryLock("res", "alice"))
	// Refused for anyone else.
	assert.False(t, s.TryLock("res", "bob"))

	holder, held := s.LockHolder("res")
	assert.True(t, held)
	assert.Equal(t, "alice", holder)
}

func TestUnLockOnlyByHolder(t *testing.T) {
	s := New()

	assert.False(t, s.UnLock("res", "alice"), "unlocking an unheld key")

	s.TryLock("res", "alice")
	assert.False(t, s.UnLock("res", "bob"))
	assert.True(t, s.UnLock("res", "alice"))

	// Released: anyone may take it now.
	assert.True(t, s.TryLock("res", "bob"))
}
