package command

import (
	"testing"

	"github.com/cy99/floyd/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, c *Command) []byte {
	t.Helper()
	data, err := Encode(c)
	require.NoError(t, err)
	return data
}

func apply(t *testing.T, a *Applier, index uint64, c *Command) *Result {
	t.Helper()
	out, err := a.Apply(index, mustEncode(t, c))
	require.NoError(t, err)
	res, err := decodeResult(out)
	require.NoError(t, err)
	return res
}

func TestApplierWriteReadDelete(t *testing.T) {
	kv := store.New()
	a := NewApplier(kv)

	apply(t, a, 1, &Command{Type: TypeWrite, Key: "k", Value: []byte("v")})

	res := apply(t, a, 2, &Command{Type: TypeRead, Key: "k"})
	assert.True(t, res.Found)
	assert.Equal(t, []byte("v"), res.Value)

	res = apply(t, a, 3, &Command{Type: TypeDelete, Key: "k"})
	assert.True(t, res.Found)

	res = apply(t, a, 4, &Command{Type: TypeRead, Key: "k"})
	assert.False(t, res.Found)
}

func TestApplierLockCommands(t *testing.T) {
	kv := store.New()
	a := NewApplier(kv)

	res := apply(t, a, 1, &Command{Type: TypeTryLock, Key: "res", Holder: "s1"})
	assert.True(t, res.Acquired)

	res = apply(t, a, 2, &Command{Type: TypeTryLock, Key: "res", Holder: "s2"})
	assert.False(t, res.Acquired)

	res = apply(t, a, 3, &Command{Type: TypeUnLock, Key: "res", Holder: "s2"})
	assert.False(t, res.Released)

	res = apply(t, a, 4, &Command{Type: TypeUnLock, Key: "res", Holder: "s1"})
	assert.True(t, res.Released)
}

func TestApplierRejectsGarbage(t *testing.T) {
	a := NewApplier(store.New())

	_, err := a.Apply(1, []byte("{not json"))
	assert.Error(t, err)

	_, err = a.Apply(2, mustEncode(t, &Command{Type: Type(99), Key: "k"}))
	assert.Error(t, err)
}

func TestCommandCodecRoundTrip(t *testing.T) {
	in := &Command{Type: TypeWrite, Key: "k", Value: []byte{0x00, 0xff}, Holder: "h"}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
