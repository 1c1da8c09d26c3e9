package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	kv, err := OpenBoltKV(path)
	require.NoError(t, err)
	defer kv.Close()

	// Absent key reads as nil, nil
	value, err := kv.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, kv.Set("snapshot", []byte(`{"docs":[]}`)))

	value, err = kv.Get("snapshot")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"docs":[]}`), value)

	require.NoError(t, kv.Delete("snapshot"))
	value, err = kv.Get("snapshot")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestBoltKVReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	kv, err := OpenBoltKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("key", []byte("persisted")))
	require.NoError(t, kv.Close())

	kv, err = OpenBoltKV(path)
	require.NoError(t, err)
	defer kv.Close()

	value, err := kv.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), value)
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()

	value, err := kv.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, kv.Set("key", []byte("value")))

	value, err = kv.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	// Stored bytes are copies, not aliases
	value[0] = 'X'
	value, err = kv.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	require.NoError(t, kv.Delete("key"))
	value, err = kv.Get("key")
	require.NoError(t, err)
	assert.Nil(t, value)
}
