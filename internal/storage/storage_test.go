package storage

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	rs, err := NewRedisStorage(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	return rs, mr
}

func TestDrivers_RoundTrip(t *testing.T) {
	fileStorage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	redisStorage, _ := setupRedis(t)

	drivers := map[string]Storage{
		"file":   fileStorage,
		"redis":  redisStorage,
		"memory": NewMemory(),
	}

	for name, s := range drivers {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.GetItem("auth_token")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetItem("auth_token", "abc"))
			v, ok, err := s.GetItem("auth_token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "abc", v)

			require.NoError(t, s.SetItem("auth_token", "def"))
			v, _, err = s.GetItem("auth_token")
			require.NoError(t, err)
			assert.Equal(t, "def", v)

			require.NoError(t, s.RemoveItem("auth_token"))
			_, ok, err = s.GetItem("auth_token")
			require.NoError(t, err)
			assert.False(t, ok)

			// removing a missing key is not an error
			require.NoError(t, s.RemoveItem("auth_token"))
		})
	}
}

func TestFileStorage_Permissions(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.SetItem("auth_token", "secret"))

	info, err := os.Stat(fs.Path("auth_token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStorage_RejectsPathKeys(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", `a\b`, ".."} {
		err := fs.SetItem(key, "x")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestRedisStorage_UsesPrefix(t *testing.T) {
	rs, mr := setupRedis(t)

	require.NoError(t, rs.SetItem("user-storage", `{"user":null}`))

	got, err := mr.Get("spactl:user-storage")
	require.NoError(t, err)
	assert.Equal(t, `{"user":null}`, got)
}

func TestNewRedisStorage_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStorage(RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestNoop_NeverFails(t *testing.T) {
	var s Storage = Noop{}

	require.NoError(t, s.SetItem("auth_token", "abc"))
	v, ok, err := s.GetItem("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.NoError(t, s.RemoveItem("auth_token"))
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(Config{Driver: "", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	s, err = Open(Config{Driver: "noop"})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, s)

	_, err = Open(Config{Driver: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
