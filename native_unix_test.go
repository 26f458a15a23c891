//go:build linux

package chainload_test

import (
	"path/filepath"
	"testing"

	. "github.com/ZenLiuCN/chainload"
	"github.com/ZenLiuCN/chainload/chainloadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libc = "libc.so.6"

func TestNativeLoaderLibc(t *testing.T) {
	n := NewNativeLoader()
	lib, err := n.Open(libc, StrategyPrimary)
	if err != nil {
		t.Skipf("%s not available: %s", libc, err)
	}
	_, ok := lib.Lookup("getpid")
	assert.True(t, ok)
	_, ok = lib.Lookup(SymbolLoad)
	assert.False(t, ok)
	require.NoError(t, lib.Close())
	assert.ErrorIs(t, lib.Close(), ErrReleased)

	r, err := Inspect(n, libc)
	require.NoError(t, err)
	assert.False(t, r.Plugin())

	m := NewModule(libc, n, nil)
	require.True(t, m.Acquire(0))
	assert.Equal(t, LoadedBare, m.State())
	require.NoError(t, m.Release())
	assert.False(t, m.IsLoaded())
}

func TestNativeLoaderMissing(t *testing.T) {
	n := NewNativeLoader()
	dir := t.TempDir()
	require.NoError(t, n.AddSearchPath(dir))
	require.NoError(t, n.AddSearchPath(dir))
	assert.Equal(t, []string{dir}, n.SearchPaths())
	assert.ErrorIs(t, n.AddSearchPath(filepath.Join(dir, "absent")), ErrNotDirectory)

	_, err := Open(n, "libchainload-absent.so")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = n.Open(filepath.Join(dir, "libchainload-absent.so"), StrategyUserDirs)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, n.Close())
	assert.Empty(t, n.SearchPaths())
}

func TestNativeLoaderHooks(t *testing.T) {
	dir := chainloadtest.BuildTestLib(t)
	n := NewNativeLoader()
	require.NoError(t, n.AddSearchPath(dir))

	r, err := Inspect(n, chainloadtest.TestLib)
	require.NoError(t, err)
	assert.True(t, r.Plugin())

	lib, err := Open(n, chainloadtest.TestLib)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, chainloadtest.TestLib), lib.Name())
	assert.EqualValues(t, 0, chainloadtest.Syscall(t, lib, chainloadtest.SymLoadCount), "inspect does not run hooks")

	m := NewModule(chainloadtest.TestLib, n, nil)
	require.True(t, m.Acquire(0x77))
	assert.Equal(t, LoadedHooked, m.State())
	assert.EqualValues(t, 1, chainloadtest.Syscall(t, lib, chainloadtest.SymLoadCount))
	assert.EqualValues(t, 0x77, chainloadtest.Syscall(t, lib, chainloadtest.SymHost))
	require.NoError(t, m.Release())
	assert.EqualValues(t, 1, chainloadtest.Syscall(t, lib, chainloadtest.SymUnloadCount))
	require.NoError(t, lib.Close())
}
