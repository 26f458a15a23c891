//go:build darwin || freebsd || linux

package pool

import (
	"path/filepath"
	"testing"

	"github.com/ZenLiuCN/chainload"
	"github.com/ZenLiuCN/chainload/chainloadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const nativeHost chainload.HostContext = 0xABCD

func TestNativeHooks(t *testing.T) {
	dir := chainloadtest.BuildTestLib(t)
	// a second handle keeps the library mapped so its counters survive UnloadModule
	watch, err := chainload.NewNativeLoader().Open(filepath.Join(dir, chainloadtest.TestLib), chainload.StrategyPrimary)
	require.NoError(t, err)
	defer func() { require.NoError(t, watch.Close()) }()
	count := func(symbol string) uintptr { return chainloadtest.Syscall(t, watch, symbol) }

	p := NewPool(chainload.NewNativeLoader(),
		WithHost(func() chainload.HostContext { return nativeHost }),
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, p.AddSearchPath(dir))

	require.True(t, p.LoadModule(chainloadtest.TestLib))
	m, ok := p.Get(chainloadtest.TestLib)
	require.True(t, ok)
	assert.Equal(t, chainload.LoadedHooked, m.State())
	assert.EqualValues(t, 1, count(chainloadtest.SymLoadCount))
	assert.EqualValues(t, 0, count(chainloadtest.SymUnloadCount))
	assert.EqualValues(t, nativeHost, count(chainloadtest.SymHost))

	require.True(t, p.LoadModule(chainloadtest.TestLib))
	assert.EqualValues(t, 1, count(chainloadtest.SymLoadCount), "registered name is not loaded again")

	require.True(t, p.UnloadModule(chainloadtest.TestLib))
	assert.Zero(t, p.Count())
	assert.EqualValues(t, 1, count(chainloadtest.SymUnloadCount))
	assert.EqualValues(t, 0, count(chainloadtest.SymHost))

	require.True(t, p.LoadModule(chainloadtest.TestLib))
	assert.EqualValues(t, 2, count(chainloadtest.SymLoadCount))
	require.NoError(t, p.Close())
	assert.EqualValues(t, 2, count(chainloadtest.SymUnloadCount))
}
