package chainload_test

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"unsafe"

	. "github.com/ZenLiuCN/chainload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookedObject compiles testdata/hooked with the toolchain running the test.
func hookedObject(t *testing.T) string {
	t.Helper()
	gobin := filepath.Join(runtime.GOROOT(), "bin", "go")
	if _, err := exec.LookPath(gobin); err != nil {
		if gobin, err = exec.LookPath("go"); err != nil {
			t.Skipf("go toolchain unavailable: %s", err)
		}
	}
	out := filepath.Join(t.TempDir(), "hooked.o")
	b, err := exec.Command(gobin, "tool", "compile", "-p", "main", "-o", out, "testdata/hooked/hooked.go").CombinedOutput()
	require.NoError(t, err, "%s", b)
	return out
}

func TestObjectLoader(t *testing.T) {
	obj := hookedObject(t)
	o, err := NewObjectLoader()
	require.NoError(t, err)
	r, err := Inspect(o, obj)
	require.NoError(t, err)
	assert.True(t, r.Plugin())

	m := NewModule(obj, o, nil)
	require.True(t, m.Acquire(7))
	assert.Equal(t, LoadedHooked, m.State())
	require.NoError(t, m.Release())
	assert.Equal(t, Unloaded, m.State())
}

func TestObjectLoaderInvoke(t *testing.T) {
	obj := hookedObject(t)
	o, err := NewObjectLoader()
	require.NoError(t, err)
	lib, err := o.Open(obj, StrategyPrimary)
	require.NoError(t, err)
	defer func() { require.NoError(t, lib.Close()) }()
	read := func(name string) uintptr {
		sym, ok := lib.Lookup(name)
		require.True(t, ok, "symbol %s", name)
		return *(*uintptr)(unsafe.Pointer(uintptr(sym)))
	}

	load, ok := lib.Lookup(SymbolLoad)
	require.True(t, ok)
	unload, ok := lib.Lookup(SymbolUnload)
	require.True(t, ok)
	lib.Invoke(load, 0x5EED)
	assert.EqualValues(t, 0x5EED, read("Host"))
	assert.EqualValues(t, 1, read("Loaded"))
	lib.Invoke(unload)
	assert.EqualValues(t, 1, read("Removed"))
	assert.Panics(t, func() { lib.Invoke(load, 1, 2) })
}

func TestObjectLoaderMissing(t *testing.T) {
	o, err := NewObjectLoader()
	if err != nil {
		t.Skipf("host symbols unavailable: %s", err)
	}
	_, err = Open(o, "testdata/absent.o")
	assert.Error(t, err)
	assert.ErrorIs(t, o.AddSearchPath("testdata/absent"), ErrNotDirectory)
	require.NoError(t, o.AddSearchPath("testdata"))
	require.NoError(t, o.Close())
}
