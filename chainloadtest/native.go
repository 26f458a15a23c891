//go:build darwin || freebsd || linux

package chainloadtest

import (
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ZenLiuCN/chainload"
	"github.com/ebitengine/purego"
	"github.com/stretchr/testify/require"
)

// TestLib is the file name of the library built by BuildTestLib.
const TestLib = "libtestlib.so"

// Symbols of the counters exported by TestLib.
const (
	SymLoadCount   = "TestLoadCount"
	SymUnloadCount = "TestUnloadCount"
	SymHost        = "TestHost"
)

//go:embed testdata/testlib.c
var testlib []byte

// BuildTestLib compiles the smoke plugin into a temporary directory and returns that directory.
// The test is skipped when no C compiler is installed.
func BuildTestLib(t testing.TB) (dir string) {
	t.Helper()
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skipf("no C compiler: %s", err)
	}
	dir = t.TempDir()
	src := filepath.Join(dir, "testlib.c")
	require.NoError(t, os.WriteFile(src, testlib, 0o644))
	out, err := exec.Command(cc, "-shared", "-fPIC", "-o", filepath.Join(dir, TestLib), src).CombinedOutput()
	require.NoError(t, err, "%s", out)
	return
}

// Syscall resolves symbol in lib and calls it without argument.
func Syscall(t testing.TB, lib chainload.Library, symbol string) uintptr {
	t.Helper()
	sym, ok := lib.Lookup(symbol)
	require.True(t, ok, "symbol %s", symbol)
	r, _, _ := purego.SyscallN(uintptr(sym))
	return r
}
