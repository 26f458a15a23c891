//go:build darwin || freebsd || linux

package chainload

import (
	"fmt"
	"slices"

	"github.com/ebitengine/purego"
)

// NativeLoader opens shared objects with dlopen.
//
// The primary strategy leaves resolution to the dynamic linker, the user directory
// strategy joins relative paths with every added search path in insertion order.
type NativeLoader struct {
	dirs []string
}

func NewNativeLoader() *NativeLoader {
	return new(NativeLoader)
}

func (n *NativeLoader) Open(path string, s Strategy) (Library, error) {
	switch s {
	case StrategyPrimary:
		return dlopen(path)
	case StrategyUserDirs:
		return searchDirs(n.dirs, path, dlopen)
	default:
		return nil, fmt.Errorf("open %s: unknown %s", path, s)
	}
}

func dlopen(path string) (Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_LAZY)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &sharedLibrary{name: path, handle: h}, nil
}

func (n *NativeLoader) AddSearchPath(dir string) error {
	if err := CheckDirectory(dir); err != nil {
		return err
	}
	if !slices.Contains(n.dirs, dir) {
		n.dirs = append(n.dirs, dir)
	}
	return nil
}

// SearchPaths returns a copy of the registered directories.
func (n *NativeLoader) SearchPaths() []string {
	return slices.Clone(n.dirs)
}

func (n *NativeLoader) Close() error {
	n.dirs = nil
	return nil
}

type sharedLibrary struct {
	name   string
	handle uintptr
}

func (so *sharedLibrary) Name() string { return so.name }

func (so *sharedLibrary) Lookup(symbol string) (Sym, bool) {
	if so.handle == 0 {
		return 0, false
	}
	p, err := purego.Dlsym(so.handle, symbol)
	if err != nil || p == 0 {
		return 0, false
	}
	return Sym(p), true
}

func (so *sharedLibrary) Invoke(sym Sym, args ...uintptr) {
	purego.SyscallN(uintptr(sym), args...)
}

func (so *sharedLibrary) Close() error {
	if so.handle == 0 {
		return ErrReleased
	}
	if err := purego.Dlclose(so.handle); err != nil {
		return fmt.Errorf("dlclose %s: %w", so.name, err)
	}
	so.handle = 0
	return nil
}
