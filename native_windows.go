//go:build windows

package chainload

import (
	"fmt"

	"github.com/ebitengine/purego"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// NativeLoader opens dlls with LoadLibrary.
//
// The user directory strategy retries with LOAD_LIBRARY_SEARCH_USER_DIRS, which
// covers every directory registered through AddDllDirectory.
type NativeLoader struct {
	cookies map[string]uintptr
	order   []string
}

func NewNativeLoader() *NativeLoader {
	return &NativeLoader{cookies: make(map[string]uintptr)}
}

func (n *NativeLoader) Open(path string, s Strategy) (Library, error) {
	var h windows.Handle
	var err error
	switch s {
	case StrategyPrimary:
		h, err = windows.LoadLibrary(path)
	case StrategyUserDirs:
		h, err = windows.LoadLibraryEx(path, 0, windows.LOAD_LIBRARY_SEARCH_USER_DIRS)
	default:
		return nil, fmt.Errorf("open %s: unknown %s", path, s)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s (%s): %w", path, s, err)
	}
	return &dll{name: path, handle: h}, nil
}

func (n *NativeLoader) AddSearchPath(dir string) error {
	if err := CheckDirectory(dir); err != nil {
		return err
	}
	if _, ok := n.cookies[dir]; ok {
		return nil
	}
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return fmt.Errorf("search path %s: %w", dir, err)
	}
	cookie, err := windows.AddDllDirectory(p)
	if err != nil {
		return fmt.Errorf("AddDllDirectory %s: %w", dir, err)
	}
	n.cookies[dir] = cookie
	n.order = append(n.order, dir)
	return nil
}

// SearchPaths returns the registered directories in insertion order.
func (n *NativeLoader) SearchPaths() []string {
	return append([]string(nil), n.order...)
}

// Close removes every directory added by AddSearchPath.
func (n *NativeLoader) Close() (err error) {
	for _, dir := range n.order {
		if e := windows.RemoveDllDirectory(n.cookies[dir]); e != nil {
			err = multierr.Append(err, fmt.Errorf("RemoveDllDirectory %s: %w", dir, e))
		}
		delete(n.cookies, dir)
	}
	n.order = nil
	return
}

type dll struct {
	name   string
	handle windows.Handle
}

func (d *dll) Name() string { return d.name }

func (d *dll) Lookup(symbol string) (Sym, bool) {
	if d.handle == 0 {
		return 0, false
	}
	p, err := windows.GetProcAddress(d.handle, symbol)
	if err != nil || p == 0 {
		return 0, false
	}
	return Sym(p), true
}

func (d *dll) Invoke(sym Sym, args ...uintptr) {
	purego.SyscallN(uintptr(sym), args...)
}

func (d *dll) Close() error {
	if d.handle == 0 {
		return ErrReleased
	}
	if err := windows.FreeLibrary(d.handle); err != nil {
		return fmt.Errorf("FreeLibrary %s: %w", d.name, err)
	}
	d.handle = 0
	return nil
}
