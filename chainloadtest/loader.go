// Package chainloadtest provides an in memory Loader for testing purpose.
package chainloadtest

import (
	"errors"
	"path/filepath"
	"slices"
	"sync"

	"github.com/ZenLiuCN/chainload"
)

// ErrRelease is returned by Close of a library marked as stuck.
var ErrRelease = errors.New("release refused")

type (
	// Lib describes one fake library.
	Lib struct {
		Load     bool // exports the load hook
		Unload   bool // exports the unload hook
		Stuck    bool // Close fails while set
		UserOnly bool // only found through search paths
		OnLoad   func() // runs inside the load hook
		OnUnload func() // runs inside the unload hook
	}
	// Call is one recorded event.
	Call struct {
		Lib  string
		What string // load, unload, close
		Arg  uintptr
	}
	// Loader is a fake chainload.Loader.
	Loader struct {
		mu      sync.Mutex
		libs    map[string]*Lib
		dirs    []string
		calls   []Call
		open    map[string]int
		closed  bool
		addFail error
	}
)

const (
	symLoad Sym = iota + 1
	symUnload
)

type Sym = chainload.Sym

func New() *Loader {
	return &Loader{libs: make(map[string]*Lib), open: make(map[string]int)}
}

// Add registers a library under path and returns it for later changes.
func (l *Loader) Add(path string, lib Lib) *Lib {
	l.mu.Lock()
	defer l.mu.Unlock()
	x := lib
	l.libs[path] = &x
	return &x
}

// SetStuck changes whether releasing path fails.
func (l *Loader) SetStuck(path string, stuck bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if x, ok := l.libs[path]; ok {
		x.Stuck = stuck
	}
}

// FailSearchPath makes AddSearchPath return err.
func (l *Loader) FailSearchPath(err error) {
	l.mu.Lock()
	l.addFail = err
	l.mu.Unlock()
}

func (l *Loader) Open(path string, s chainload.Strategy) (chainload.Library, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch s {
	case chainload.StrategyPrimary:
		if x, ok := l.libs[path]; ok && !x.UserOnly {
			return l.acquire(path, path, x), nil
		}
	case chainload.StrategyUserDirs:
		for _, dir := range l.dirs {
			full := filepath.Join(dir, path)
			if x, ok := l.libs[full]; ok {
				return l.acquire(path, full, x), nil
			}
		}
	}
	return nil, chainload.ErrNotFound
}

func (l *Loader) acquire(path, full string, x *Lib) *library {
	l.open[path]++
	return &library{owner: l, path: path, name: full, lib: x}
}

func (l *Loader) AddSearchPath(dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.addFail != nil {
		return l.addFail
	}
	if !slices.Contains(l.dirs, dir) {
		l.dirs = append(l.dirs, dir)
	}
	return nil
}

func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirs = nil
	l.closed = true
	return nil
}

// Calls recorded so far.
func (l *Loader) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// Count of recorded calls of kind what for lib.
func (l *Loader) Count(lib, what string) (n int) {
	for _, c := range l.Calls() {
		if c.Lib == lib && c.What == what {
			n++
		}
	}
	return
}

// Open handles of path.
func (l *Loader) Opened(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open[path]
}

func (l *Loader) SearchPaths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.dirs)
}

func (l *Loader) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loader) record(c Call) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

type library struct {
	owner  *Loader
	path   string
	name   string
	lib    *Lib
	closed bool
}

func (b *library) Name() string { return b.name }

func (b *library) Lookup(symbol string) (Sym, bool) {
	switch {
	case symbol == chainload.SymbolLoad && b.lib.Load:
		return symLoad, true
	case symbol == chainload.SymbolUnload && b.lib.Unload:
		return symUnload, true
	}
	return 0, false
}

func (b *library) Invoke(sym Sym, args ...uintptr) {
	c := Call{Lib: b.path}
	var then func()
	switch sym {
	case symLoad:
		c.What = "load"
		if len(args) > 0 {
			c.Arg = args[0]
		}
		then = b.lib.OnLoad
	case symUnload:
		c.What = "unload"
		then = b.lib.OnUnload
	default:
		panic("unknown symbol")
	}
	b.owner.record(c)
	if then != nil {
		then()
	}
}

func (b *library) Close() error {
	if b.closed {
		return chainload.ErrReleased
	}
	b.owner.mu.Lock()
	stuck := b.lib.Stuck
	b.owner.mu.Unlock()
	if stuck {
		return ErrRelease
	}
	b.closed = true
	b.owner.mu.Lock()
	b.owner.open[b.path]--
	b.owner.mu.Unlock()
	b.owner.record(Call{Lib: b.path, What: "close"})
	return nil
}
