package chainload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

type (
	// Strategy selects how a Loader locates a library.
	Strategy int
	// Loader is the platform side of module acquisition.
	//
	// Implementations are not required to be thread-safe, a Pool serializes every call.
	Loader interface {
		// Open acquires a library by path with the given strategy.
		Open(path string, s Strategy) (Library, error)
		// AddSearchPath extends the directories searched by StrategyUserDirs.
		AddSearchPath(dir string) error
		// Close drops search path registrations.
		Close() error
	}
	// Library is one acquired native unit.
	Library interface {
		Name() string
		Lookup(symbol string) (Sym, bool)
		// Invoke calls a resolved function symbol.
		Invoke(sym Sym, args ...uintptr)
		// Close releases the handle. A Library that closed successfully must not be used again.
		Close() error
	}
)

const (
	// StrategyPrimary asks the platform to resolve the path with its default search order.
	StrategyPrimary Strategy = iota
	// StrategyUserDirs restricts the lookup to directories added with [Loader.AddSearchPath].
	StrategyUserDirs
)

func (s Strategy) String() string {
	switch s {
	case StrategyPrimary:
		return "primary"
	case StrategyUserDirs:
		return "user-dirs"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Open acquires path with the primary strategy and falls back to the user directories.
func Open(l Loader, path string) (lib Library, err error) {
	if lib, err = l.Open(path, StrategyPrimary); err == nil {
		return
	}
	var fallback error
	if lib, fallback = l.Open(path, StrategyUserDirs); fallback == nil {
		return lib, nil
	}
	return nil, multierr.Append(err, fallback)
}

// CheckDirectory reports ErrNotDirectory unless dir exists and is a directory.
func CheckDirectory(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("search path %s: %w", dir, ErrNotDirectory)
	}
	if !fi.IsDir() {
		return fmt.Errorf("search path %s: %w", dir, ErrNotDirectory)
	}
	return nil
}

// searchDirs tries each directory in order for a relative path.
func searchDirs(dirs []string, path string, open func(string) (Library, error)) (Library, error) {
	if filepath.IsAbs(path) {
		return nil, fmt.Errorf("%s: absolute path skips user directories: %w", path, ErrNotFound)
	}
	var err error
	for _, dir := range dirs {
		lib, e := open(filepath.Join(dir, path))
		if e == nil {
			return lib, nil
		}
		err = multierr.Append(err, e)
	}
	if err == nil {
		return nil, fmt.Errorf("%s: no search path registered: %w", path, ErrNotFound)
	}
	return nil, fmt.Errorf("%s: %w", path, multierr.Append(ErrNotFound, err))
}

// Mux dispatches go object files to Object and everything else to Native.
type Mux struct {
	Native Loader
	Object Loader
}

// NewMux create a Mux over the platform native loader and a fresh ObjectLoader.
func NewMux() (*Mux, error) {
	o, err := NewObjectLoader()
	if err != nil {
		return nil, err
	}
	return &Mux{Native: NewNativeLoader(), Object: o}, nil
}

// IsObject reports whether path names a go object or archive file.
func IsObject(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".o", ".a":
		return true
	}
	return false
}

func (m *Mux) Open(path string, s Strategy) (Library, error) {
	if IsObject(path) && m.Object != nil {
		return m.Object.Open(path, s)
	}
	if m.Native == nil {
		return nil, ErrUnsupported
	}
	return m.Native.Open(path, s)
}

func (m *Mux) AddSearchPath(dir string) (err error) {
	for _, l := range []Loader{m.Native, m.Object} {
		if l != nil {
			err = multierr.Append(err, l.AddSearchPath(dir))
		}
	}
	return
}

func (m *Mux) Close() (err error) {
	for _, l := range []Loader{m.Native, m.Object} {
		if l != nil {
			err = multierr.Append(err, l.Close())
		}
	}
	return
}
