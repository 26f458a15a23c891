package chainload

import (
	"fmt"

	"go.uber.org/zap"
)

type (
	// Hooks is the lifecycle pair exported by a plugin module. It only exists when both symbols resolved.
	Hooks struct {
		Load   func(HostContext)
		Unload func()
	}
	// State of a Module.
	State int
	// Module is one chain loaded native unit.
	//
	// Life cycle:
	//
	//	1. [NewModule] creates an unloaded Module for a path.
	//	2. [Module.Acquire] opens the library and, when both hooks are exported, calls the load hook.
	//	3. [Module.Release] calls the unload hook and closes the library.
	//
	// A Module is not thread-safe, it is owned by exactly one Pool.
	Module struct {
		name   string
		loader Loader
		lib    Library
		hooks  *Hooks
		err    error
		log    *zap.Logger
	}
)

const (
	Unloaded State = iota
	LoadedBare
	LoadedHooked
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "UNLOADED"
	case LoadedBare:
		return "LOADED_BARE"
	case LoadedHooked:
		return "LOADED_HOOKED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// NewModule create an unloaded module named by its acquisition path. a nil logger disables logging.
func NewModule(name string, loader Loader, log *zap.Logger) *Module {
	if log == nil {
		log = zap.NewNop()
	}
	return &Module{name: name, loader: loader, log: log.With(zap.String("module", name))}
}

// Acquire opens the library if it is not loaded yet, then resolves the lifecycle hooks.
//
// The load hook is called with ctx only when both hooks resolve. A library without hooks is still loaded.
func (m *Module) Acquire(ctx HostContext) bool {
	if m.IsLoaded() {
		return true
	}
	lib, err := Open(m.loader, m.name)
	if err != nil {
		m.err = err
		m.log.Debug("acquire failed", zap.Error(err))
		return false
	}
	m.lib, m.err = lib, nil
	m.hooks = resolveHooks(lib)
	if m.hooks == nil {
		m.log.Debug("acquired without hooks")
		return m.IsLoaded()
	}
	m.log.Debug("acquired, calling load hook")
	m.call(SymbolLoad, func() { m.hooks.Load(ctx) })
	return m.IsLoaded()
}

func resolveHooks(lib Library) *Hooks {
	load, okLoad := lib.Lookup(SymbolLoad)
	unload, okUnload := lib.Lookup(SymbolUnload)
	if !okLoad || !okUnload {
		return nil
	}
	return &Hooks{
		Load:   func(ctx HostContext) { lib.Invoke(load, uintptr(ctx)) },
		Unload: func() { lib.Invoke(unload) },
	}
}

// call runs a hook, a panicking go object hook must not take the host down.
func (m *Module) call(hook string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("hook panicked", zap.String("hook", hook), zap.Any("panic", r))
		}
	}()
	f()
}

// Release calls the unload hook of a hooked module and closes the library.
//
// When closing fails the module keeps its handle and stays loaded, the caller should check [Module.IsLoaded].
// The unload hook is never called twice for one acquisition.
func (m *Module) Release() error {
	if !m.IsLoaded() {
		return nil
	}
	if h := m.hooks; h != nil {
		m.hooks = nil
		m.log.Debug("calling unload hook")
		m.call(SymbolUnload, h.Unload)
	}
	if err := m.lib.Close(); err != nil {
		m.err = fmt.Errorf("release %s: %w", m.name, err)
		m.log.Warn("release failed", zap.Error(err))
		return m.err
	}
	m.lib, m.err = nil, nil
	m.log.Debug("released")
	return nil
}

func (m *Module) Name() string   { return m.name }
func (m *Module) IsLoaded() bool { return m.lib != nil }

// IsPlugin reports whether both lifecycle hooks are bound.
func (m *Module) IsPlugin() bool { return m.hooks != nil }

// HasHooks is an alias of IsPlugin.
func (m *Module) HasHooks() bool { return m.IsPlugin() }

// Err returns the last acquisition or release failure, nil after a successful step.
func (m *Module) Err() error { return m.err }

func (m *Module) State() State {
	switch {
	case !m.IsLoaded():
		return Unloaded
	case m.IsPlugin():
		return LoadedHooked
	default:
		return LoadedBare
	}
}
