package pool

import (
	"slices"
	"sync"
	"sync/atomic"

	. "github.com/ZenLiuCN/chainload"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pool is the registry of chain loaded modules, keyed by name and ordered by registration.
//
// Only acquired modules are registered. A module that fails to release stays registered until a later release succeeds.
//
// Lifecycle hooks run while the pool lock is held. A hook may call [Pool.Names] and [Pool.Count], which read a
// snapshot published on every change, but calling any other Pool method from a hook deadlocks.
type Pool struct {
	loader  Loader
	modules map[string]*Module
	loaded  []*Module
	names   atomic.Pointer[[]string]
	host    func() HostContext
	log     *zap.Logger
	sync.RWMutex
}

type Option func(*Pool)

// WithHost sets the accessor of the host context handed to load hooks.
func WithHost(host func() HostContext) Option {
	return func(p *Pool) { p.host = host }
}

func WithLogger(log *zap.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPool create an empty pool acquiring modules through loader.
func NewPool(loader Loader, opts ...Option) (p *Pool) {
	p = &Pool{
		loader:  loader,
		modules: make(map[string]*Module),
		host:    func() HostContext { return 0 },
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.publish()
	return
}

// publish the names snapshot, the write lock must be held.
func (p *Pool) publish() {
	names := make([]string, 0, len(p.loaded))
	for _, m := range p.loaded {
		names = append(names, m.Name())
	}
	p.names.Store(&names)
}

// SetLogger replaces the logger used for modules registered from now on.
func (p *Pool) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	p.Lock()
	p.log = log
	p.Unlock()
}

// LoadModule acquires and registers name. A registered name returns true without touching the module.
func (p *Pool) LoadModule(name string) bool {
	p.Lock()
	defer p.Unlock()
	if _, ok := p.modules[name]; ok {
		p.log.Debug("module already loaded", zap.String("module", name))
		return true
	}
	m := NewModule(name, p.loader, p.log)
	if !m.Acquire(p.host()) {
		p.log.Info("module not loaded", zap.String("module", name), zap.Error(m.Err()))
		return false
	}
	p.modules[name] = m
	p.loaded = append(p.loaded, m)
	p.publish()
	p.log.Info("module loaded", zap.String("module", name), zap.Stringer("state", m.State()))
	return true
}

// UnloadModule releases and unregisters name. An unknown name returns true, a failed release returns false and keeps the module.
func (p *Pool) UnloadModule(name string) bool {
	p.Lock()
	defer p.Unlock()
	m, ok := p.modules[name]
	if !ok {
		return true
	}
	_ = m.Release()
	if m.IsLoaded() {
		p.log.Warn("module stuck", zap.String("module", name), zap.Error(m.Err()))
		return false
	}
	delete(p.modules, name)
	p.loaded = slices.DeleteFunc(p.loaded, func(x *Module) bool { return x == m })
	p.publish()
	p.log.Info("module unloaded", zap.String("module", name))
	return true
}

// UnloadAll releases every module in registration order, modules that fail to release stay registered.
func (p *Pool) UnloadAll() (err error) {
	p.Lock()
	defer p.Unlock()
	if len(p.loaded) == 0 {
		return nil
	}
	var stuck []*Module
	for _, m := range p.loaded {
		err = multierr.Append(err, m.Release())
		if m.IsLoaded() {
			stuck = append(stuck, m)
			continue
		}
		delete(p.modules, m.Name())
	}
	p.log.Info("unloaded all modules", zap.Int("released", len(p.loaded)-len(stuck)), zap.Int("stuck", len(stuck)))
	p.loaded = stuck
	p.publish()
	return
}

// AddSearchPath extends the search directories of the loader.
func (p *Pool) AddSearchPath(dir string) error {
	p.Lock()
	defer p.Unlock()
	return p.loader.AddSearchPath(dir)
}

// Close unloads all modules and closes the loader once none is left.
//
// Stuck modules stay registered and keep the loader with its search paths open, Close may be called again later.
func (p *Pool) Close() error {
	err := p.UnloadAll()
	p.Lock()
	defer p.Unlock()
	if len(p.loaded) > 0 {
		return err
	}
	return multierr.Append(err, p.loader.Close())
}

// Names snapshot of registered names in registration order.
func (p *Pool) Names() []string {
	return slices.Clone(*p.names.Load())
}

func (p *Pool) Count() int {
	return len(*p.names.Load())
}

// Get the registered module of name.
func (p *Pool) Get(name string) (m *Module, ok bool) {
	p.RLock()
	defer p.RUnlock()
	m, ok = p.modules[name]
	return
}
