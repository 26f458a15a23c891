// Package export is the host facing surface of the proxy: every operation the host runtime may call, with
// failures reported as booleans or log lines only.
package export

import (
	"errors"
	"sync/atomic"

	"github.com/ZenLiuCN/chainload"
	"github.com/ZenLiuCN/chainload/host"
	"github.com/ZenLiuCN/chainload/pool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Host is the host runtime as seen by the surface.
type Host interface {
	Context() chainload.HostContext
	// Log may return nil when the host has no log.
	Log() host.Sink
}

// Surface forwards host calls into one pool.
type Surface struct {
	pool  *pool.Pool
	ctx   atomic.Uintptr
	log   atomic.Pointer[zap.Logger]
	level zapcore.LevelEnabler
	base  *zap.Logger
}

type Option func(*Surface)

// WithLogger tees every entry to log besides the host sink.
func WithLogger(log *zap.Logger) Option {
	return func(s *Surface) {
		if log != nil {
			s.base = log
		}
	}
}

// WithLevel sets the minimum level forwarded to the host sink, default info.
func WithLevel(level zapcore.LevelEnabler) Option {
	return func(s *Surface) { s.level = level }
}

// New create a surface owning a fresh pool on loader.
func New(loader chainload.Loader, opts ...Option) *Surface {
	s := &Surface{level: zapcore.InfoLevel, base: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log.Store(s.base)
	s.pool = pool.NewPool(loader, pool.WithHost(s.Context), pool.WithLogger(s.base))
	return s
}

// Pool the registry behind this surface.
func (s *Surface) Pool() *pool.Pool { return s.pool }

// Context is the host context recorded by HostLoaded, zero before.
func (s *Surface) Context() chainload.HostContext {
	return chainload.HostContext(s.ctx.Load())
}

// Logger is the logger in use, teeing into the host log after HostLoaded.
func (s *Surface) Logger() *zap.Logger { return s.log.Load() }

// HostLoaded records the host context and starts logging into the host log if it has one.
func (s *Surface) HostLoaded(h Host) {
	if h == nil {
		return
	}
	s.ctx.Store(uintptr(h.Context()))
	log := s.base
	if sink := h.Log(); sink != nil {
		log = zap.New(zapcore.NewTee(s.base.Core(), host.NewCore(sink, s.level)))
	}
	s.log.Store(log)
	s.pool.SetLogger(log)
	log.Info("wrapper loaded")
}

// HostUnloading unloads every module and drops the search paths. Modules failing to release stay registered and keep the search paths.
func (s *Surface) HostUnloading() {
	log := s.Logger()
	if err := s.pool.Close(); err != nil {
		log.Warn("teardown incomplete", zap.Strings("modules", s.pool.Names()), zap.Error(err))
	}
	log.Info("wrapper unloaded")
}

func (s *Surface) LoadPlugin(path string) bool {
	log := s.Logger()
	log.Info("try to load", zap.String("module", path))
	loaded := s.pool.LoadModule(path)
	log.Info("load finished", zap.String("module", path), zap.Bool("loaded", loaded))
	return loaded
}

func (s *Surface) UnloadPlugin(path string) bool {
	s.Logger().Info("try to unload", zap.String("module", path))
	return s.pool.UnloadModule(path)
}

func (s *Surface) UnloadAllPlugins() {
	log := s.Logger()
	log.Info("unload all plugins")
	if err := s.pool.UnloadAll(); err != nil {
		log.Warn("modules left loaded", zap.Strings("modules", s.pool.Names()), zap.Error(err))
	}
}

// AddLibrarySearchPath extends the user directories, an invalid directory is logged and skipped.
func (s *Surface) AddLibrarySearchPath(dir string) {
	log := s.Logger()
	if err := chainload.CheckDirectory(dir); err != nil {
		log.Warn("search path does not exist or is not a directory", zap.String("dir", dir))
		return
	}
	log.Info("add search path", zap.String("dir", dir))
	if err := s.pool.AddSearchPath(dir); err != nil {
		log.Warn("search path not added", zap.String("dir", dir), zap.Error(err))
	}
}

// AddLibrarySearchTree adds root and every directory below it containing a file matching pattern.
func (s *Surface) AddLibrarySearchTree(root, pattern string) {
	dirs, err := chainload.SearchTree(root, pattern)
	if err != nil {
		if errors.Is(err, chainload.ErrNotDirectory) {
			s.Logger().Warn("search tree does not exist or is not a directory", zap.String("dir", root))
		} else {
			s.Logger().Warn("search tree walk failed", zap.String("dir", root), zap.Error(err))
		}
	}
	for _, dir := range dirs {
		s.AddLibrarySearchPath(dir)
	}
}

func (s *Surface) GetLoadedLibraryCount() int {
	return s.pool.Count()
}

// GetLoadedLibraryNames calls cb once with a snapshot of the loaded names. A nil cb is ignored.
func (s *Surface) GetLoadedLibraryNames(cb func(names []string)) {
	if cb == nil {
		return
	}
	cb(s.pool.Names())
}
