package chainload

import (
	"fmt"
	"maps"
	"slices"
	"unsafe"

	"github.com/pkujhd/goloader"
)

// ObjectLoader links go relocatable object files (.o) and archives (.a) into the running process with [goloader].
//
// Hooks of an object module are go functions in package Package, e.g.:
//
//	func UnityPluginLoad(ctx uintptr)
//	func UnityPluginUnload()
//
// Note: the host executable must be built with a go sdk prepared for goloader.
//
// [goloader]: https://github.com/pkujhd/goloader
type ObjectLoader struct {
	// Package is the import path objects are linked as, default main.
	Package string
	runtime map[string]uintptr
	dirs    []string
}

// NewObjectLoader create an ObjectLoader with the symbols of the host executable registered.
func NewObjectLoader() (*ObjectLoader, error) {
	o := &ObjectLoader{Package: "main", runtime: make(map[string]uintptr)}
	if err := goloader.RegSymbol(o.runtime); err != nil {
		return nil, fmt.Errorf("register host symbols: %w", err)
	}
	return o, nil
}

func (o *ObjectLoader) Open(path string, s Strategy) (Library, error) {
	switch s {
	case StrategyPrimary:
		return o.link(path)
	case StrategyUserDirs:
		return searchDirs(o.dirs, path, o.link)
	default:
		return nil, fmt.Errorf("open %s: unknown %s", path, s)
	}
}

func (o *ObjectLoader) link(path string) (Library, error) {
	pkg := o.Package
	if pkg == "" {
		pkg = "main"
	}
	linker, err := goloader.ReadObj(path, pkg)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	module, err := goloader.Load(linker, maps.Clone(o.runtime))
	if err != nil {
		return nil, fmt.Errorf("link object %s: %w", path, err)
	}
	return &object{name: path, pkg: pkg, module: module}, nil
}

func (o *ObjectLoader) AddSearchPath(dir string) error {
	if err := CheckDirectory(dir); err != nil {
		return err
	}
	if !slices.Contains(o.dirs, dir) {
		o.dirs = append(o.dirs, dir)
	}
	return nil
}

func (o *ObjectLoader) Close() error {
	o.dirs = nil
	return nil
}

type object struct {
	name   string
	pkg    string
	module *goloader.CodeModule
}

func (b *object) Name() string { return b.name }

func (b *object) Lookup(symbol string) (Sym, bool) {
	if b.module == nil {
		return 0, false
	}
	if p, ok := b.module.Syms[b.pkg+"."+symbol]; ok {
		return Sym(p), true
	}
	p, ok := b.module.Syms[qualify(symbol)]
	return Sym(p), ok
}

// Invoke calls go functions of shape func() or func(uintptr).
func (b *object) Invoke(sym Sym, args ...uintptr) {
	switch len(args) {
	case 0:
		as[func()](sym)()
	case 1:
		as[func(uintptr)](sym)(args[0])
	default:
		panic(fmt.Errorf("invoke %s: %d arguments unsupported", b.name, len(args)))
	}
}

func (b *object) Close() error {
	if b.module == nil {
		return ErrReleased
	}
	b.module.Unload()
	b.module = nil
	return nil
}

// as builds a func value of type T around a code address.
func as[T any](code Sym) T {
	p := uintptr(code)
	fv := unsafe.Pointer(&p)
	return *(*T)(unsafe.Pointer(&fv))
}

// ObjectSymbols display symbols inside an object file.
func ObjectSymbols(file, pkg string) ([]string, error) {
	if pkg == "" {
		pkg = "main"
	}
	return goloader.Parse(file, pkg)
}
