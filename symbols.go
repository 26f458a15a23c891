package chainload

import (
	"errors"
	"strings"
)

type (
	//Sym is the address of a resolved exported symbol.
	Sym uintptr
	//HostContext is the opaque pointer handed over by the host runtime, forwarded unchanged to load hooks.
	HostContext uintptr
)

const (
	// SymbolLoad is the exported load hook, called with the HostContext right after acquisition.
	SymbolLoad = "UnityPluginLoad"
	// SymbolUnload is the exported unload hook, called without arguments right before release.
	SymbolUnload = "UnityPluginUnload"
)

var (
	// ErrNotDirectory occurs when a search path does not exist or is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrUnsupported occurs when the running platform can not load native libraries.
	ErrUnsupported = errors.New("native libraries unsupported on this platform")
	// ErrNotFound occurs when no acquisition strategy could locate a library.
	ErrNotFound = errors.New("library not found")
	// ErrReleased occurs when a library handle is used after it was closed.
	ErrReleased = errors.New("library already released")
)

// qualify turns a bare symbol into the package qualified name used by go objects.
func qualify(sym string) string {
	if strings.IndexByte(sym, '.') < 0 {
		return "main." + sym
	}
	return sym
}
