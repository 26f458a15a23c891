// Command wrapper is the native add-on loaded by the host runtime, build with:
//
//	go build -buildmode=c-shared -o UnityNativePluginWrapper.so ./cmd/wrapper
//
// Set CHAINLOAD_CONFIG to a toml file to add search paths and preload modules once the host loads the wrapper.
package main

/*
#include <stdbool.h>
#include <stdlib.h>

typedef void (*StringArrayDelegate)(const char** values, int count);

void callStringArray(StringArrayDelegate cb, const char** values, int count);
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"github.com/ZenLiuCN/chainload"
	"github.com/ZenLiuCN/chainload/config"
	"github.com/ZenLiuCN/chainload/export"
	"github.com/ZenLiuCN/chainload/host"
	"go.uber.org/zap"
)

var settings = sync.OnceValues(func() (*config.Config, error) {
	if p := os.Getenv("CHAINLOAD_CONFIG"); p != "" {
		return config.Load(p)
	}
	return config.Default(), nil
})

var surface = sync.OnceValue(func() *export.Surface {
	cfg, err := settings()
	if err != nil {
		cfg = config.Default()
	}
	var loader chainload.Loader = &chainload.Mux{Native: chainload.NewNativeLoader()}
	if cfg.Objects {
		if m, err := chainload.NewMux(); err == nil {
			loader = m
		}
	}
	return export.New(loader, export.WithLevel(cfg.Level()))
})

func guard() {
	if r := recover(); r != nil {
		zap.L().Error("recovered at the host boundary", zap.Any("panic", r))
	}
}

//export UnityPluginLoad
func UnityPluginLoad(unityInterfaces unsafe.Pointer) {
	defer guard()
	s := surface()
	s.HostLoaded(host.Interfaces(unityInterfaces))
	zap.ReplaceGlobals(s.Logger())
	cfg, err := settings()
	if err != nil {
		s.Logger().Warn("CHAINLOAD_CONFIG not applied", zap.Error(err))
		return
	}
	config.Apply(cfg, s)
}

//export UnityPluginUnload
func UnityPluginUnload() {
	defer guard()
	surface().HostUnloading()
}

//export UnloadAllPlugins
func UnloadAllPlugins() {
	defer guard()
	surface().UnloadAllPlugins()
}

//export LoadPlugin
func LoadPlugin(libraryNamePath *C.char) (ok C.bool) {
	defer guard()
	if libraryNamePath == nil {
		return false
	}
	return C.bool(surface().LoadPlugin(C.GoString(libraryNamePath)))
}

//export UnloadPlugin
func UnloadPlugin(libraryNamePath *C.char) (ok C.bool) {
	defer guard()
	if libraryNamePath == nil {
		return true
	}
	return C.bool(surface().UnloadPlugin(C.GoString(libraryNamePath)))
}

//export AddLibrarySearchPath
func AddLibrarySearchPath(librarySearchPath *C.char) {
	defer guard()
	if librarySearchPath == nil {
		return
	}
	surface().AddLibrarySearchPath(C.GoString(librarySearchPath))
}

//export AddLibrarySearchTree
func AddLibrarySearchTree(root, pattern *C.char) {
	defer guard()
	if root == nil || pattern == nil {
		return
	}
	surface().AddLibrarySearchTree(C.GoString(root), C.GoString(pattern))
}

//export GetLoadedLibraryCount
func GetLoadedLibraryCount() C.int {
	defer guard()
	return C.int(surface().GetLoadedLibraryCount())
}

//export GetLoadedLibraryNames
func GetLoadedLibraryNames(callback C.StringArrayDelegate) {
	defer guard()
	if callback == nil {
		return
	}
	surface().GetLoadedLibraryNames(func(names []string) {
		n := len(names)
		if n == 0 {
			C.callStringArray(callback, nil, 0)
			return
		}
		arr := (**C.char)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
		values := unsafe.Slice(arr, n)
		for i, name := range names {
			values[i] = C.CString(name)
		}
		defer func() {
			for _, v := range values {
				C.free(unsafe.Pointer(v))
			}
			C.free(unsafe.Pointer(arr))
		}()
		C.callStringArray(callback, arr, C.int(n))
	})
}

func main() {}
