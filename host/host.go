// Package host binds the host runtime collaborators: the opaque interface registry handed to UnityPluginLoad and
// its optional log.
package host

import (
	"runtime"
	"unsafe"

	"github.com/ZenLiuCN/chainload"
	"github.com/ebitengine/purego"
)

type (
	// Level of a host log message, values follow UnityLogType.
	Level int32
	// Sink is the host side log. It may be absent, callers check for nil.
	Sink interface {
		Log(level Level, msg string)
	}
	// Interfaces is an IUnityInterfaces pointer as received by UnityPluginLoad.
	Interfaces uintptr
	// unityLog is an IUnityLog pointer.
	unityLog uintptr
)

const (
	LevelError     Level = 0
	LevelWarning   Level = 2
	LevelLog       Level = 3
	LevelException Level = 4
)

// IUnityLog interface guid.
const (
	logGUIDHigh uint64 = 0x9E7507FA5B444D5D
	logGUIDLow  uint64 = 0x92FB979515EA83FC
)

// slot of GetInterfaceSplit in the IUnityInterfaces function table:
// GetInterface, RegisterInterface, GetInterfaceSplit, RegisterInterfaceSplit.
const getInterfaceSplit = 2

// Context is the host context forwarded to load hooks.
func (i Interfaces) Context() chainload.HostContext {
	return chainload.HostContext(i)
}

// Log fetches the host log, nil if the host has none.
func (i Interfaces) Log() Sink {
	p := i.get(logGUIDHigh, logGUIDLow)
	if p == 0 {
		return nil
	}
	return unityLog(p)
}

func (i Interfaces) get(high, low uint64) uintptr {
	if i == 0 {
		return 0
	}
	fn := slot(uintptr(i), getInterfaceSplit)
	if fn == 0 {
		return 0
	}
	r, _, _ := purego.SyscallN(fn, uintptr(high), uintptr(low))
	return r
}

func slot(table uintptr, n int) uintptr {
	return *(*uintptr)(unsafe.Add(unsafe.Pointer(table), uintptr(n)*unsafe.Sizeof(uintptr(0))))
}

// Log forwards to IUnityLog::Log(type, message, fileName, fileLine).
func (l unityLog) Log(level Level, msg string) {
	fn := slot(uintptr(l), 0)
	if fn == 0 {
		return
	}
	m := cString(msg)
	f := cString("chainload")
	purego.SyscallN(fn, uintptr(level), uintptr(unsafe.Pointer(&m[0])), uintptr(unsafe.Pointer(&f[0])), 0)
	runtime.KeepAlive(m)
	runtime.KeepAlive(f)
}

func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
