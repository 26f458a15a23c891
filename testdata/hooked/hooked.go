package main

// Built by object_test.go with go tool compile -p main.

var (
	Host    uintptr
	Loaded  int
	Removed int
)

func UnityPluginLoad(ctx uintptr) {
	Host = ctx
	Loaded++
}

func UnityPluginUnload() {
	Removed++
}
