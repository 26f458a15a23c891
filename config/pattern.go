package config

import "runtime"

// DefaultPattern matches shared libraries of the running platform.
func DefaultPattern() string {
	switch runtime.GOOS {
	case "windows":
		return "*.dll"
	case "darwin", "ios":
		return "*.dylib"
	default:
		return "*.so"
	}
}
