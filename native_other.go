//go:build !(darwin || freebsd || linux || windows)

package chainload

// NativeLoader refuses every request on platforms without a dynamic linker binding.
type NativeLoader struct{}

func NewNativeLoader() *NativeLoader { return new(NativeLoader) }

func (*NativeLoader) Open(string, Strategy) (Library, error) { return nil, ErrUnsupported }
func (*NativeLoader) AddSearchPath(dir string) error {
	if err := CheckDirectory(dir); err != nil {
		return err
	}
	return ErrUnsupported
}
func (*NativeLoader) SearchPaths() []string { return nil }
func (*NativeLoader) Close() error          { return nil }
