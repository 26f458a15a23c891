package chainload

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Report describes the lifecycle hooks a library exports.
type Report struct {
	Path      string
	Resolved  string // path the library was acquired from
	HasLoad   bool
	HasUnload bool
}

// Plugin reports whether the library would be chain loaded with hooks.
func (r Report) Plugin() bool { return r.HasLoad && r.HasUnload }

func (r Report) String() string {
	s := strings.Builder{}
	s.WriteString(r.Path)
	if r.Resolved != r.Path {
		s.WriteString(fmt.Sprintf(" (%s)", r.Resolved))
	}
	s.WriteString(fmt.Sprintf("\n\t%s: %t\n\t%s: %t\n\tplugin: %t\n", SymbolLoad, r.HasLoad, SymbolUnload, r.HasUnload, r.Plugin()))
	return s.String()
}

// Inspect acquires path like a Module does, reports the exported hooks and releases it again without calling any hook.
func Inspect(l Loader, path string) (r Report, err error) {
	r.Path = path
	var lib Library
	if lib, err = Open(l, path); err != nil {
		return
	}
	defer func() {
		err = multierr.Append(err, lib.Close())
	}()
	r.Resolved = lib.Name()
	_, r.HasLoad = lib.Lookup(SymbolLoad)
	_, r.HasUnload = lib.Lookup(SymbolUnload)
	return
}

// SearchTree collects root and every directory below it holding a file that matches pattern.
func SearchTree(root, pattern string) (dirs []string, err error) {
	if err = CheckDirectory(root); err != nil {
		return
	}
	if _, err = filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("search pattern %q: %w", pattern, err)
	}
	seen := map[string]bool{root: true}
	dirs = append(dirs, root)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
		return nil
	})
	return
}
