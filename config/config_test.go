package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZenLiuCN/fn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func write(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "chainload.toml")
	fn.Panic(os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	cfg, err := Load(write(t, `
search_paths = [" /opt/plugins ", ""]
search_trees = ["/opt/game/Assets"]
search_pattern = "*.dll"
modules = ["libtest.so", "libother.so"]
log_level = "warn"
objects = true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/plugins"}, cfg.SearchPaths)
	assert.Equal(t, []string{"/opt/game/Assets"}, cfg.SearchTrees)
	assert.Equal(t, "*.dll", cfg.SearchPattern)
	assert.Equal(t, []string{"libtest.so", "libother.so"}, cfg.Modules)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level())
	assert.True(t, cfg.Objects)
	assert.False(t, cfg.Debug)
}

func TestLoadDefaults(t *testing.T) {
	cfg := fn.Panic1(Load(write(t, `debug = true`)))
	assert.Equal(t, DefaultPattern(), cfg.SearchPattern)
	assert.Empty(t, cfg.Modules)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level())
	assert.Equal(t, zapcore.InfoLevel, Default().Level())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
	_, err = Load(write(t, `log_level = "loud"`))
	assert.ErrorContains(t, err, "log_level")
	_, err = Load(write(t, `unknown = 1`))
	assert.ErrorContains(t, err, "unknown keys")
	_, err = Load(write(t, `modules = [`))
	assert.Error(t, err)
}

type target struct {
	calls []string
	fail  map[string]bool
}

func (t *target) AddLibrarySearchPath(dir string) { t.calls = append(t.calls, "path "+dir) }
func (t *target) AddLibrarySearchTree(root, pattern string) {
	t.calls = append(t.calls, "tree "+root+" "+pattern)
}
func (t *target) LoadPlugin(path string) bool {
	t.calls = append(t.calls, "load "+path)
	return !t.fail[path]
}

func TestApply(t *testing.T) {
	cfg := &Config{
		SearchPaths:   []string{"/a"},
		SearchTrees:   []string{"/b"},
		SearchPattern: "*.so",
		Modules:       []string{"x", "y"},
	}
	tg := &target{fail: map[string]bool{"y": true}}
	failed := Apply(cfg, tg)
	assert.Equal(t, []string{"y"}, failed)
	assert.Equal(t, []string{"path /a", "tree /b *.so", "load x", "load y"}, tg.calls)
}
