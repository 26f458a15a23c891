// Package config reads the toml settings shared by the wrapper and the chainload cli.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ZenLiuCN/fn"
	"go.uber.org/zap/zapcore"
)

// Config of a chain loading session.
type Config struct {
	SearchPaths   []string
	SearchTrees   []string
	SearchPattern string
	Modules       []string // loaded in order once search paths are applied
	LogLevel      zapcore.Level
	Debug         bool
	Objects       bool // link go object files besides native libraries
}

type fileConfig struct {
	SearchPaths   []string `toml:"search_paths"`
	SearchTrees   []string `toml:"search_trees"`
	SearchPattern string   `toml:"search_pattern"`
	Modules       []string `toml:"modules"`
	LogLevel      string   `toml:"log_level"`
	Debug         bool     `toml:"debug"`
	Objects       bool     `toml:"objects"`
}

// Default search pattern matches the platform library extension.
func Default() *Config {
	return &Config{
		SearchPattern: DefaultPattern(),
		LogLevel:      zapcore.InfoLevel,
	}
}

// Level is LogLevel, lowered to debug when Debug is set.
func (c *Config) Level() zapcore.Level {
	if c.Debug && c.LogLevel > zapcore.DebugLevel {
		return zapcore.DebugLevel
	}
	return c.LogLevel
}

// Load reads path over Default, only keys present in the file are applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	defer fn.IgnoreClose(f)
	cfg := Default()
	var raw fileConfig
	meta, err := toml.NewDecoder(f).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	if meta.IsDefined("search_paths") {
		cfg.SearchPaths = normalize(raw.SearchPaths)
	}
	if meta.IsDefined("search_trees") {
		cfg.SearchTrees = normalize(raw.SearchTrees)
	}
	if meta.IsDefined("search_pattern") {
		if p := strings.TrimSpace(raw.SearchPattern); p != "" {
			cfg.SearchPattern = p
		}
	}
	if meta.IsDefined("modules") {
		cfg.Modules = normalize(raw.Modules)
	}
	if meta.IsDefined("log_level") {
		lv, err := zapcore.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lv
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("objects") {
		cfg.Objects = raw.Objects
	}
	return cfg, nil
}

// normalize trims entries and drops empty ones.
func normalize(in []string) (out []string) {
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return
}

// Target receives a Config, implemented by export.Surface.
type Target interface {
	AddLibrarySearchPath(dir string)
	AddLibrarySearchTree(root, pattern string)
	LoadPlugin(path string) bool
}

// Apply adds search paths, then search trees, then loads the modules. It returns the modules that failed to load.
func Apply(c *Config, t Target) (failed []string) {
	for _, dir := range c.SearchPaths {
		t.AddLibrarySearchPath(dir)
	}
	for _, root := range c.SearchTrees {
		t.AddLibrarySearchTree(root, c.SearchPattern)
	}
	for _, m := range c.Modules {
		if !t.LoadPlugin(m) {
			failed = append(failed, m)
		}
	}
	return
}
