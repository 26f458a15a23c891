//go:build darwin || freebsd || linux

package main

import (
	"bytes"
	"testing"

	"github.com/ZenLiuCN/chainload/chainloadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"chainload"}, args...)))
	return out.String()
}

func TestLoad(t *testing.T) {
	dir := chainloadtest.BuildTestLib(t)
	out := run(t, "--config", "testdata/chainload.toml", "--search", dir, "load")
	assert.Contains(t, out, "loaded 1 modules")
	assert.Contains(t, out, chainloadtest.TestLib+"\tLOADED_HOOKED")
}

func TestLoadMissing(t *testing.T) {
	app := newApp()
	app.Writer = new(bytes.Buffer)
	err := app.Run([]string{"chainload", "--config", "testdata/chainload.toml", "load"})
	assert.ErrorContains(t, err, "modules failed to load")
}

func TestInspect(t *testing.T) {
	dir := chainloadtest.BuildTestLib(t)
	out := run(t, "--search", dir, "inspect", chainloadtest.TestLib)
	assert.Contains(t, out, "plugin: true")
}
