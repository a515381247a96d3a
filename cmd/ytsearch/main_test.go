package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	root, a := newRootCmd()
	t.Cleanup(a.close)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoot_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "--config")
}

func TestRoot_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "0.1.0")
}

func TestSearch_RequiresTerm(t *testing.T) {
	_, err := execute(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestServe_RejectsArgs(t *testing.T) {
	_, err := execute(t, "serve", "extra")
	require.Error(t, err)
}

func TestServe_InvalidConfig(t *testing.T) {
	_, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestServe_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "serve", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.yaml")
}
