package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "webhooks.db"))
	t.Setenv("RATE_LIMIT_STORE", "memory")
	t.Setenv("BASE_URL", "https://relay.example.com")
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRegisterResolveCount(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, dir, "register", "https://discord.com/api/webhooks/1/abc")
	require.NoError(t, err)
	relayURL := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(relayURL, "https://relay.example.com/relay/"))
	id := strings.TrimPrefix(relayURL, "https://relay.example.com/relay/")

	out, err = execute(t, dir, "resolve", id)
	require.NoError(t, err)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc\n", out)

	out, err = execute(t, dir, "count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestRegisterInvalidDestination(t *testing.T) {
	dir := setupEnv(t)

	_, err := execute(t, dir, "register", "https://example.com/hook")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid destination url")
}

func TestResolveUnknown(t *testing.T) {
	dir := setupEnv(t)

	_, err := execute(t, dir, "resolve", "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no webhook registered for missing")
}

func TestImportAndValidate(t *testing.T) {
	dir := setupEnv(t)
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
webhooks:
  - id: legacy-1
    url: https://discord.com/api/webhooks/1/a
  - id: legacy-2
    url: https://example.com/not-discord
`), 0o600))

	out, err := execute(t, dir, "validate", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "2 webhook(s) valid")

	out, err = execute(t, dir, "import", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1, skipped 1")
	assert.Contains(t, out, "legacy-2:")

	out, err = execute(t, dir, "resolve", "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, "https://discord.com/api/webhooks/1/a\n", out)

	out, err = execute(t, dir, "import", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0, skipped 2")
}

func TestValidateBrokenSeed(t *testing.T) {
	dir := setupEnv(t)
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("webhooks:\n  - url: https://x\n"), 0o600))

	_, err := execute(t, dir, "validate", seed)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
