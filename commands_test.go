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

// writeCLIConfig creates a config that keeps logs and history inside a temp dir
func writeCLIConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	dbPath = filepath.Join(dir, "history.db")
	configPath = filepath.Join(dir, "config.yaml")
	content := `provider: openai
openai:
  api_key: sk-test-1234567890
  model: gpt-4o
log:
  file: "off"
data:
  history_db: ` + dbPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath, dbPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLIConfig(t *testing.T) {
	path, _ := writeCLIConfig(t)

	out, err := runCLI(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: openai")
	assert.Contains(t, out, "****7890")
	assert.NotContains(t, out, "sk-test-1234567890")

	out, err = runCLI(t, "--config", path, "config", "set", "max_tokens", "2000")
	require.NoError(t, err)
	assert.Equal(t, "max_tokens set in "+path+"\n", out)

	out, err = runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_tokens: 2000")

	_, err = runCLI(t, "--config", path, "config", "set", "max_tokens", "0")
	assert.Error(t, err)
	_, err = runCLI(t, "--config", path, "config", "set", "no_such_key", "1")
	assert.Error(t, err)
}

func TestCLIFlagOverrides(t *testing.T) {
	path, _ := writeCLIConfig(t)

	out, err := runCLI(t, "--config", path, "--provider", "claude", "--model", "claude-x", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: anthropic")
	assert.Contains(t, out, "model: claude-x")

	_, err = runCLI(t, "--config", path, "--provider", "mistral", "config", "show")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestCLIVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "llmterm dev"), out)
}

func TestCLIClassify(t *testing.T) {
	path, _ := writeCLIConfig(t)

	out, err := runCLI(t, "--config", path, "classify", "how", "do", "I", "list", "files?")
	require.NoError(t, err)
	assert.Equal(t, "natural-language\n", out)
}

func TestCLIModels(t *testing.T) {
	path, _ := writeCLIConfig(t)

	out, err := runCLI(t, "--config", path, "--provider", "openai", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "OpenAI (built-in):")
	assert.Contains(t, out, "* gpt-4o\n")
	assert.NotContains(t, out, "Claude")
}

func TestCLIHistory(t *testing.T) {
	path, dbPath := writeCLIConfig(t)

	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.AppendHistory(ctx, "s1", "ls -la", KindCommand))
	require.NoError(t, store.AppendHistory(ctx, "s1", "what is a pipe", KindNaturalLanguage))
	require.NoError(t, store.Close())

	out, err := runCLI(t, "--config", path, "history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "natural-language")
	assert.Contains(t, out, "what is a pipe")
	assert.NotContains(t, out, "ls -la")

	out, err = runCLI(t, "--config", path, "history", "--clear")
	require.NoError(t, err)
	assert.Equal(t, "History cleared.\n", out)

	out, err = runCLI(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Empty(t, out)
}
