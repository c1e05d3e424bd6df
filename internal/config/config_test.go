package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftctl/internal/args"
)

func envFrom(m map[string]string) args.Env {
	return func(k string) string { return m[k] }
}

var noEnv = envFrom(nil)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestLoadFromBuiltinDefaults(t *testing.T) {
	snap, err := LoadFrom(t.TempDir(), "", noEnv)
	require.NoError(t, err)
	assert.Equal(t, "cluster", snap.Host)
	assert.Equal(t, "llm-finetune", snap.RemoteDir)
	assert.Equal(t, "data/train.jsonl", snap.TrainData)
	assert.Equal(t, "predictions", snap.OutputName)
	assert.True(t, filepath.IsAbs(snap.LocalDir))
	assert.Equal(t, filepath.Join(snap.LocalDir, "saves"), snap.OutputRoot)
}

func TestLoadFromConfigFileAndProfile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
defaults:
  remote: me@login
  wandb_project: arxiv-abstract
profiles:
  banking:
    remote_dir: banking77
    output_name: banking77_labels
`)

	snap, err := LoadFrom(dir, "", noEnv)
	require.NoError(t, err)
	assert.Equal(t, "me@login", snap.Host)
	assert.Equal(t, "arxiv-abstract", snap.WandbProject)
	assert.Equal(t, "llm-finetune", snap.RemoteDir)

	snap, err = LoadFrom(dir, "banking", noEnv)
	require.NoError(t, err)
	assert.Equal(t, "me@login", snap.Host, "profile inherits defaults")
	assert.Equal(t, "banking77", snap.RemoteDir)
	assert.Equal(t, "banking77_labels", snap.OutputName)
}

func TestLoadFromUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "defaults:\n  remote: me@login\n")

	_, err := LoadFrom(dir, "nope", noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "nope" not found`)
}

func TestEnvRemoteBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "defaults:\n  remote: me@login\n")

	snap, err := LoadFrom(dir, "", envFrom(map[string]string{EnvRemote: "me@other"}))
	require.NoError(t, err)
	assert.Equal(t, "me@other", snap.Host)
}

func TestRequireAPIKey(t *testing.T) {
	snap, err := LoadFrom(t.TempDir(), "", envFrom(map[string]string{EnvWandbAPIKey: "k-123"}))
	require.NoError(t, err)
	key, err := snap.RequireAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "k-123", key)

	snap, err = LoadFrom(t.TempDir(), "", noEnv)
	require.NoError(t, err)
	_, err = snap.RequireAPIKey()
	var credErr *CredentialMissingError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, EnvWandbAPIKey, credErr.Var)
	assert.Contains(t, err.Error(), "wandb.ai/authorize")
}
