package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/docket"
)

func run(t *testing.T, ctx context.Context, args ...string) ([]record, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)

	var records []record
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var r record
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		records = append(records, r)
	}
	return records, err
}

func TestDocumentCommands(t *testing.T) {
	ctx := context.Background()
	store := t.TempDir()
	cmd := func(sub string, args ...string) []string {
		return append([]string{sub, "--store", store, "-c", "users"}, args...)
	}

	out, err := run(t, ctx, cmd("add", "--id", "ada", `{name: Ada, age: 36, address: {city: London}}`)...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ada", out[0].ID)

	out, err = run(t, ctx, cmd("add", `{name: Grace, age: 45}`)...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].ID)

	out, err = run(t, ctx, cmd("get", "ada")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ada", out[0].Data["name"])

	_, err = run(t, ctx, cmd("update", "ada", `{age: 37, "address.city": Paris}`)...)
	require.NoError(t, err)

	out, err = run(t, ctx, cmd("get", "ada")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.EqualValues(t, 37, out[0].Data["age"])
	assert.Equal(t, map[string]any{"city": "Paris"}, out[0].Data["address"])

	out, err = run(t, ctx, cmd("fetch", "--where", "age > 40")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Grace", out[0].Data["name"])

	out, err = run(t, ctx, cmd("fetch", "--order", "age:desc", "--limit", "1")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Grace", out[0].Data["name"])

	out, err = run(t, ctx, cmd("fetch", "--order", "age", "--start-after", "37")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Grace", out[0].Data["name"])

	_, err = run(t, ctx, cmd("delete", "ada")...)
	require.NoError(t, err)

	out, err = run(t, ctx, cmd("exists", "ada")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Exists)
	assert.False(t, *out[0].Exists)

	out, err = run(t, ctx, cmd("get", "ada")...)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Exists)
	assert.False(t, *out[0].Exists)

	_, err = run(t, ctx, cmd("update", "ada", `{age: 1}`)...)
	assert.Error(t, err, "updating a missing document fails")
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := run(t, ctx, "get", "--store", dir, "x")
	assert.ErrorContains(t, err, "no collection")

	_, err = run(t, ctx, "add", "--store", dir, "-c", "users", "not a mapping")
	assert.Error(t, err)

	_, err = run(t, ctx, "add", "--store", dir, "-c", "users", "--read-only", "{a: 1}")
	assert.Error(t, err)

	_, err = run(t, ctx, "fetch", "--store", dir, "-c", "users", "--where", "age ~ 1")
	assert.Error(t, err)

	_, err = run(t, ctx, "watch", "--store", dir, "-c", "users", "--kind", "renamed")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	config := filepath.Join(root, "docket.yaml")
	require.NoError(t, os.WriteFile(config, []byte("store: data\ncollection: notes\nfs:\n  format: yaml\n"), 0o644))

	_, err := run(t, ctx, "--config", config, "add", "--id", "n1", "{text: hello}")
	require.NoError(t, err)

	// Relative stores resolve against the config file.
	_, err = os.Stat(filepath.Join(root, "data", "notes", "n1.yaml"))
	assert.NoError(t, err)

	out, err := run(t, ctx, "--config", config, "get", "n1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Data["text"])
}

func TestWatchCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, context.Background(), "add", "--store", dir, "-c", "orders", "--id", "o1", "{status: open}")
	require.NoError(t, err)
	_, err = run(t, context.Background(), "add", "--store", dir, "-c", "orders", "--id", "o2", "{status: closed}")
	require.NoError(t, err)

	// The listener runs until the context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	out, err := run(t, ctx, "watch", "--store", dir, "-c", "orders", "--where", "status == open")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "added", out[0].Type)
	assert.Equal(t, "o1", out[0].ID)
	require.NotNil(t, out[0].NewIndex)
	assert.Equal(t, 0, *out[0].NewIndex)
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "docket version "+docket.Version+"\n", out.String())
}
