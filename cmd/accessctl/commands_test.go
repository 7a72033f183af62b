package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acgh213/promptvault/internal/access"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TIERS_FILE", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidate_DefaultTable(t *testing.T) {
	out, err := execute(t, "", "validate")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "free")
	assert.Contains(t, lines[1], "10%")
	assert.Contains(t, lines[4], "elite")
	assert.Contains(t, lines[4], "100%")
}

func TestValidate_RejectsBadFile(t *testing.T) {
	path := writeFile(t, "tiers.yaml", "tiers:\n  - id: free\n    label: Free\n    preview_percent: 150\n")
	_, err := execute(t, "", "validate", "--tiers", path)

	var schemaErr *access.SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)
}

func TestPreview_Stdin(t *testing.T) {
	out, err := execute(t, "one two three four five six seven eight nine ten",
		"preview", "--as", "architect", "--required", "elite")
	require.NoError(t, err)

	assert.Contains(t, out, "full access: false")
	assert.Contains(t, out, "upgrade: Upgrade to Elite to unlock this content.")
	assert.Contains(t, out, "one two three four"+access.PreviewMarker+access.DefaultUpgradeNotice)
	assert.NotContains(t, out, "five")
}

func TestPreview_FileWithCustomTable(t *testing.T) {
	tiers := writeFile(t, "tiers.yaml", `upgrade_notice: "[Subscribe]"
tiers:
  - id: free
    label: Free
    preview_percent: 50
  - id: pro
    label: Pro
    preview_percent: 100
`)
	body := writeFile(t, "body.md", "alpha beta gamma delta")

	out, err := execute(t, "", "preview", "--tiers", tiers, "--as", "free", "--required", "pro", "--file", body)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha beta"+access.PreviewMarker+"[Subscribe]")
}

func TestPreview_FullAccess(t *testing.T) {
	out, err := execute(t, "whole body", "preview", "--as", "ELITE", "--required", "free")
	require.NoError(t, err)
	assert.Contains(t, out, "full access: true")
	assert.NotContains(t, out, "upgrade:")
	assert.True(t, strings.HasSuffix(out, "---\nwhole body"), "got %q", out)
}

func TestPreview_KeepsBodyBytes(t *testing.T) {
	body := "line one\n\tindented  double  spaced\n"
	out, err := execute(t, body, "preview", "--as", "elite", "--required", "elite")
	require.NoError(t, err)

	_, rendered, found := strings.Cut(out, "---\n")
	require.True(t, found)
	assert.Equal(t, body, rendered)
}

func TestPreview_UnknownTier(t *testing.T) {
	_, err := execute(t, "x", "preview", "--as", "gold", "--required", "free")
	var invalid *access.InvalidTierError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), "--as")
}

func TestCan(t *testing.T) {
	out, err := execute(t, "", "can", "--as", "initiate", "--required", "architect")
	require.NoError(t, err)
	assert.Equal(t, "yes: initiate may read architect content\n", out)

	out, err = execute(t, "", "can", "--as", "free", "--required", "initiate")
	require.NoError(t, err)
	assert.Equal(t, "no: Upgrade to Initiate to unlock this content.\n", out)
}

func TestCan_RequiresFlags(t *testing.T) {
	_, err := execute(t, "", "can", "--as", "free")
	require.Error(t, err)
}
