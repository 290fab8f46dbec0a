package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validateFixture = `
workspace Chip {
  qubits q[4];
  lattice L(2,2) attach q;
}
kernel K on Chip {
  ctrl cz q[0], q[1] with overlay { path_len <= 2 };
}
`

const validateFixtureViolation = `
workspace Chip {
  qubits q[4];
  lattice L(2,2) attach q;
}
kernel K on Chip {
  ctrl cz q[0], q[3] with overlay { path_len <= 1 };
}
`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "case.squint")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestValidateSatisfiedOverlaysExitsSuccess(t *testing.T) {
	path := writeFixture(t, validateFixture)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var result ValidateResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "Chip", result.Workspace)
	assert.Equal(t, "K", result.Kernel)
	assert.Equal(t, 1, result.Operations)
}

func TestValidateStrictViolationReturnsOverlayExitCode(t *testing.T) {
	path := writeFixture(t, validateFixtureViolation)

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--strict-overlays"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitOverlayErr, GetExitCode(err))
}

func TestValidateNonStrictViolationWarnsButSucceeds(t *testing.T) {
	path := writeFixture(t, validateFixtureViolation)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "path_len")
}

func TestValidateMissingFileReturnsIOExitCode(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.squint")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitIOError, GetExitCode(err))
}
