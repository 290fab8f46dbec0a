package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compileFixture = `
workspace Chip {
  qubits q[4];
  lattice L(2,2) attach q;
}
kernel K on Chip {
  ctrl rx q[0] angle=π/2 with overlay { coherence_len >= 80ns };
  measure q[0] -> m0;
}
`

func newCompileCmd(t *testing.T, opts *CompileOptions) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{
		Use:  "compile",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}
	cmd.SetOut(buf)
	return cmd, buf
}

func TestRunCompileWritesControlFileAndJSONSummary(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "case.squint")
	require.NoError(t, os.WriteFile(src, []byte(compileFixture), 0o644))

	opts := &CompileOptions{RootOptions: &RootOptions{Format: "json"}}
	cmd, buf := newCompileCmd(t, opts)
	cmd.SetArgs([]string{src})

	require.NoError(t, cmd.Execute())

	var summary CompileSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	assert.Equal(t, "Chip", summary.Workspace)
	assert.Equal(t, "K", summary.Kernel)
	assert.FileExists(t, summary.ControlPath)

	data, err := os.ReadFile(summary.ControlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wait(80)")
	assert.Contains(t, string(data), "measure(q[0]) -> m0")
}

func TestRunCompileParseErrorExitsWithParseCode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "case.squint")
	require.NoError(t, os.WriteFile(src, []byte("not a valid squint program"), 0o644))

	opts := &CompileOptions{RootOptions: &RootOptions{Format: "text"}}
	cmd, _ := newCompileCmd(t, opts)
	cmd.SetArgs([]string{src})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitParseError, GetExitCode(err))
}

func TestRunCompileRecordsSessionWhenDatabaseSet(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "case.squint")
	require.NoError(t, os.WriteFile(src, []byte(compileFixture), 0o644))
	dbPath := filepath.Join(dir, "sessions.db")

	opts := &CompileOptions{RootOptions: &RootOptions{Format: "text"}, Database: dbPath}
	cmd, _ := newCompileCmd(t, opts)
	cmd.SetArgs([]string{src})

	require.NoError(t, cmd.Execute())
	assert.FileExists(t, dbPath)
}
