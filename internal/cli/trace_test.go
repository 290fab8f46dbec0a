package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const traceFixture = `
workspace Chip {
  qubits q[4];
  lattice L(2,2) attach q;
}
kernel K on Chip {
  ctrl rx q[0] angle=π/2 with overlay { coherence_len >= 80ns };
  measure q[0] -> m0;
}
`

func TestTraceTextListsTimelineEntries(t *testing.T) {
	path := writeFixture(t, traceFixture)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Chip.K timeline")
	assert.Contains(t, out, "wait")
	assert.Contains(t, out, "measure")
}

func TestTraceJSONFormat(t *testing.T) {
	path := writeFixture(t, traceFixture)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--out-format", "json"})

	require.NoError(t, cmd.Execute())

	var result TraceResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "Chip", result.Workspace)
	assert.NotEmpty(t, result.Timeline)
}

func TestTraceRejectsInvalidOutFormat(t *testing.T) {
	path := writeFixture(t, traceFixture)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--out-format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitIOError, GetExitCode(err))
}

func TestTraceParseErrorReturnsParseExitCode(t *testing.T) {
	path := writeFixture(t, "not a valid squint program")

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitParseError, GetExitCode(err))
}
