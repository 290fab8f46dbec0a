package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squint-run/squint/internal/parser"
)

const calibratedEPR = `
workspace Chip {
  qubits q[4];
  lattice L(2,2) attach q;
  semantic_field Phi: scalar on L;
  defect_field D: defects on L {};
}
kernel K on Chip {
  ctrl rx q[0] angle=π/2 with overlay { coherence_len >= 80ns };
  ctrl cz q[0], q[1] with overlay { coherence_len >= 120ns, path_len <= 2 };
  measure q[0] -> m0;
  measure q[1] -> m1;
  return { m0 ⊕ m1 };
}
`

func TestEmitCalibratedEPRTimelineOrder(t *testing.T) {
	prog, err := parser.Parse(calibratedEPR)
	require.NoError(t, err)

	res, err := Emit(prog, false)
	require.NoError(t, err)

	require.True(t, len(res.Timeline) >= 4)
	assert.Equal(t, "wait", res.Timeline[0].Op)
	assert.Equal(t, 0, res.Timeline[0].T)
	assert.Equal(t, 80, res.Timeline[0].Ns)

	assert.Equal(t, "rx", res.Timeline[1].Op)
	assert.Equal(t, 80, res.Timeline[1].T)

	assert.Equal(t, "wait", res.Timeline[2].Op)
	assert.Equal(t, 80, res.Timeline[2].T)
	assert.Equal(t, 120, res.Timeline[2].Ns)

	assert.Equal(t, "cz", res.Timeline[3].Op)
	assert.Equal(t, 200, res.Timeline[3].T)

	assert.Contains(t, res.ControlText, "play('rx', q[0], angle=π/2)")
	assert.Contains(t, res.ControlText, "play('cz', q[0], q[1])")
}

func TestEmitFloquetExpansion(t *testing.T) {
	src := `
workspace Chip { qubits q[2]; lattice L(2,1) attach q; }
kernel K on Chip {
  ctrl cz q[0],q[1] with overlay { coherence_len >= 120ns, floquet_period=50ns, cycles=8, duty=0.4 };
}`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	res, err := Emit(prog, false)
	require.NoError(t, err)

	assert.Contains(t, res.ControlText, "# floquet: period=50ns, cycles=8, duty=0.4")

	var floquetGates, waits int
	for _, e := range res.Timeline {
		if e.Op == "cz@floquet" {
			floquetGates++
		}
		if e.Op == "wait" && e.Cycle > 0 {
			waits++
		}
	}
	assert.Equal(t, 8, floquetGates)
	assert.Equal(t, 8, waits)
}

func TestEmitFloquetMalformedCyclesFallsBackToSinglePulse(t *testing.T) {
	src := `workspace Chip { qubits q[2]; lattice L(2,1) attach q; }
kernel K on Chip {
  ctrl cz q[0],q[1] with overlay { floquet_period=50ns, cycles=abc, duty=0.4 };
}`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	res, err := Emit(prog, false)
	require.NoError(t, err)

	assert.NotContains(t, res.ControlText, "# floquet:")
	assert.Contains(t, res.ControlText, "play('cz', q[0], q[1])")

	var floquetGates int
	for _, e := range res.Timeline {
		if e.Op == "cz@floquet" {
			floquetGates++
		}
	}
	assert.Equal(t, 0, floquetGates)
	require.Len(t, res.Timeline, 1)
	assert.Equal(t, "cz", res.Timeline[0].Op)

	found := false
	for _, d := range res.Diagnostics {
		if d.Key == "floquet" {
			found = true
			assert.Contains(t, d.Message, "malformed Floquet parameters")
		}
	}
	assert.True(t, found, "expected a floquet diagnostic")
}

func TestEmitUnsupportedGatePassthrough(t *testing.T) {
	src := `workspace Chip { qubits q[2]; lattice L(2,1) attach q; }
kernel K on Chip { ctrl swap q[0], q[1]; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	res, err := Emit(prog, false)
	require.NoError(t, err)
	assert.Contains(t, res.ControlText, "# unsupported gate: swap")
	require.Len(t, res.Timeline, 1)
	assert.Equal(t, "swap", res.Timeline[0].Op)
	assert.Equal(t, []string{"q[0]", "q[1]"}, res.Timeline[0].Targets)
}

func TestEmitStrictOverlayErrorAbortsWithNoPartialOutput(t *testing.T) {
	src := `workspace Chip { qubits q[4]; lattice L(2,2) attach q; }
kernel K on Chip { ctrl cz q[0], q[3] with overlay { path_len <= 0 }; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	res, err := Emit(prog, true)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "path_len ≤ 0 violated (distance=2)")
}

func TestEmitGuardSuffix(t *testing.T) {
	src := `workspace Chip { qubits q[1]; lattice L(1,1) attach q; }
kernel K on Chip { ctrl x q[0] unless m0 == 1; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	res, err := Emit(prog, false)
	require.NoError(t, err)
	assert.Contains(t, res.ControlText, "# guarded_by: m0 == 1")
}

func TestEmitSemanticAndBraidComments(t *testing.T) {
	src := `workspace Chip { qubits q[1]; lattice L(1,1) attach q; semantic_field Phi: scalar on L; defect_field D: defects on L {}; }
kernel K on Chip {
  initialize Phi = constant(0.4);
  nucleate D at {(0,0),(1,1)};
}`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	res, err := Emit(prog, false)
	require.NoError(t, err)
	assert.Contains(t, res.ControlText, "# semantic: initialize Phi = constant(0.4)")
	assert.Contains(t, res.ControlText, "# braid: nucleate D at {(0,0),(1,1)}")

	for _, e := range res.Timeline {
		assert.Equal(t, 0, e.T)
	}
}
