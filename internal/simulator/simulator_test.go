package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squint-run/squint/internal/parser"
)

func TestSimulateCalibratedEPRTEff(t *testing.T) {
	src := `
workspace Chip {
  qubits q[4];
  lattice L(2,2) attach q;
  semantic_field Phi: scalar on L;
  defect_field D: defects on L {};
}
kernel K on Chip {
  initialize Phi = constant(0.4);
  nucleate D at {(0,0),(1,1)};
  observe T_eff into Tobs with corrections {defects=D, field=Phi};
}`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	trace := Simulate(prog)
	require.NotNil(t, trace.LatestObs)

	// T_eff = round(0.4 + 0.001*2 + 0.01*0.4, 4)
	assert.InDelta(t, 0.4062, trace.LatestObs.TEff, 1e-9)
	assert.Equal(t, "Tobs", trace.LatestObs.Into)
	assert.Equal(t, [][2]int{{0, 0}, {1, 1}}, trace.Defects["D"].Coords)
	assert.Equal(t, 0.01, trace.Defects["D"].Density)
}

func TestSimulateDeterministic(t *testing.T) {
	src := `workspace Chip { qubits q[2]; lattice L(2,1) attach q; }
kernel K on Chip { measure q[0] -> m0; measure q[1] -> m1; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	t1 := Simulate(prog)
	t2 := Simulate(prog)
	assert.Equal(t, t1, t2)
	assert.Equal(t, 0, t1.Measurements["m0"])
	assert.Equal(t, 1, t1.Measurements["m1"])
}

func TestSimulateHysteresisTrace(t *testing.T) {
	src := `workspace Chip { qubits q[1]; lattice L(1,1) attach q; defect_field D: defects on L {}; }
kernel K on Chip { hysteresis_trace(D, window=3); }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	trace := Simulate(prog)
	require.Len(t, trace.Events, 1)
	ev := trace.Events[0]
	assert.Equal(t, "hysteresis", ev["op"])
	assert.Equal(t, []float64{0.0009, 0.0010, 0.0011}, ev["trace"])
}

func TestSimulateQuenchClampsAtZero(t *testing.T) {
	src := `workspace Chip { qubits q[1]; lattice L(1,1) attach q; defect_field D: defects on L {}; }
kernel K on Chip {
  nucleate D at {(0,0)};
  quench dQ = inject(D, amount=1.0);
}`
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	trace := Simulate(prog)
	assert.Equal(t, 0.0, trace.Defects["D"].Density)
}
