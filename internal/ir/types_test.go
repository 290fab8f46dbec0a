package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceHasSemanticField(t *testing.T) {
	ws := &Workspace{
		SemanticFields: []SemanticField{{Name: "Phi", Kind: "scalar"}},
		DefectFields:   []string{"D"},
	}

	assert.True(t, ws.HasSemanticField("Phi"))
	assert.False(t, ws.HasSemanticField("NoSuch"))
	assert.True(t, ws.HasDefectField("D"))
	assert.False(t, ws.HasDefectField("Q"))
}

func TestWorkspaceSemanticFieldNamesPreservesOrder(t *testing.T) {
	ws := &Workspace{
		SemanticFields: []SemanticField{
			{Name: "Phi", Kind: "scalar"},
			{Name: "Psi", Kind: "vector"},
		},
	}

	assert.Equal(t, []string{"Phi", "Psi"}, ws.SemanticFieldNames())
}

func TestOperationArgsCtrl(t *testing.T) {
	op := &Operation{
		Kind:    KindQuantum,
		Op:      "ctrl",
		Gate:    "rx",
		Targets: []string{"q[0]"},
		Angle:   "π/2",
	}

	args := op.Args()
	assert.Equal(t, "rx", args["gate"])
	assert.Equal(t, []string{"q[0]"}, args["targets"])
	assert.Equal(t, "π/2", args["angle"])
	assert.NotContains(t, args, "guard")
}

func TestOperationArgsMeasure(t *testing.T) {
	op := &Operation{
		Kind:    KindQuantum,
		Op:      "measure",
		Targets: []string{"q[0]", "q[1]"},
		Outputs: []string{"m0", "m1"},
	}

	args := op.Args()
	assert.Equal(t, []string{"q[0]", "q[1]"}, args["targets"])
	assert.Equal(t, []string{"m0", "m1"}, args["outputs"])
}

func TestOperationArgsRelax(t *testing.T) {
	op := &Operation{
		Kind:      KindSemantic,
		Op:        "relax",
		RelaxName: "Phi",
		RelaxRate: "0.1",
	}

	args := op.Args()
	assert.Equal(t, "Phi", args["name"])
	assert.Equal(t, "0.1", args["rate"])
}
