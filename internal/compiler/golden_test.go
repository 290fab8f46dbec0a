package compiler

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/squint-run/squint/internal/ir"
)

// compileSnapshot is the canonical-JSON shape compared against a golden
// fixture: just enough of a Result to catch a control-text or timeline-shape
// regression, without pinning the full timeline (already covered directly
// in TestCompileCalibratedEPRProducesFullResult).
type compileSnapshot struct {
	Workspace   string `json:"workspace"`
	Kernel      string `json:"kernel"`
	ControlText string `json:"control_text"`
	EventCount  int    `json:"event_count"`
	TimelineLen int    `json:"timeline_len"`
}

func assertCompileGolden(t *testing.T, name string, res *Result) {
	t.Helper()

	snap := compileSnapshot{
		Workspace:   res.Program.Workspace.Name,
		Kernel:      res.Program.Kernel.Name,
		ControlText: res.ControlText,
		EventCount:  len(res.Log.Events),
		TimelineLen: len(res.Log.Timeline),
	}
	data, err := ir.MarshalCanonical(snap)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func TestCompileCalibratedEPRGolden(t *testing.T) {
	res, err := Compile(calibratedEPR, Options{})
	require.NoError(t, err)
	assertCompileGolden(t, "calibrated_epr", res)
}
