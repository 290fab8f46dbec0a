// Package emitter implements the joint control-text emitter and timeline
// scheduler (spec §4.E, §4.H): a single left-to-right walk over kernel
// operations that produces both artifacts under one shared monotonic ns
// cursor.
package emitter

import (
	"fmt"
	"strings"

	"github.com/squint-run/squint/internal/floquet"
	"github.com/squint-run/squint/internal/ir"
	"github.com/squint-run/squint/internal/overlay"
)

var supportedGates = map[string]bool{"x": true, "h": true, "rx": true, "cx": true, "cz": true}

// TimelineEntry is one scheduler record (spec §6.4).
type TimelineEntry struct {
	Line    int      `json:"line"`
	T       int      `json:"t"`
	Op      string   `json:"op"`
	Ns      int      `json:"ns,omitempty"`
	Targets []string `json:"targets,omitempty"`
	Outputs []string `json:"outs,omitempty"`
	Cycle   int      `json:"cycle,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}

// Result is the emitter's joint output.
type Result struct {
	ControlText string
	Timeline    []TimelineEntry
	Diagnostics []overlay.Diagnostic
}

type walker struct {
	ws          *ir.Workspace
	strict      bool
	t           int
	lines       []string
	timeline    []TimelineEntry
	diagnostics []overlay.Diagnostic
}

// Emit walks kernel operations and produces control text and a timeline in
// lockstep. On a strict-mode overlay error it returns nil and the fatal
// error: "no partial control text or timeline is emitted" (spec §7).
func Emit(prog *ir.Program, strict bool) (*Result, error) {
	w := &walker{ws: &prog.Workspace, strict: strict}

	for i := range prog.Kernel.Operations {
		op := &prog.Kernel.Operations[i]
		if err := w.emitOp(op); err != nil {
			return nil, err
		}
	}

	return &Result{
		ControlText: strings.Join(w.lines, "\n") + "\n",
		Timeline:    w.timeline,
		Diagnostics: w.diagnostics,
	}, nil
}

func (w *walker) emitOp(op *ir.Operation) error {
	switch op.Kind {
	case ir.KindQuantum:
		if op.Op == "ctrl" {
			return w.emitCtrl(op)
		}
		if op.Op == "measure" {
			w.emitMeasure(op)
			return nil
		}
	case ir.KindSemantic, ir.KindBraid:
		w.emitCommentOp(op)
		return nil
	}
	return nil
}

func (w *walker) emitCtrl(op *ir.Operation) error {
	diags, err := overlay.Validate(op, w.ws, w.strict)
	w.diagnostics = append(w.diagnostics, diags...)
	if err != nil {
		return err
	}

	if wait, ok := coherenceWaitNs(op); ok {
		w.emitWait(op.Line, wait)
	}

	apply, floquetDiag := floquet.Check(op)
	if floquetDiag != nil {
		w.diagnostics = append(w.diagnostics, *floquetDiag)
	}

	if apply {
		w.emitFloquetTrain(op)
	} else {
		w.emitSingleGate(op)
	}
	return nil
}

func coherenceWaitNs(op *ir.Operation) (int, bool) {
	v, ok := op.Overlay["coherence_len"]
	if !ok {
		return 0, false
	}
	v = strings.TrimPrefix(v, ">=")
	v = strings.TrimSuffix(strings.ToLower(v), "ns")
	var ns int
	if _, err := fmt.Sscanf(v, "%d", &ns); err != nil {
		return 0, false
	}
	return ns, true
}

func (w *walker) emitWait(line, ns int) {
	w.lines = append(w.lines, fmt.Sprintf("wait(%d)", ns))
	w.timeline = append(w.timeline, TimelineEntry{Line: line, T: w.t, Op: "wait", Ns: ns})
	w.t += ns
}

func (w *walker) emitFloquetTrain(op *ir.Operation) {
	sched := floquet.Expand(op)
	w.lines = append(w.lines, fmt.Sprintf("# floquet: period=%dns, cycles=%d, duty=%v, phase_step=%s",
		sched.PeriodNs, sched.Cycles, sched.Duty, sched.PhaseStep))

	for c := 1; c <= sched.Cycles; c++ {
		w.emitGateLine(op)
		w.timeline = append(w.timeline, TimelineEntry{
			Line: op.Line, T: w.t, Op: op.Gate + "@floquet", Cycle: c, Targets: op.Targets,
		})
		w.lines[len(w.lines)-1] += guardSuffix(op)

		w.lines = append(w.lines, fmt.Sprintf("wait(%d)", sched.OffNs))
		w.timeline = append(w.timeline, TimelineEntry{Line: op.Line, T: w.t, Op: "wait", Ns: sched.OffNs, Cycle: c})
		w.t += sched.OffNs
	}
}

func (w *walker) emitSingleGate(op *ir.Operation) {
	w.emitGateLine(op)
	w.lines[len(w.lines)-1] += guardSuffix(op)
	w.timeline = append(w.timeline, TimelineEntry{Line: op.Line, T: w.t, Op: op.Gate, Targets: op.Targets})
}

// emitGateLine appends the play(...) or unsupported-gate comment line for
// op's gate, without any guard suffix (added separately so it also lands on
// the gate line of every Floquet cycle).
func (w *walker) emitGateLine(op *ir.Operation) {
	if !supportedGates[op.Gate] {
		w.lines = append(w.lines, fmt.Sprintf("# unsupported gate: %s", op.Gate))
		return
	}

	switch op.Gate {
	case "rx":
		w.lines = append(w.lines, fmt.Sprintf("play('rx', %s, angle=%s)", op.Targets[0], op.Angle))
	case "x", "h":
		w.lines = append(w.lines, fmt.Sprintf("play('%s', %s)", op.Gate, op.Targets[0]))
	case "cx", "cz":
		w.lines = append(w.lines, fmt.Sprintf("play('%s', %s, %s)", op.Gate, op.Targets[0], op.Targets[1]))
	}
}

func guardSuffix(op *ir.Operation) string {
	if op.Guard == "" {
		return ""
	}
	return fmt.Sprintf("  # guarded_by: %s", op.Guard)
}

func (w *walker) emitMeasure(op *ir.Operation) {
	line := fmt.Sprintf("measure(%s) -> %s", strings.Join(op.Targets, ", "), strings.Join(op.Outputs, ", "))
	w.lines = append(w.lines, line)
	w.timeline = append(w.timeline, TimelineEntry{Line: op.Line, T: w.t, Op: "measure", Targets: op.Targets, Outputs: op.Outputs})
}

func (w *walker) emitCommentOp(op *ir.Operation) {
	tag := "semantic"
	if op.Kind == ir.KindBraid {
		tag = "braid"
	}
	w.lines = append(w.lines, fmt.Sprintf("# %s: %s", tag, formatArgs(op)))
	w.timeline = append(w.timeline, TimelineEntry{Line: op.Line, T: w.t, Op: op.Op, Kind: tag})
}

// formatArgs reconstructs a human-readable rendering of op's arguments for
// the structured comment forms shown in spec §6.3, e.g.
// "initialize Phi = constant(0.4)" or "nucleate D at {(0,0),(1,1)}".
func formatArgs(op *ir.Operation) string {
	switch op.Op {
	case "initialize", "transport":
		return fmt.Sprintf("%s %s = %s", op.Op, op.Name, op.Expr)
	case "relax":
		return fmt.Sprintf("relax %s(rate=%s)", op.RelaxName, op.RelaxRate)
	case "observe":
		s := fmt.Sprintf("observe %s", op.ObserveWhat)
		if op.ObserveInto != "" {
			s += fmt.Sprintf(" into %s", op.ObserveInto)
		}
		if len(op.CorrectionKeys) > 0 {
			pairs := make([]string, len(op.CorrectionKeys))
			for i, k := range op.CorrectionKeys {
				pairs[i] = fmt.Sprintf("%s=%s", k, op.Corrections[k])
			}
			s += fmt.Sprintf(" with corrections {%s}", strings.Join(pairs, ", "))
		}
		return s
	case "hysteresis_trace":
		if op.HasWindow {
			return fmt.Sprintf("hysteresis_trace(%s, window=%d)", op.HystHandle, op.HystWindow)
		}
		return fmt.Sprintf("hysteresis_trace(%s)", op.HystHandle)
	case "quench":
		return fmt.Sprintf("quench %s = inject(%s, amount=%v)", op.QuenchName, op.QuenchHandle, op.QuenchAmount)
	case "return":
		return fmt.Sprintf("return { %s }", op.ReturnSpec)
	case "nucleate", "pin", "anneal", "evolve":
		return fmt.Sprintf("%s %s", op.Op, op.Raw)
	default:
		return op.Op
	}
}
