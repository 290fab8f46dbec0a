// Package compiler orchestrates the full squint pipeline (spec §2): parse,
// overlay-validate + Floquet-expand + emit in one joint walk, and,
// separately, simulate. It owns the log-JSON shape (spec §6.4) but leaves
// file I/O, flag parsing, and exit-code mapping to internal/cli.
package compiler

import (
	"log/slog"

	"github.com/squint-run/squint/internal/emitter"
	"github.com/squint-run/squint/internal/ir"
	"github.com/squint-run/squint/internal/overlay"
	"github.com/squint-run/squint/internal/parser"
	"github.com/squint-run/squint/internal/simulator"
)

// Options threads the caller's flags into the pipeline (spec §9:
// "the --strict-overlays flag is a single immutable boolean threaded into
// the validator as a parameter — not a process-wide singleton").
type Options struct {
	StrictOverlays bool
	Simulate       bool
	Logger         *slog.Logger
}

// WorkspaceLog mirrors the "workspace" object of the log JSON schema.
type WorkspaceLog struct {
	Name           string            `json:"name"`
	Qubits         int               `json:"qubits"`
	Lattice        [2]int            `json:"lattice"`
	SemanticFields []ir.SemanticField `json:"semantic_fields"`
	DefectFields   []string          `json:"defect_fields"`
}

// EventLog mirrors one entry of the log JSON schema's "events" array.
type EventLog struct {
	Kind    string            `json:"kind"`
	Op      string            `json:"op"`
	Line    int               `json:"line"`
	Args    map[string]any    `json:"args"`
	Overlay map[string]string `json:"overlay,omitempty"`
}

// Log is the full log JSON document (spec §6.4).
type Log struct {
	Workspace WorkspaceLog             `json:"workspace"`
	Kernel    string                   `json:"kernel"`
	Events    []EventLog               `json:"events"`
	Timeline  []emitter.TimelineEntry  `json:"timeline"`
}

// Result bundles every artifact one compile produces.
type Result struct {
	Program     *ir.Program
	ControlText string
	Log         Log
	Trace       *simulator.Trace // nil unless Options.Simulate
	Diagnostics []overlay.Diagnostic
}

// Compile runs the pipeline over source and returns every requested
// artifact, or the first fatal *parser.ParseError / *overlay.OverlayError.
func Compile(source string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prog, err := parser.Parse(source)
	if err != nil {
		logger.Debug("parse failed", "error", err)
		return nil, err
	}
	logger.Debug("parsed program", "workspace", prog.Workspace.Name, "kernel", prog.Kernel.Name, "operations", len(prog.Kernel.Operations))

	emitted, err := emitter.Emit(prog, opts.StrictOverlays)
	if err != nil {
		logger.Debug("emission failed", "error", err)
		return nil, err
	}

	result := &Result{
		Program:     prog,
		ControlText: emitted.ControlText,
		Log:         buildLog(prog, emitted),
		Diagnostics: emitted.Diagnostics,
	}

	if opts.Simulate {
		trace := simulator.Simulate(prog)
		result.Trace = trace
		logger.Debug("simulated", "measurements", len(trace.Measurements))
	}

	return result, nil
}

func buildLog(prog *ir.Program, emitted *emitter.Result) Log {
	events := make([]EventLog, len(prog.Kernel.Operations))
	for i, op := range prog.Kernel.Operations {
		events[i] = EventLog{
			Kind:    string(op.Kind),
			Op:      op.Op,
			Line:    op.Line,
			Args:    op.Args(),
			Overlay: op.Overlay,
		}
	}

	return Log{
		Workspace: WorkspaceLog{
			Name:           prog.Workspace.Name,
			Qubits:         prog.Workspace.Qubits,
			Lattice:        [2]int{prog.Workspace.Lattice.Cols, prog.Workspace.Lattice.Rows},
			SemanticFields: prog.Workspace.SemanticFields,
			DefectFields:   prog.Workspace.DefectFields,
		},
		Kernel:   prog.Kernel.Name,
		Events:   events,
		Timeline: emitted.Timeline,
	}
}
