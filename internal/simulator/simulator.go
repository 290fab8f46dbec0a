// Package simulator implements the deterministic toy state machine over the
// scalar semantic field Phi and the defect population D (spec §4.I). It is
// pure: the same *ir.Program always produces byte-identical output.
package simulator

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/squint-run/squint/internal/ir"
)

// FieldState is the simulated state of a scalar semantic field.
type FieldState struct {
	Base float64 `json:"base"`
}

// DefectState is the simulated state of a defect population.
type DefectState struct {
	Coords  [][2]int `json:"coords"`
	Density float64  `json:"density"`
	Phase   float64  `json:"phase"`
}

// Observation is the record left by the most recent observe op.
type Observation struct {
	TEff        float64 `json:"T_eff"`
	Into        string  `json:"into"`
	Base        float64 `json:"base"`
	DefectsTerm float64 `json:"defects_term"`
	FieldTerm   float64 `json:"field_term"`
}

// Trace is the fixed-shape simulation output (spec §6.5).
type Trace struct {
	Fields       map[string]FieldState  `json:"fields"`
	Defects      map[string]DefectState `json:"defects"`
	Measurements map[string]int         `json:"measurements"`
	LatestObs    *Observation           `json:"latest_obs"`
	Events       []map[string]any       `json:"events"`
}

type state struct {
	phiBase       float64
	defectCoords  [][2]int
	defectDensity float64
	defectPhase   float64
	measurements  map[string]int
	measureSeq    int
	latestObs     *Observation
	events        []map[string]any
}

// Simulate runs the deterministic transitions of spec §4.I over prog's
// kernel operations, in source order.
func Simulate(prog *ir.Program) *Trace {
	s := &state{measurements: map[string]int{}}

	for i := range prog.Kernel.Operations {
		op := &prog.Kernel.Operations[i]
		s.step(op)
	}

	return &Trace{
		Fields:       map[string]FieldState{"Phi": {Base: round4(s.phiBase)}},
		Defects:      map[string]DefectState{"D": {Coords: s.defectCoords, Density: round4(s.defectDensity), Phase: round4(s.defectPhase)}},
		Measurements: s.measurements,
		LatestObs:    s.latestObs,
		Events:       s.events,
	}
}

func (s *state) step(op *ir.Operation) {
	switch {
	case op.Op == "initialize" && op.Name == "Phi":
		s.stepInitPhi(op)
	case op.Op == "nucleate":
		s.stepNucleate(op)
	case op.Op == "evolve":
		s.stepEvolve()
	case op.Op == "quench":
		s.stepQuench(op)
	case op.Op == "observe":
		s.stepObserve(op)
	case op.Op == "hysteresis_trace":
		s.stepHysteresis(op)
	case op.Op == "measure":
		s.stepMeasure(op)
	case op.Op == "return":
		s.events = append(s.events, map[string]any{"op": "return", "spec": op.ReturnSpec})
	default:
		s.events = append(s.events, map[string]any{"op": op.Op, "args": op.Args()})
	}
}

var reConstant = regexp.MustCompile(`constant\(([^)]+)\)`)

func (s *state) stepInitPhi(op *ir.Operation) {
	if m := reConstant.FindStringSubmatch(op.Expr); m != nil {
		if c, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64); err == nil {
			s.phiBase = c
		}
	}
	s.events = append(s.events, map[string]any{"op": "init_phi", "value": round4(s.phiBase)})
}

var reCoordPair = regexp.MustCompile(`\((-?\d+)\s*,\s*(-?\d+)\)`)

func coordsFromSpec(spec string) [][2]int {
	matches := reCoordPair.FindAllStringSubmatch(spec, -1)
	coords := make([][2]int, 0, len(matches))
	for _, m := range matches {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		coords = append(coords, [2]int{x, y})
	}
	return coords
}

func (s *state) stepNucleate(op *ir.Operation) {
	s.defectCoords = append(s.defectCoords, coordsFromSpec(op.Raw)...)
	s.defectDensity = 0.01
	s.events = append(s.events, map[string]any{
		"op": "nucleate", "coords": s.defectCoords, "density": s.defectDensity,
	})
}

func (s *state) stepEvolve() {
	s.defectDensity = round4(s.defectDensity * 1.05)
	s.defectPhase = 0.55
	s.events = append(s.events, map[string]any{"op": "evolve", "density": s.defectDensity, "phase": s.defectPhase})
}

func (s *state) stepQuench(op *ir.Operation) {
	s.defectDensity = math.Max(0, s.defectDensity-op.QuenchAmount)
	s.events = append(s.events, map[string]any{"op": "quench", "amount": op.QuenchAmount, "new_density": round4(s.defectDensity)})
}

func (s *state) stepObserve(op *ir.Operation) {
	defectsTerm := round4(0.001 * float64(len(s.defectCoords)))
	fieldTerm := round4(0.01 * s.phiBase)
	tEff := round4(s.phiBase + defectsTerm + fieldTerm)
	into := op.ObserveInto
	if into == "" {
		into = "obs"
	}
	s.latestObs = &Observation{TEff: tEff, Into: into, Base: s.phiBase, DefectsTerm: defectsTerm, FieldTerm: fieldTerm}
	s.events = append(s.events, map[string]any{"op": "observe", "X": tEff})
}

func (s *state) stepHysteresis(op *ir.Operation) {
	w := 3
	if op.HasWindow {
		w = op.HystWindow
	}
	trace := make([]float64, w)
	for k := 0; k < w; k++ {
		trace[k] = round4(0.0009 + 0.0001*float64(k))
	}
	s.events = append(s.events, map[string]any{"op": "hysteresis", "window": w, "trace": trace})
}

func (s *state) stepMeasure(op *ir.Operation) {
	for _, out := range op.Outputs {
		s.measurements[out] = s.measureSeq % 2
		s.measureSeq++
	}
	snapshot := make(map[string]int, len(s.measurements))
	for k, v := range s.measurements {
		snapshot[k] = v
	}
	s.events = append(s.events, map[string]any{"op": "measure", "values": snapshot})
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
