// Package floquet implements the Floquet expander (spec §4.D): a control op
// whose overlay carries a complete {floquet_period, cycles, duty} triple
// fans out into a deterministic cycle train of ON/OFF windows.
package floquet

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/squint-run/squint/internal/ir"
	"github.com/squint-run/squint/internal/overlay"
)

var floquetKeys = []string{"floquet_period", "cycles", "duty"}

// Schedule is the parsed, fully-resolved Floquet cycle train for one ctrl op.
type Schedule struct {
	PeriodNs  int
	Cycles    int
	Duty      float64
	PhaseStep string // raw, informational (spec §4.D header comment)
	OnNs      int
	OffNs     int
}

// presentKeys returns which of the three Floquet keys appear on op's overlay.
func presentKeys(op *ir.Operation) []string {
	var present []string
	for _, k := range floquetKeys {
		if _, ok := op.Overlay[k]; ok {
			present = append(present, k)
		}
	}
	return present
}

// Check reports whether op qualifies for Floquet expansion. When one or two
// (but not all three) Floquet keys are present, it returns a Warn diagnostic
// per spec §4.D ("any lone Floquet key is a Warn") and apply=false. When all
// three are present but don't parse into a usable schedule (period<=0,
// cycles<=0, or duty outside (0,1]), it likewise returns apply=false with a
// Warn, matching original_source/SQUINT.py's fallback to a single pulse
// rather than a synthetic cycle train.
func Check(op *ir.Operation) (apply bool, diag *overlay.Diagnostic) {
	present := presentKeys(op)
	switch len(present) {
	case 0:
		return false, nil
	case 3:
		if _, err := parseSchedule(op); err != nil {
			return false, &overlay.Diagnostic{
				Level: overlay.Warn,
				Line:  op.Line,
				Key:   "floquet",
				Message: fmt.Sprintf(
					"malformed Floquet parameters (period=%q, cycles=%q, duty=%q): %v — emitting single pulse",
					op.Overlay["floquet_period"], op.Overlay["cycles"], op.Overlay["duty"], err),
			}
		}
		return true, nil
	default:
		return false, &overlay.Diagnostic{
			Level:   overlay.Warn,
			Line:    op.Line,
			Key:     "floquet",
			Message: fmt.Sprintf("incomplete Floquet triple, found only %v; no expansion", present),
		}
	}
}

// Expand parses op's Floquet overlay values into a resolved Schedule.
// Callers must only call Expand after Check has reported apply=true.
func Expand(op *ir.Operation) Schedule {
	sched, err := parseSchedule(op)
	if err != nil {
		// Unreachable when callers honor Check's apply=false gate; return the
		// zero-valued schedule rather than panicking.
		return Schedule{}
	}
	return sched
}

func parseSchedule(op *ir.Operation) (Schedule, error) {
	periodNs, err := parsePositiveNs(op.Overlay["floquet_period"])
	if err != nil {
		return Schedule{}, fmt.Errorf("floquet_period: %w", err)
	}
	cycles, err := parsePositiveInt(op.Overlay["cycles"])
	if err != nil {
		return Schedule{}, fmt.Errorf("cycles: %w", err)
	}
	duty, err := parseDutyFraction(op.Overlay["duty"])
	if err != nil {
		return Schedule{}, fmt.Errorf("duty: %w", err)
	}

	phaseStep := op.Overlay["phase_step"]
	if phaseStep == "" {
		phaseStep = "0deg"
	}

	onNs := int(math.Round(float64(periodNs) * duty))
	offNs := periodNs - onNs
	if offNs < 0 {
		offNs = 0
	}

	return Schedule{
		PeriodNs:  periodNs,
		Cycles:    cycles,
		Duty:      duty,
		PhaseStep: phaseStep,
		OnNs:      onNs,
		OffNs:     offNs,
	}, nil
}

func parsePositiveNs(v string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.TrimSuffix(s, "ns")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be > 0: %q", v)
	}
	return int(n), nil
}

func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be > 0: %q", v)
	}
	return n, nil
}

func parseDutyFraction(v string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v)
	}
	if d <= 0 || d > 1 {
		return 0, fmt.Errorf("must satisfy 0 < duty <= 1: %q", v)
	}
	return d, nil
}
