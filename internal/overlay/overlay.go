// Package overlay implements the declarative constraint system attached to
// ctrl operations (spec §4.C): well-formedness and connectivity checks over
// recognised overlay keys, classified Info/Warn/Error, with strict-mode
// promotion of malformed/violated Warns to hard errors.
package overlay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/squint-run/squint/internal/ir"
	"github.com/squint-run/squint/internal/lattice"
)

// Level classifies a Diagnostic's severity.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one overlay-validator finding attached to a source line.
type Diagnostic struct {
	Level   Level
	Line    int
	Key     string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("overlay[%d]: %s: %s", d.Line, d.Key, d.Message)
}

// OverlayError is fatal: a strict-mode overlay violation or malformed value
// (spec §7). Compilation stops on the first one.
type OverlayError struct {
	Line int
	Msg  string
}

func (e *OverlayError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var (
	reCoherenceLen = regexp.MustCompile(`(?i)^>=\s*(\d+)\s*ns$`)
	rePathLen      = regexp.MustCompile(`(?i)^<=\s*(\d+)$`)
	reDamping      = regexp.MustCompile(`^(?:η\(Φ=(\w+)\)|eta\(Phi=(\w+)\))$`)
)

// finding is the pre-classification result of a single-key check.
type finding struct {
	ok      bool
	msg     string
	exempt  bool // never promoted to Error under strict mode
	info    bool // always Info, never Warn/Error (recognised-not-enforced keys)
}

// Validate checks every overlay key on a ctrl op, in declaration order, and
// returns the diagnostics produced plus a fatal *OverlayError if strict is
// true and a hard error is found — validation stops at that point, matching
// "on first hard error, compilation stops" (spec §4.C).
func Validate(op *ir.Operation, ws *ir.Workspace, strict bool) ([]Diagnostic, error) {
	var diags []Diagnostic

	for _, key := range op.OverlayKeys {
		val := op.Overlay[key]
		f := checkKey(key, val, op, ws)

		switch {
		case f.info:
			diags = append(diags, Diagnostic{Level: Info, Line: op.Line, Key: key, Message: f.msg})
		case f.ok:
			diags = append(diags, Diagnostic{Level: Info, Line: op.Line, Key: key, Message: f.msg})
		case f.exempt:
			diags = append(diags, Diagnostic{Level: Warn, Line: op.Line, Key: key, Message: f.msg})
		case strict:
			diags = append(diags, Diagnostic{Level: Error, Line: op.Line, Key: key, Message: f.msg})
			return diags, &OverlayError{Line: op.Line, Msg: fmt.Sprintf("%s: %s", key, f.msg)}
		default:
			diags = append(diags, Diagnostic{Level: Warn, Line: op.Line, Key: key, Message: f.msg})
		}
	}

	return diags, nil
}

func checkKey(key, val string, op *ir.Operation, ws *ir.Workspace) finding {
	switch key {
	case "coherence_len":
		if m := reCoherenceLen.FindStringSubmatch(val); m != nil {
			return finding{ok: true, msg: fmt.Sprintf("satisfied by wait(%s) insertion", m[1])}
		}
		return finding{msg: fmt.Sprintf("coherence_len malformed (got %q, expect >=###ns)", val)}

	case "path_len":
		m := rePathLen.FindStringSubmatch(val)
		if m == nil || len(op.Targets) != 2 {
			return finding{msg: fmt.Sprintf("path_len malformed (got %q, expect <=k on 2-qubit op)", val)}
		}
		k, _ := strconv.Atoi(m[1])
		a, errA := lattice.CoordOf(op.Targets[0], ws.Lattice)
		b, errB := lattice.CoordOf(op.Targets[1], ws.Lattice)
		if errA != nil || errB != nil {
			return finding{ok: true, msg: "path_len check skipped (targets not mappable to lattice)"}
		}
		d := lattice.Manhattan(a, b)
		if d > k {
			return finding{msg: fmt.Sprintf("path_len ≤ %d violated (distance=%d)", k, d)}
		}
		return finding{ok: true, msg: fmt.Sprintf("satisfied (distance=%d ≤ %d)", d, k)}

	case "damping":
		m := reDamping.FindStringSubmatch(val)
		if m == nil {
			return finding{msg: fmt.Sprintf("damping malformed (got %q, expect η(Φ=Name) or eta(Phi=Name))", val)}
		}
		field := m[1]
		if field == "" {
			field = m[2]
		}
		if !ws.HasSemanticField(field) {
			return finding{msg: fmt.Sprintf("damping references missing semantic field %q", field)}
		}
		return finding{ok: true, msg: fmt.Sprintf("damping bound to semantic field %q", field)}

	case "braid":
		if !ws.HasDefectField(val) {
			return finding{msg: fmt.Sprintf("braid handle %q not declared in defect fields %v", val, ws.DefectFields)}
		}
		return finding{ok: true, msg: fmt.Sprintf("braid bound to defect field %q", val)}

	case "floquet_period":
		s := strings.ToLower(strings.TrimSpace(val))
		s = strings.TrimSuffix(s, "ns")
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || p <= 0 {
			return finding{msg: fmt.Sprintf("floquet_period malformed (got %q, expect e.g. 50ns)", val)}
		}
		return finding{ok: true, msg: fmt.Sprintf("accepted: %dns", int(p))}

	case "cycles":
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || n <= 0 {
			return finding{msg: fmt.Sprintf("cycles malformed (got %q, expect positive integer)", val)}
		}
		return finding{ok: true, msg: fmt.Sprintf("accepted: %d", n)}

	case "duty":
		d, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || d <= 0 || d > 1 {
			return finding{msg: fmt.Sprintf("duty malformed (got %q, expect 0<duty<=1)", val)}
		}
		return finding{ok: true, msg: fmt.Sprintf("accepted: %v", d)}

	case "phase_step":
		s := strings.ToLower(strings.TrimSpace(val))
		s = strings.TrimSuffix(s, "deg")
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return finding{exempt: true, msg: fmt.Sprintf("phase_step malformed (got %q, expect e.g. 15deg)", val)}
		}
		return finding{ok: true, msg: fmt.Sprintf("accepted: %s", val)}

	case "span", "coherence_budget":
		return finding{info: true, msg: "recognized but not enforced in v0.1"}

	default:
		return finding{exempt: true, msg: fmt.Sprintf("unknown overlay key %q", key)}
	}
}
