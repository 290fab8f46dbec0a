// Package parser builds an *ir.Program from squint DSL source (spec §4.B,
// grammar §6.2). It is recursive-descent at the block level and regexp-driven
// at the statement level: each kernel/workspace statement is self-contained
// and terminated by ";", so matching a per-statement pattern against the
// trimmed statement text is simpler and just as precise as token-by-token
// recognition, while leaving room for the tolerant RAW captures the spec
// requires for angle expressions, defect specs and return specs.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/squint-run/squint/internal/lexer"
	"github.com/squint-run/squint/internal/ir"
)

var (
	reWorkspaceHead = regexp.MustCompile(`(?is)\bworkspace\s+(\w+)\s*\{`)
	reKernelHead    = regexp.MustCompile(`(?is)\bkernel\s+(\w+)\s*(?:\(([^)]*)\))?\s+on\s+(\w+)\s*\{`)

	reQubits  = regexp.MustCompile(`(?is)^qubits\s+\w+\[(\d+)\]$`)
	reLattice = regexp.MustCompile(`(?is)^lattice\s+\w+\(\s*(\d+)\s*,\s*(\d+)\s*\)\s*attach\s+\w+$`)
	reSField  = regexp.MustCompile(`(?is)^semantic_field\s+(\w+)\s*:\s*(scalar|vector|tensor\[\d+\])\s+on\s+(\w+)$`)
	reDField  = regexp.MustCompile(`(?is)^defect_field\s+(\w+)\s*:\s*defects\s+on\s+(\w+)\s*\{([^}]*)\}$`)

	reCtrl = regexp.MustCompile(`(?is)^ctrl\s+(\w+)\s+(\w+(?:\[\d+\])?(?:\s*,\s*\w+(?:\[\d+\])?)?)` +
		`(?:\s+angle\s*=\s*(\S+))?(?:\s+with\s+overlay\s*\{([^}]*)\})?(?:\s+unless\s+(.+))?$`)
	reMeasure = regexp.MustCompile(`(?is)^measure\s+(\w+(?:\[\d+\])?)(?:\s*,\s*(\w+(?:\[\d+\])?))?\s*->\s*(\w+)(?:\s*,\s*(\w+))?$`)
	reTransport = regexp.MustCompile(`(?is)^transport\s+(\w+)\s*=\s*(.+)$`)
	reQuench   = regexp.MustCompile(`(?is)^quench\s+(\w+)\s*=\s*inject\(\s*(\w+)\s*,\s*amount\s*=\s*([\d.eE+\-]+)\s*\)$`)
	reObserve  = regexp.MustCompile(`(?is)^observe\s+(\w+)(?:\s+into\s+(\w+))?(?:\s+with\s+corrections\s*\{([^}]*)\})?$`)
	reInit     = regexp.MustCompile(`(?is)^initialize\s+(\w+)\s*=\s*(.+)$`)
	reHyst     = regexp.MustCompile(`(?is)^hysteresis_trace\s*\(\s*(\w+)(?:\s*,\s*window\s*=\s*(\d+))?\s*\)$`)
	reRelax    = regexp.MustCompile(`(?is)^relax\s+(\w+)\s*\(\s*rate\s*=\s*(.+)\)$`)
	reDefectEv = regexp.MustCompile(`(?is)^(nucleate|pin|anneal|evolve)\s+(.+)$`)
	reReturn   = regexp.MustCompile(`(?is)^return\s*\{(.+)\}$`)
)

// Parse tokenizes and parses source into a frozen *ir.Program, or returns a
// *ParseError describing the first problem encountered (spec §1: "fail fast
// on first error").
func Parse(source string) (*ir.Program, error) {
	stripped := lexer.StripComments(source)

	wsHead := reWorkspaceHead.FindStringSubmatchIndex(stripped)
	if wsHead == nil {
		return nil, errf(0, "workspace block not found")
	}
	wsName := stripped[wsHead[2]:wsHead[3]]
	wsBodyStart := wsHead[1]
	wsBodyEnd, err := matchBrace(stripped, wsBodyStart)
	if err != nil {
		return nil, err
	}
	wsBody := stripped[wsBodyStart:wsBodyEnd]

	workspace, err := parseWorkspaceBody(stripped, wsBodyStart, wsBody, wsName)
	if err != nil {
		return nil, err
	}

	kHead := reKernelHead.FindStringSubmatchIndex(stripped[wsBodyEnd+1:])
	if kHead == nil {
		return nil, errf(0, "kernel block not found")
	}
	// Rebase submatch offsets onto the full stripped source.
	base := wsBodyEnd + 1
	kName := stripped[base+kHead[2] : base+kHead[3]]
	targetWs := stripped[base+kHead[6] : base+kHead[7]]
	if targetWs != wsName {
		return nil, errf(lineOf(stripped, base+kHead[0]), "kernel %q targets workspace %q but workspace is %q", kName, targetWs, wsName)
	}
	kBodyStart := base + kHead[1]
	kBodyEnd, err := matchBrace(stripped, kBodyStart)
	if err != nil {
		return nil, err
	}
	kBody := stripped[kBodyStart:kBodyEnd]

	ops, err := parseKernelBody(stripped, kBodyStart, kBody, workspace)
	if err != nil {
		return nil, err
	}

	return &ir.Program{
		Workspace: *workspace,
		Kernel:    ir.Kernel{Name: kName, Workspace: wsName, Operations: ops},
	}, nil
}

// matchBrace assumes stripped[openIdx-1] == '{' and returns the index of the
// matching '}', or a ParseError on unbalanced braces (spec §4.B).
func matchBrace(src string, openIdx int) (int, error) {
	depth := 1
	i := openIdx
	for i < len(src) {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return 0, errf(lineOf(src, openIdx), "unbalanced braces")
}

func lineOf(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.Count(src[:offset], "\n") + 1
}

// stmtSpan is one top-level, semicolon-terminated statement inside a block,
// with the 1-based source line of its first non-space rune and its trimmed
// text (without the trailing ";").
type stmtSpan struct {
	Text string
	Line int
}

// splitStatements walks body (a block's inner text, whose absolute start in
// the full source is bodyStart) and splits it into top-level statements on
// ";" at bracket depth 0, so a RAW payload's own embedded ";" (there is none
// in this grammar) or nested braces never confuse the split.
func splitStatements(src string, bodyStart int, body string) []stmtSpan {
	var spans []stmtSpan
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		case ';':
			if depth == 0 {
				text := strings.TrimSpace(body[start:i])
				if text != "" {
					lead := strings.Index(body[start:i], text)
					spans = append(spans, stmtSpan{Text: text, Line: lineOf(src, bodyStart+start+lead)})
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(body[start:]); tail != "" {
		lead := strings.Index(body[start:], tail)
		spans = append(spans, stmtSpan{Text: tail, Line: lineOf(src, bodyStart+start+lead)})
	}
	return spans
}

func parseWorkspaceBody(src string, bodyStart int, body, wsName string) (*ir.Workspace, error) {
	ws := &ir.Workspace{Name: wsName}
	haveQubits, haveLattice := false, false

	for _, span := range splitStatements(src, bodyStart, body) {
		text := span.Text
		switch {
		case reQubits.MatchString(text):
			m := reQubits.FindStringSubmatch(text)
			n, _ := strconv.Atoi(m[1])
			ws.Qubits = n
			haveQubits = true
		case reLattice.MatchString(text):
			m := reLattice.FindStringSubmatch(text)
			cols, _ := strconv.Atoi(m[1])
			rows, _ := strconv.Atoi(m[2])
			ws.Lattice = ir.Lattice{Cols: cols, Rows: rows}
			haveLattice = true
		case reSField.MatchString(text):
			m := reSField.FindStringSubmatch(text)
			ws.SemanticFields = append(ws.SemanticFields, ir.SemanticField{Name: m[1], Kind: m[2]})
		case reDField.MatchString(text):
			m := reDField.FindStringSubmatch(text)
			ws.DefectFields = append(ws.DefectFields, m[1])
		default:
			return nil, errf(span.Line, "unrecognized workspace statement: %s", text)
		}
	}

	if !haveQubits {
		return nil, errf(0, "qubits decl not found (expect: qubits q[N];)")
	}
	if !haveLattice {
		return nil, errf(0, "lattice decl not found (expect: lattice L(cols,rows) attach q;)")
	}
	if ws.Lattice.Cols*ws.Lattice.Rows < ws.Qubits {
		return nil, errf(0, "lattice %dx%d cannot hold %d qubits", ws.Lattice.Cols, ws.Lattice.Rows, ws.Qubits)
	}
	return ws, nil
}

func parseKernelBody(src string, bodyStart int, body string, ws *ir.Workspace) ([]ir.Operation, error) {
	var ops []ir.Operation
	for _, span := range splitStatements(src, bodyStart, body) {
		op, err := parseStatement(span.Text, span.Line, ws)
		if err != nil {
			return nil, err
		}
		if err := checkQubitRefs(op, ws, span.Line); err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, nil
}

func parseStatement(text string, line int, ws *ir.Workspace) (*ir.Operation, error) {
	switch {
	case reCtrl.MatchString(text):
		m := reCtrl.FindStringSubmatch(text)
		targets := splitTrim(m[2])
		op := &ir.Operation{Kind: ir.KindQuantum, Op: "ctrl", Line: line, Gate: strings.ToLower(m[1]), Targets: targets}
		if m[3] != "" {
			op.Angle = m[3]
		}
		if m[4] != "" {
			keys, values := parseOverlay(m[4])
			op.OverlayKeys, op.Overlay = keys, values
		}
		if m[5] != "" {
			op.Guard = strings.TrimSpace(m[5])
		}
		return op, nil

	case reMeasure.MatchString(text):
		m := reMeasure.FindStringSubmatch(text)
		targets := nonEmpty(m[1], m[2])
		outputs := nonEmpty(m[3], m[4])
		return &ir.Operation{Kind: ir.KindQuantum, Op: "measure", Line: line, Targets: targets, Outputs: outputs}, nil

	case reTransport.MatchString(text):
		m := reTransport.FindStringSubmatch(text)
		return &ir.Operation{Kind: ir.KindSemantic, Op: "transport", Line: line, Name: m[1], Expr: strings.TrimSpace(m[2])}, nil

	case reQuench.MatchString(text):
		m := reQuench.FindStringSubmatch(text)
		amount, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, errf(line, "quench amount malformed: %s", m[3])
		}
		return &ir.Operation{Kind: ir.KindBraid, Op: "quench", Line: line, QuenchName: m[1], QuenchHandle: m[2], QuenchAmount: amount}, nil

	case reObserve.MatchString(text):
		m := reObserve.FindStringSubmatch(text)
		op := &ir.Operation{Kind: ir.KindSemantic, Op: "observe", Line: line, ObserveWhat: m[1], ObserveInto: m[2]}
		if m[3] != "" {
			keys, values := parseCorrections(m[3])
			op.CorrectionKeys, op.Corrections = keys, values
		}
		return op, nil

	case reInit.MatchString(text):
		m := reInit.FindStringSubmatch(text)
		return &ir.Operation{Kind: ir.KindSemantic, Op: "initialize", Line: line, Name: m[1], Expr: strings.TrimSpace(m[2])}, nil

	case reHyst.MatchString(text):
		m := reHyst.FindStringSubmatch(text)
		op := &ir.Operation{Kind: ir.KindSemantic, Op: "hysteresis_trace", Line: line, HystHandle: m[1]}
		if m[2] != "" {
			w, _ := strconv.Atoi(m[2])
			op.HystWindow, op.HasWindow = w, true
		}
		return op, nil

	case reRelax.MatchString(text):
		m := reRelax.FindStringSubmatch(text)
		return &ir.Operation{Kind: ir.KindSemantic, Op: "relax", Line: line, RelaxName: m[1], RelaxRate: strings.TrimSpace(m[2])}, nil

	case reDefectEv.MatchString(text):
		m := reDefectEv.FindStringSubmatch(text)
		return &ir.Operation{Kind: ir.KindBraid, Op: strings.ToLower(m[1]), Line: line, Raw: strings.TrimSpace(m[2])}, nil

	case reReturn.MatchString(text):
		m := reReturn.FindStringSubmatch(text)
		return &ir.Operation{Kind: ir.KindSemantic, Op: "return", Line: line, ReturnSpec: strings.TrimSpace(m[1])}, nil

	default:
		return nil, errf(line, "unrecognized statement: %s", text)
	}
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseOverlay normalises "<=" / ">=" to "≤" / "≥" and splits on top-level
// commas, returning keys in declaration order plus the key→value map (spec
// §4.A: ASCII overlay operators are normalised "inside overlay blocks only").
// Stored values of comparison entries carry an ASCII prefix whichever form
// the source used, e.g. "coherence_len ≥ 80ns" is stored as ">=80ns".
func parseOverlay(body string) ([]string, map[string]string) {
	body = strings.NewReplacer(">=", "≥", "<=", "≤").Replace(body)
	values := map[string]string{}
	var keys []string
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		var key, val string
		switch {
		case strings.Contains(item, "≥"):
			parts := strings.SplitN(item, "≥", 2)
			key, val = strings.TrimSpace(parts[0]), ">="+strings.TrimSpace(parts[1])
		case strings.Contains(item, "≤"):
			parts := strings.SplitN(item, "≤", 2)
			key, val = strings.TrimSpace(parts[0]), "<="+strings.TrimSpace(parts[1])
		case strings.Contains(item, "=="):
			parts := strings.SplitN(item, "==", 2)
			key, val = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		case strings.Contains(item, "="):
			parts := strings.SplitN(item, "=", 2)
			key, val = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		default:
			key, val = item, "true"
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = val
	}
	return keys, values
}

func parseCorrections(body string) ([]string, map[string]string) {
	values := map[string]string{}
	var keys []string
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" || !strings.Contains(item, "=") {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		key, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = val
	}
	return keys, values
}

// splitTopLevel splits s on sep at bracket depth 0, so a value containing an
// unrelated comma inside parens (there is none in overlay grammar, but this
// keeps the helper safe for future keys) is never fragmented.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

var reQubitIndex = regexp.MustCompile(`^\w+\[(\d+)\]$`)

// checkQubitRefs enforces spec §3 invariants 2 and 4 for the targets of an
// operation that names qubits.
func checkQubitRefs(op *ir.Operation, ws *ir.Workspace, line int) error {
	if op.Op != "ctrl" && op.Op != "measure" {
		return nil
	}
	indices := make([]int, 0, len(op.Targets))
	for _, t := range op.Targets {
		m := reQubitIndex.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		if idx < 0 || idx >= ws.Qubits {
			return errf(line, "qubit index out of range: %s (qubits=%d)", t, ws.Qubits)
		}
		indices = append(indices, idx)
	}
	if op.Op == "ctrl" && len(indices) == 2 && indices[0] == indices[1] {
		return errf(line, "two-target op %s references the same qubit twice: %s", op.Gate, op.Targets[0])
	}
	return nil
}
