package ir

// Lattice is the (cols, rows) shape of the 2-D qubit lattice.
type Lattice struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// SemanticField is a declared semantic field, e.g. `semantic_field Phi: scalar on L;`.
type SemanticField struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "scalar" | "vector" | "tensor[k]"
}

// Workspace is the immutable topology a kernel runs against.
//
// SemanticFields and DefectFields preserve declaration order; downstream
// stages iterate these slices rather than a map so emission never depends
// on hashed-map ordering (spec §5 determinism).
type Workspace struct {
	Name            string          `json:"name"`
	Qubits          int             `json:"qubits"`
	Lattice         Lattice         `json:"lattice"`
	SemanticFields  []SemanticField `json:"semantic_fields"`
	DefectFields    []string        `json:"defect_fields"`
}

// HasSemanticField reports whether name was declared as a semantic field.
func (w *Workspace) HasSemanticField(name string) bool {
	for _, f := range w.SemanticFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// HasDefectField reports whether name was declared as a defect field.
func (w *Workspace) HasDefectField(name string) bool {
	for _, f := range w.DefectFields {
		if f == name {
			return true
		}
	}
	return false
}

// SemanticFieldNames returns declared semantic field names in declaration order.
func (w *Workspace) SemanticFieldNames() []string {
	names := make([]string, len(w.SemanticFields))
	for i, f := range w.SemanticFields {
		names[i] = f.Name
	}
	return names
}

// OperationKind buckets an Operation for emission routing only (spec §9).
type OperationKind string

const (
	KindQuantum  OperationKind = "quantum"
	KindSemantic OperationKind = "semantic"
	KindBraid    OperationKind = "braid"
)

// Operation is a tagged record over the closed set of kernel statements
// (spec §3, §9). Only the fields relevant to Op are populated; this keeps
// the type flat and avoids inventing a full expression language for the
// raw-text payloads the compiler never interprets.
type Operation struct {
	Kind OperationKind `json:"kind"`
	Op   string        `json:"op"`
	Line int           `json:"line"`

	// ctrl
	Gate        string            `json:"gate,omitempty"`
	Targets     []string          `json:"targets,omitempty"`
	Angle       string            `json:"angle,omitempty"`
	OverlayKeys []string          `json:"-"` // declaration order for OverlayKeys/Overlay
	Overlay     map[string]string `json:"overlay,omitempty"`
	Guard       string            `json:"guard,omitempty"` // "unless <expr>" raw text

	// measure
	Outputs []string `json:"outputs,omitempty"`

	// initialize / transport: NAME = EXPR
	Name string `json:"name,omitempty"`
	Expr string `json:"expr,omitempty"`

	// observe
	ObserveWhat    string            `json:"observe_what,omitempty"`
	ObserveInto    string            `json:"observe_into,omitempty"`
	Corrections    map[string]string `json:"corrections,omitempty"`
	CorrectionKeys []string          `json:"-"`

	// nucleate / pin / anneal / evolve: opaque raw spec text
	Raw string `json:"raw,omitempty"`

	// quench
	QuenchName   string  `json:"quench_name,omitempty"`
	QuenchHandle string  `json:"quench_handle,omitempty"`
	QuenchAmount float64 `json:"quench_amount,omitempty"`

	// hysteresis_trace
	HystHandle string `json:"hyst_handle,omitempty"`
	HystWindow int    `json:"hyst_window,omitempty"`
	HasWindow  bool   `json:"-"`

	// relax
	RelaxName string `json:"relax_name,omitempty"`
	RelaxRate string `json:"relax_rate,omitempty"`

	// return
	ReturnSpec string `json:"return_spec,omitempty"`
}

// Args returns a stable, ordered args map for logging/JSON output (spec §6.4
// "events" array). Only non-empty fields for the operation's kind are
// included, preserving the shape the original QUA-like log emitted.
func (o *Operation) Args() map[string]any {
	args := map[string]any{}
	switch o.Op {
	case "ctrl":
		args["gate"] = o.Gate
		args["targets"] = o.Targets
		if o.Angle != "" {
			args["angle"] = o.Angle
		}
		if o.Guard != "" {
			args["guard"] = o.Guard
		}
	case "measure":
		args["targets"] = o.Targets
		args["outputs"] = o.Outputs
	case "initialize", "transport":
		args["name"] = o.Name
		if o.Expr != "" {
			args["expr"] = o.Expr
		}
	case "relax":
		args["name"] = o.RelaxName
		if o.RelaxRate != "" {
			args["rate"] = o.RelaxRate
		}
	case "observe":
		args["what"] = o.ObserveWhat
		args["into"] = o.ObserveInto
		args["corrections"] = o.Corrections
	case "nucleate", "pin", "anneal", "evolve":
		args["spec"] = o.Raw
	case "quench":
		args["name"] = o.QuenchName
		args["handle"] = o.QuenchHandle
		args["amount"] = o.QuenchAmount
	case "hysteresis_trace":
		args["handle"] = o.HystHandle
		if o.HasWindow {
			args["window"] = o.HystWindow
		}
	case "return":
		args["spec"] = o.ReturnSpec
	}
	return args
}

// Kernel is an ordered sequence of operations over a workspace. Source
// order is preserved; the compiler never reorders operations.
type Kernel struct {
	Name       string      `json:"name"`
	Workspace  string      `json:"workspace"`
	Operations []Operation `json:"operations"`
}

// Program is the frozen output of the parser: exactly one workspace and one
// kernel (spec §1: "single workspace... single kernel").
type Program struct {
	Workspace Workspace `json:"workspace"`
	Kernel    Kernel    `json:"kernel"`
}
