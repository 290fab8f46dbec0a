package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/squint-run/squint/internal/compiler"
	"github.com/squint-run/squint/internal/ir"
	"github.com/squint-run/squint/internal/overlay"
	"github.com/squint-run/squint/internal/parser"
	"github.com/squint-run/squint/internal/session"
)

// CompileOptions holds flags for the default compile-and-emit action.
type CompileOptions struct {
	*RootOptions
	Out            string
	Log            bool
	Simulate       bool
	StrictOverlays bool
	Database       string
}

// CompileSummary is the JSON/YAML shape printed on success.
type CompileSummary struct {
	Workspace   string   `json:"workspace"`
	Kernel      string   `json:"kernel"`
	Operations  int      `json:"operations"`
	ControlPath string   `json:"control_path"`
	LogPath     string   `json:"log_path,omitempty"`
	SimJSONPath string   `json:"sim_json_path,omitempty"`
	SimTextPath string   `json:"sim_text_path,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

func runCompile(opts *CompileOptions, srcPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	source, err := os.ReadFile(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return WrapExitError(ExitIOError, fmt.Sprintf("file %s not found", srcPath), err)
		}
		return WrapExitError(ExitIOError, fmt.Sprintf("reading %s", srcPath), err)
	}

	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{
		Level: verbosityLevel(opts.Verbose),
	}))

	result, err := compiler.Compile(string(source), compiler.Options{
		StrictOverlays: opts.StrictOverlays,
		Simulate:       opts.Simulate,
		Logger:         logger,
	})
	if err != nil {
		return exitErrorForCompileFailure(err)
	}

	printParseBanner(formatter, result)

	for _, d := range result.Diagnostics {
		formatter.VerboseLog("%s", d.String())
	}

	base := strings.TrimSuffix(srcPath, filepath.Ext(srcPath))
	controlPath := opts.Out
	if controlPath == "" {
		controlPath = base + ".qua.txt"
	}
	if err := os.WriteFile(controlPath, []byte(result.ControlText), 0o644); err != nil {
		return WrapExitError(ExitIOError, fmt.Sprintf("writing %s", controlPath), err)
	}

	summary := CompileSummary{
		Workspace:   result.Program.Workspace.Name,
		Kernel:      result.Program.Kernel.Name,
		Operations:  len(result.Program.Kernel.Operations),
		ControlPath: controlPath,
	}
	for _, d := range result.Diagnostics {
		if d.Level >= overlay.Warn {
			summary.Warnings = append(summary.Warnings, d.String())
		}
	}

	var logJSON, simJSON string

	if opts.Log {
		logPath := base + ".log.json"
		data, err := json.MarshalIndent(result.Log, "", "  ")
		if err != nil {
			return WrapExitError(ExitIOError, "marshaling log JSON", err)
		}
		if err := os.WriteFile(logPath, data, 0o644); err != nil {
			return WrapExitError(ExitIOError, fmt.Sprintf("writing %s", logPath), err)
		}
		summary.LogPath = logPath
		logJSON = string(data)
	}

	if opts.Simulate && result.Trace != nil {
		simPath := base + ".sim.json"
		data, err := json.MarshalIndent(result.Trace, "", "  ")
		if err != nil {
			return WrapExitError(ExitIOError, "marshaling simulation JSON", err)
		}
		if err := os.WriteFile(simPath, data, 0o644); err != nil {
			return WrapExitError(ExitIOError, fmt.Sprintf("writing %s", simPath), err)
		}
		summary.SimJSONPath = simPath
		simJSON = string(data)

		simTextPath := base + ".sim.txt"
		if err := os.WriteFile(simTextPath, []byte(renderSimReport(result)), 0o644); err != nil {
			return WrapExitError(ExitIOError, fmt.Sprintf("writing %s", simTextPath), err)
		}
		summary.SimTextPath = simTextPath
	}

	if opts.Database != "" {
		if err := recordSession(opts.Database, string(source), opts.StrictOverlays, result.ControlText, logJSON, simJSON); err != nil {
			formatter.VerboseLog("session store: %v", err)
		}
	}

	if formatter.Format == "text" {
		fmt.Fprintf(formatter.Writer, "✓ compiled %s.%s: %d operation(s) -> %s\n",
			summary.Workspace, summary.Kernel, summary.Operations, summary.ControlPath)
		if summary.LogPath != "" {
			fmt.Fprintf(formatter.Writer, "  log: %s\n", summary.LogPath)
		}
		if summary.SimJSONPath != "" {
			fmt.Fprintf(formatter.Writer, "  sim: %s, %s\n", summary.SimJSONPath, summary.SimTextPath)
		}
		for _, w := range summary.Warnings {
			fmt.Fprintf(formatter.Writer, "  warn: %s\n", w)
		}
		return nil
	}
	return formatter.Success(summary)
}

// printParseBanner reproduces, on stderr under --verbose, the workspace and
// operation-classification summary the original implementation printed
// unconditionally to stdout (spec.md's distillation dropped it).
func printParseBanner(formatter *OutputFormatter, result *compiler.Result) {
	ws := result.Program.Workspace
	formatter.VerboseLog("parsed workspace %s: qubits=%d lattice=%dx%d", ws.Name, ws.Qubits, ws.Lattice.Cols, ws.Lattice.Rows)
	formatter.VerboseLog("  semantic fields: %v", ws.SemanticFieldNames())
	formatter.VerboseLog("  defect fields: %v", ws.DefectFields)
	formatter.VerboseLog("kernel %s: %d operation(s)", result.Program.Kernel.Name, len(result.Program.Kernel.Operations))
	for i, op := range result.Program.Kernel.Operations {
		formatter.VerboseLog("  %d: %-16s -> %-8s @ line %d", i, op.Op, op.Kind, op.Line)
	}
}

func verbosityLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// exitErrorForCompileFailure maps the two fatal error kinds the pipeline can
// surface (spec §7) onto the exit codes pinned by spec §6.1.
func exitErrorForCompileFailure(err error) error {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return WrapExitError(ExitParseError, "parse error", err)
	}
	var overlayErr *overlay.OverlayError
	if errors.As(err, &overlayErr) {
		return WrapExitError(ExitOverlayErr, "overlay error", err)
	}
	return WrapExitError(ExitParseError, "compile failed", err)
}

func recordSession(dbPath, source string, strict bool, controlText, logJSON, simJSON string) error {
	hash, err := ir.SessionHash(source, strict)
	if err != nil {
		return fmt.Errorf("hashing session: %w", err)
	}

	store, err := session.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	sess := session.Session{
		Hash:           hash,
		Source:         source,
		StrictOverlays: strict,
		ControlText:    controlText,
		LogJSON:        logJSON,
		SimJSON:        simJSON,
		CreatedSeq:     time.Now().UnixNano(),
	}
	return store.Save(context.Background(), sess)
}

// renderSimReport builds the human-readable .sim.txt companion to .sim.json.
func renderSimReport(result *compiler.Result) string {
	trace := result.Trace
	var b strings.Builder
	fmt.Fprintln(&b, "squint simulation report")
	fmt.Fprintln(&b, strings.Repeat("=", 40))

	if phi, ok := trace.Fields["Phi"]; ok {
		fmt.Fprintf(&b, "field Phi: base=%.4f\n", phi.Base)
	}
	if d, ok := trace.Defects["D"]; ok {
		fmt.Fprintf(&b, "defect D: coords=%v density=%.4f phase=%.2f rad\n", d.Coords, d.Density, d.Phase)
	}
	if trace.LatestObs != nil {
		o := trace.LatestObs
		fmt.Fprintf(&b, "observation -> %s = %.4f (base=%.2f defects=%.4f field=%.4f)\n",
			o.Into, o.TEff, o.Base, o.DefectsTerm, o.FieldTerm)
	}
	if len(trace.Measurements) > 0 {
		fmt.Fprintln(&b, "measurements:")
		keys := make([]string, 0, len(trace.Measurements))
		for k := range trace.Measurements {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %d\n", k, trace.Measurements[k])
		}
	}
	return b.String()
}
