package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/squint-run/squint/internal/compiler"
	"github.com/squint-run/squint/internal/emitter"
)

// TraceOptions holds flags for the trace subcommand.
type TraceOptions struct {
	*RootOptions
	StrictOverlays bool
	OutFormat      string
}

// TraceResult is the JSON/YAML shape printed on success.
type TraceResult struct {
	Workspace string                  `json:"workspace"`
	Kernel    string                  `json:"kernel"`
	Timeline  []emitter.TimelineEntry `json:"timeline"`
}

// NewTraceCommand builds the trace subcommand: compile and print just the
// scheduler timeline, skipping control-text and log-file output.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "trace FILE.squint",
		Short:         "Compile and print the scheduler timeline",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.StrictOverlays, "strict-overlays", false, "overlay violations/malformed entries become hard errors")
	cmd.Flags().StringVar(&opts.OutFormat, "out-format", "text", "timeline output format: text|json|yaml")

	return cmd
}

func runTrace(opts *TraceOptions, srcPath string, cmd *cobra.Command) error {
	if !isValidFormat(opts.OutFormat) {
		return NewExitError(ExitIOError, fmt.Sprintf("invalid --out-format %q, want one of %v", opts.OutFormat, ValidFormats))
	}

	formatter := &OutputFormatter{
		Format:    opts.OutFormat,
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

	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: verbosityLevel(opts.Verbose)}))

	result, err := compiler.Compile(string(source), compiler.Options{
		StrictOverlays: opts.StrictOverlays,
		Logger:         logger,
	})
	if err != nil {
		return exitErrorForCompileFailure(err)
	}

	for _, d := range result.Diagnostics {
		formatter.VerboseLog("%s", d.String())
	}

	traceResult := TraceResult{
		Workspace: result.Program.Workspace.Name,
		Kernel:    result.Program.Kernel.Name,
		Timeline:  result.Log.Timeline,
	}

	if formatter.Format == "text" {
		fmt.Fprintf(formatter.Writer, "%s.%s timeline (%d entries):\n", traceResult.Workspace, traceResult.Kernel, len(traceResult.Timeline))
		for _, e := range traceResult.Timeline {
			fmt.Fprintf(formatter.Writer, "  t=%-4d %-14s line=%d", e.T, e.Op, e.Line)
			if e.Ns != 0 {
				fmt.Fprintf(formatter.Writer, " ns=%d", e.Ns)
			}
			if len(e.Targets) > 0 {
				fmt.Fprintf(formatter.Writer, " targets=%v", e.Targets)
			}
			if len(e.Outputs) > 0 {
				fmt.Fprintf(formatter.Writer, " outs=%v", e.Outputs)
			}
			if e.Cycle != 0 {
				fmt.Fprintf(formatter.Writer, " cycle=%d", e.Cycle)
			}
			fmt.Fprintln(formatter.Writer)
		}
		return nil
	}
	return formatter.Success(traceResult)
}
