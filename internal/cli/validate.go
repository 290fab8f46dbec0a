package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/squint-run/squint/internal/floquet"
	"github.com/squint-run/squint/internal/overlay"
	"github.com/squint-run/squint/internal/parser"
)

// ValidateOptions holds flags for the validate subcommand.
type ValidateOptions struct {
	*RootOptions
	StrictOverlays bool
}

// ValidateResult is the JSON/YAML shape printed on success.
type ValidateResult struct {
	Workspace   string               `json:"workspace"`
	Kernel      string               `json:"kernel"`
	Operations  int                  `json:"operations"`
	Diagnostics []overlay.Diagnostic `json:"diagnostics"`
}

// NewValidateCommand builds the validate subcommand: parse and run the
// overlay validator and the Floquet presence check only, without emitting
// control text or a timeline.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "validate FILE.squint",
		Short:         "Parse and validate overlay constraints without emitting output",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.StrictOverlays, "strict-overlays", false, "overlay violations/malformed entries become hard errors")

	return cmd
}

func runValidate(opts *ValidateOptions, srcPath string, cmd *cobra.Command) error {
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

	prog, err := parser.Parse(string(source))
	if err != nil {
		return WrapExitError(ExitParseError, "parse error", err)
	}

	var diags []overlay.Diagnostic
	for i := range prog.Kernel.Operations {
		op := &prog.Kernel.Operations[i]
		if op.Op != "ctrl" {
			continue
		}

		d, err := overlay.Validate(op, &prog.Workspace, opts.StrictOverlays)
		diags = append(diags, d...)
		if err != nil {
			return WrapExitError(ExitOverlayErr, "overlay error", err)
		}

		if _, warn := floquet.Check(op); warn != nil {
			diags = append(diags, *warn)
		}
	}

	result := ValidateResult{
		Workspace:   prog.Workspace.Name,
		Kernel:      prog.Kernel.Name,
		Operations:  len(prog.Kernel.Operations),
		Diagnostics: diags,
	}

	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: verbosityLevel(opts.Verbose)}))
	logger.Debug("validated", "workspace", result.Workspace, "kernel", result.Kernel, "diagnostics", len(diags))

	if formatter.Format == "text" {
		fmt.Fprintf(formatter.Writer, "✓ %s.%s: %d operation(s), %d diagnostic(s)\n",
			result.Workspace, result.Kernel, result.Operations, len(diags))
		for _, d := range diags {
			fmt.Fprintf(formatter.Writer, "  %s\n", d.String())
		}
		return nil
	}
	return formatter.Success(result)
}
