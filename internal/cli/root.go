package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every command.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
}

// ValidFormats defines the allowed --format values.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand builds the squint root command. Unlike the teacher's
// subcommand-per-verb layout, squint's primary action (compile-and-emit) is
// the root command itself (spec §6.1: `squint [FILE.squint] [flags]`);
// replay, validate, and trace are the true subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "squint [FILE.squint]",
		Short: "squint - compiler for the hybrid quantum-control/semantic-field DSL",
		Long: `squint parses a .squint source file, validates its overlay constraints,
emits control text and a scheduler timeline, and optionally runs the
deterministic toy simulator.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostic output on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format for command summaries (text|json|yaml)")

	compileOpts := &CompileOptions{RootOptions: opts}
	cmd.Flags().StringVar(&compileOpts.Out, "out", "", "path for control text (default <FILE>.qua.txt)")
	cmd.Flags().BoolVar(&compileOpts.Log, "log", false, "write <FILE>.log.json")
	cmd.Flags().BoolVar(&compileOpts.Simulate, "simulate", false, "write <FILE>.sim.json and <FILE>.sim.txt")
	cmd.Flags().BoolVar(&compileOpts.StrictOverlays, "strict-overlays", false, "overlay violations/malformed entries become hard errors")
	cmd.Flags().StringVar(&compileOpts.Database, "db", "", "optional path to a SQLite session store to record this compile")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		file := "CalibratedEPR.squint"
		if len(args) == 1 {
			file = args[0]
		}
		return runCompile(compileOpts, file, cmd)
	}

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
