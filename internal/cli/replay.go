package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/squint-run/squint/internal/session"
)

// ReplayOptions holds flags for the replay subcommand.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - a single session by content hash
}

// SessionSummary is the JSON/YAML shape for one replayed session.
type SessionSummary struct {
	Hash           string `json:"hash"`
	RunID          string `json:"run_id"`
	StrictOverlays bool   `json:"strict_overlays"`
	ControlText    string `json:"control_text"`
}

// NewReplayCommand builds the replay subcommand, which reads previously
// recorded compile sessions back out of the SQLite store written by
// `squint --db PATH` (see internal/session).
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded compile session from the session store",
		Long: `Replay reads compile sessions back from a SQLite database written by
squint --db PATH, and prints the control text and metadata that were
produced for that content hash (or every stored session, if --session is
omitted).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite session store (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay a single session by content hash")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := session.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitIOError, fmt.Sprintf("opening %s", opts.Database), err)
	}
	defer store.Close()

	ctx := context.Background()

	var sessions []session.Session
	if opts.Session != "" {
		sess, err := store.Get(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitIOError, fmt.Sprintf("session %s not found", opts.Session), err)
		}
		sessions = []session.Session{*sess}
	} else {
		sessions, err = store.List(ctx)
		if err != nil {
			return WrapExitError(ExitIOError, "listing sessions", err)
		}
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{
			Hash:           s.Hash,
			RunID:          s.RunID,
			StrictOverlays: s.StrictOverlays,
			ControlText:    s.ControlText,
		}
	}

	if formatter.Format == "text" {
		for _, s := range summaries {
			fmt.Fprintf(formatter.Writer, "%s (run %s)\n%s\n", s.Hash, s.RunID, s.ControlText)
		}
		return nil
	}
	return formatter.Success(summaries)
}
