package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"git.home.luguber.info/inful/buildpilot/internal/config"
	"git.home.luguber.info/inful/buildpilot/internal/history"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"10"`
	RunID string `arg:"" optional:"" name:"run-id" help:"Show the stages of a single run"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.RunID != "" {
		run, err := store.Get(ctx, h.RunID)
		if err != nil {
			return err
		}
		return PrintRun(os.Stdout, run)
	}
	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	return PrintHistory(os.Stdout, runs)
}

// PrintHistory renders one line per run, newest first.
func PrintHistory(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No builds recorded yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tOUTCOME\tFAILED STAGE")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			stage.FormatDuration(r.Duration()), r.Outcome(), r.FailedStage)
	}
	return tw.Flush()
}

// PrintRun renders a single run with its stages.
func PrintRun(w io.Writer, r history.Run) error {
	_, _ = fmt.Fprintf(w, "Run %s: %s in %s\n", r.RunID, r.Outcome(), stage.FormatDuration(r.Duration()))
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range r.Stages {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			st.Status.Symbol(), st.Name, stage.FormatDuration(st.Duration), st.Error)
	}
	return tw.Flush()
}
