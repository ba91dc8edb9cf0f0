package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/driverd/internal/eventstore"
)

// JournalCmd implements the 'journal' command.
type JournalCmd struct {
	RunID string        `name:"run" help:"Run ID to show; defaults to the most recent run" xor:"select"`
	Since time.Duration `name:"since" help:"List every run with events in this window instead (e.g. 24h)" xor:"select"`
	Path  string        `name:"path" help:"Journal database; overrides the config file" type:"path"`
}

func (j *JournalCmd) Run(g *Global, root *CLI) error {
	path := j.Path
	if path == "" {
		cfg, _, err := root.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return fmt.Errorf("no journal configured (set journal.path or pass --path)")
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = store.Close() }()

	if j.Since > 0 {
		now := time.Now()
		return ListRuns(context.Background(), g.out(), store, now.Add(-j.Since), now)
	}
	return ShowJournal(context.Background(), g.out(), store, j.RunID)
}

// ListRuns prints one row per run with events between start and end.
func ListRuns(ctx context.Context, out io.Writer, store eventstore.Store, start, end time.Time) error {
	runs, err := eventstore.LoadRange(ctx, store, start, end)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintf(out, "No runs since %s\n", start.Format("2006-01-02 15:04:05"))
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		stopped, reason := "running", r.Reason
		if r.StoppedAt != nil {
			stopped = r.StoppedAt.Format("2006-01-02 15:04:05")
		}
		failures := strconv.Itoa(r.Failures)
		if r.Failures > 0 {
			failures = red(failures)
		}
		rows = append(rows, []string{
			r.RunID, r.Daemon, r.StartedAt.Format("2006-01-02 15:04:05"), stopped, reason, failures,
		})
	}
	_, _ = fmt.Fprintln(out, renderTable(
		[]string{"Run", "Daemon", "Started", "Stopped", "Reason", "Failures"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

// ShowJournal prints the summary of runID, or of the latest run when empty.
func ShowJournal(ctx context.Context, out io.Writer, store *eventstore.SQLiteStore, runID string) error {
	if runID == "" {
		latest, err := store.LatestRunID(ctx)
		if err != nil {
			return fmt.Errorf("find latest run: %w", err)
		}
		if latest == "" {
			_, _ = fmt.Fprintln(out, "Journal is empty")
			return nil
		}
		runID = latest
	}

	summary, err := eventstore.LoadRun(ctx, store, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	_, _ = fmt.Fprintf(out, "Run %s\n", cyan(summary.RunID))
	if summary.Daemon != "" {
		_, _ = fmt.Fprintf(out, "Daemon: %s %s\n", summary.Daemon, summary.Version)
	}
	_, _ = fmt.Fprintf(out, "Started: %s\n", summary.StartedAt.Format("2006-01-02 15:04:05"))
	if summary.StoppedAt != nil {
		_, _ = fmt.Fprintf(out, "Stopped: %s (%s)\n", summary.StoppedAt.Format("2006-01-02 15:04:05"), summary.Reason)
	}

	phaseRows := make([][]string, 0, len(summary.Phases))
	for _, p := range summary.Phases {
		phaseRows = append(phaseRows, []string{p.Phase, p.Result, strconv.FormatInt(p.DurationMS, 10), p.Error})
	}
	_, _ = fmt.Fprintln(out, renderTable(
		[]string{"Phase", "Result", "ms", "Error"},
		phaseRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))

	driverRows := make([][]string, 0, len(summary.Drivers))
	for _, name := range summary.DriverNames() {
		driverRows = append(driverRows, []string{name, summary.Drivers[name]})
	}
	_, _ = fmt.Fprintln(out, renderTable([]string{"Driver", "Last state"}, driverRows, nil))
	_, _ = fmt.Fprintf(out, "Workspaces loaded: %d, failures: %d\n", summary.Workspaces, summary.Failures)
	return nil
}
