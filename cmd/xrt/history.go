package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/chazu/xrt/journal"
)

// historyCommand processes the `xrt history` subcommand. With a run ID it
// lists that run's threads.
func (c *cli) historyCommand(args []string) int {
	fs := newFlagSet(c, "history", "[options] [run-id]")
	limit := fs.Int("n", 20, "Number of runs to list (0 for all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if c.manifest == nil || c.manifest.JournalPath() == "" {
		return c.fail(fmt.Errorf("no [runtime] journal configured"))
	}

	j, err := journal.Open(c.manifest.JournalPath())
	if err != nil {
		return c.fail(err)
	}
	defer j.Close()

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if fs.NArg() > 0 {
		run, err := j.GetRun(fs.Arg(0))
		if err != nil {
			return c.fail(err)
		}
		threads, err := j.Threads(run.ID)
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintf(tw, "THREAD\tMETHOD\tSTATE\tDURATION\tERROR\n")
		for _, t := range threads {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID[:8], t.Method, t.State, elapsed(t.Started, t.Finished), t.Error)
		}
		return 0
	}

	runs, err := j.Runs(*limit)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(tw, "RUN\tPROGRAM\tENTRY\tSTARTED\tDURATION\tEXIT\n")
	for _, r := range runs {
		exit := "-"
		if !r.Finished.IsZero() {
			exit = fmt.Sprint(r.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Program, r.Entry, r.Started.Format(time.DateTime), elapsed(r.Started, r.Finished), exit)
	}
	return 0
}

func elapsed(start, end time.Time) string {
	if end.IsZero() {
		return "running"
	}
	return end.Sub(start).Round(time.Microsecond).String()
}
