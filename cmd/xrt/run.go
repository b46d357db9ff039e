package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/chazu/xrt/builtin"
	"github.com/chazu/xrt/journal"
	"github.com/chazu/xrt/server"
	"github.com/chazu/xrt/vm"
	"github.com/chazu/xrt/vm/dist"
)

// runCommand processes the `xrt run` subcommand.
// Usage:
//
//	xrt run prog.yaml                  # run main
//	xrt run -entry Main.start prog.xri # run a class method
//	xrt run                            # run [program] source from xrt.toml
func (c *cli) runCommand(args []string) int {
	fs := newFlagSet(c, "run", "[options] [program]")
	entry := fs.String("entry", "", "Entry point: a function name or Class.method (default from the program)")
	maxDepth := fs.Int("max-depth", 0, "Call depth limit")
	remote := fs.String("remote", "", "Run on the server at this URL instead of locally")
	noJournal := fs.Bool("no-journal", false, "Do not record this run in the journal")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path, err := c.programPath(fs)
	if err != nil {
		return c.fail(err)
	}
	img, err := dist.Load(path)
	if err != nil {
		return c.fail(err)
	}
	// The image itself is never modified: that would break its hash.
	if *entry == "" && img.Program.Entry == "" {
		*entry = c.manifestEntry()
	}

	if *remote != "" {
		return c.runRemote(*remote, img, *entry)
	}
	entryPoint := img.Program.EntryPoint()
	if *entry != "" {
		entryPoint = *entry
	}

	if *maxDepth <= 0 && c.manifest != nil {
		*maxDepth = c.manifest.Runtime.MaxDepth
	}
	out := builtin.NewStdoutPrinter(c.stdout)
	opts := []vm.Option{vm.WithPrinter(out), vm.WithMaxDepth(*maxDepth)}

	var rec *journal.Run
	if !*noJournal && c.manifest != nil && c.manifest.JournalPath() != "" {
		j, err := journal.Open(c.manifest.JournalPath())
		if err != nil {
			return c.fail(err)
		}
		defer j.Close()
		rec, err = j.BeginRun(img.Name, hex.EncodeToString(img.Hash[:]), entryPoint)
		if err != nil {
			return c.fail(err)
		}
		opts = append(opts, vm.WithObserver(rec))
	}

	c.log.Infof("running %s (%s)", img.Name, img.ShortHash())
	machine := vm.NewVM(opts...)
	code, runErr := 1, machine.LoadProgram(img.Program)
	if runErr == nil {
		_, code, runErr = machine.Execute(entryPoint)
	}
	out.Finish()

	if rec != nil {
		if err := rec.Finish(code, runErr); err != nil {
			c.log.Errorf("journal: %s", err)
		}
	}
	if runErr != nil {
		c.fail(runErr)
	}
	return code
}

func (c *cli) runRemote(url string, img *dist.Image, entry string) int {
	client := server.NewClient(http.DefaultClient, url)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	resp, err := client.Run(ctx, img, entry)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprint(c.stdout, resp.Output)
	if resp.RunID != "" {
		c.log.Infof("remote run %s", resp.RunID)
	}
	if resp.Error != "" {
		c.fail(fmt.Errorf("%s", resp.Error))
	}
	return resp.ExitCode
}
