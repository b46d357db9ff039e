package main

import (
	"github.com/chazu/xrt/journal"
	"github.com/chazu/xrt/server"
	"github.com/chazu/xrt/vm/dist"
)

// serveCommand processes the `xrt serve` subcommand.
func (c *cli) serveCommand(args []string) int {
	fs := newFlagSet(c, "serve", "[options]")
	addr := fs.String("addr", "", "Listen address (default from xrt.toml, else :4567)")
	workers := fs.Int("workers", 0, "Programs allowed to run at once (default GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var opts []server.Option
	listen := ":4567"
	if m := c.manifest; m != nil {
		listen = m.Server.Addr
		opts = append(opts, server.WithMaxDepth(m.Runtime.MaxDepth))
		if len(m.Runtime.Allow) > 0 {
			opts = append(opts, server.WithPolicy(dist.NewRestrictedPolicy(m.Runtime.Allow)))
		}
		if path := m.JournalPath(); path != "" {
			j, err := journal.Open(path)
			if err != nil {
				return c.fail(err)
			}
			defer j.Close()
			opts = append(opts, server.WithJournal(j))
		}
	}
	if *addr != "" {
		listen = *addr
	}
	if *workers > 0 {
		opts = append(opts, server.WithWorkers(*workers))
	}

	srv := server.New(opts...)
	defer srv.Stop()
	if err := srv.ListenAndServe(listen); err != nil {
		return c.fail(err)
	}
	return 0
}
