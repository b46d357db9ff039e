// Package server exposes the runtime over Connect: clients send program
// images and get back exit codes, captured output and class descriptions.
package server

import (
	"net/http"
	"runtime"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/xrt/journal"
	"github.com/chazu/xrt/vm"
	"github.com/chazu/xrt/vm/dist"
)

// Server is the run server.
type Server struct {
	runner *Runner
	mux    *http.ServeMux
	log    commonlog.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	policy   *dist.ImportPolicy
	journal  *journal.Journal
	workers  int
	maxDepth int
}

// WithPolicy sets which builtin namespaces submitted images may import.
// If not set, a permissive policy (allow all) is used.
func WithPolicy(policy *dist.ImportPolicy) Option {
	return func(c *serverConfig) { c.policy = policy }
}

// WithJournal records every run in j.
func WithJournal(j *journal.Journal) Option {
	return func(c *serverConfig) { c.journal = j }
}

// WithWorkers sets how many programs may run at once.
func WithWorkers(n int) Option {
	return func(c *serverConfig) { c.workers = n }
}

// WithMaxDepth sets the call depth limit of every run.
func WithMaxDepth(n int) Option {
	return func(c *serverConfig) { c.maxDepth = n }
}

// New creates a Server.
func New(opts ...Option) *Server {
	cfg := &serverConfig{
		policy:   dist.NewPermissivePolicy(),
		workers:  runtime.GOMAXPROCS(0),
		maxDepth: vm.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		runner: NewRunner(cfg.workers),
		mux:    http.NewServeMux(),
		log:    commonlog.GetLogger("xrt.server"),
	}

	svc := NewRunService(s.runner, cfg.policy, cfg.journal, cfg.maxDepth)
	codec := connect.WithCodec(cborCodec{})
	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, svc.Run, codec))
	s.mux.Handle(DescribeProcedure, connect.NewUnaryHandler(DescribeProcedure, svc.Describe, codec))

	return s
}

// Handler returns the HTTP handler serving the RunService.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	s.log.Noticef("xrt run server listening on %s", addr)
	s.log.Infof("  Run:      http://%s%s", addr, RunProcedure)
	s.log.Infof("  Describe: http://%s%s", addr, DescribeProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the runner after in-flight runs finish.
func (s *Server) Stop() {
	s.runner.Stop()
}
