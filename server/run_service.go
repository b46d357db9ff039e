package server

import (
	"context"
	"encoding/hex"
	"fmt"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/xrt/builtin"
	"github.com/chazu/xrt/journal"
	"github.com/chazu/xrt/vm"
	"github.com/chazu/xrt/vm/dist"
)

// RunService executes program images on fresh VMs.
type RunService struct {
	runner   *Runner
	policy   *dist.ImportPolicy
	journal  *journal.Journal // optional
	maxDepth int
	log      commonlog.Logger
}

// NewRunService creates a RunService.
func NewRunService(runner *Runner, policy *dist.ImportPolicy, j *journal.Journal, maxDepth int) *RunService {
	if policy == nil {
		policy = dist.NewPermissivePolicy()
	}
	return &RunService{
		runner:   runner,
		policy:   policy,
		journal:  j,
		maxDepth: maxDepth,
		log:      commonlog.GetLogger("xrt.server"),
	}
}

// Run verifies, loads and runs an image, then joins its threads.
func (s *RunService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	img, err := s.admit(req.Msg.Image)
	if err != nil {
		return nil, err
	}
	entry := img.Program.EntryPoint()
	if req.Msg.Entry != "" {
		entry = req.Msg.Entry
	}

	result, err := s.runner.Do(ctx, func() (any, error) {
		return s.run(img, entry)
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(result.(*RunResponse)), nil
}

// Describe loads an image without running it and lists its classes.
func (s *RunService) Describe(
	ctx context.Context,
	req *connect.Request[DescribeRequest],
) (*connect.Response[DescribeResponse], error) {
	img, err := s.admit(req.Msg.Image)
	if err != nil {
		return nil, err
	}
	machine := vm.NewVM(vm.WithPrinter(builtin.NewBufferPrinter()))
	if err := machine.LoadProgram(img.Program); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	resp := &DescribeResponse{
		Hash:    hex.EncodeToString(img.Hash[:]),
		Classes: machine.Describe(),
	}
	for _, f := range machine.Functions() {
		resp.Functions = append(resp.Functions, f.Decl().Signature())
	}
	return connect.NewResponse(resp), nil
}

// admit checks that an image is intact and allowed to run.
func (s *RunService) admit(img *dist.Image) (*dist.Image, error) {
	if img == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("image is required"))
	}
	if err := img.Verify(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.policy.Check(img); err != nil {
		return nil, connect.NewError(connect.CodePermissionDenied, err)
	}
	return img, nil
}

// run executes on a runner goroutine. Load failures are RPC errors; runtime
// failures are reported in the response.
func (s *RunService) run(img *dist.Image, entry string) (*RunResponse, error) {
	hash := hex.EncodeToString(img.Hash[:])
	out := builtin.NewBufferPrinter()
	opts := []vm.Option{vm.WithPrinter(out), vm.WithMaxDepth(s.maxDepth)}

	var rec *journal.Run
	if s.journal != nil {
		r, err := s.journal.BeginRun(img.Name, hash, entry)
		if err != nil {
			s.log.Errorf("journal: %s", err)
		} else {
			rec = r
			opts = append(opts, vm.WithObserver(rec))
		}
	}

	machine := vm.NewVM(opts...)
	if err := machine.LoadProgram(img.Program); err != nil {
		s.finish(rec, 1, err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	s.log.Infof("running %s (%s) entry %s", img.Name, img.ShortHash(), entry)
	result, code, runErr := machine.Execute(entry)
	s.finish(rec, code, runErr)

	resp := &RunResponse{
		Hash:     hash,
		ExitCode: code,
		Output:   out.Output(),
	}
	if rec != nil {
		resp.RunID = rec.ID.String()
	}
	if runErr != nil {
		resp.Error = runErr.Error()
	} else if !result.IsNull() {
		resp.Result = vm.NewInspector(machine).Inspect(result)
	}
	return resp, nil
}

func (s *RunService) finish(rec *journal.Run, code int, err error) {
	if rec == nil {
		return
	}
	if ferr := rec.Finish(code, err); ferr != nil {
		s.log.Errorf("journal: %s", ferr)
	}
}
