package server

import (
	"github.com/chazu/xrt/vm"
	"github.com/chazu/xrt/vm/dist"
)

// Procedure paths of the RunService.
const (
	RunServiceName    = "xrt.v1.RunService"
	RunProcedure      = "/" + RunServiceName + "/Run"
	DescribeProcedure = "/" + RunServiceName + "/Describe"
)

// RunRequest asks the server to run an image.
type RunRequest struct {
	Image *dist.Image `cbor:"1,keyasint"`
	Entry string      `cbor:"2,keyasint,omitempty"` // overrides the program's entry
}

// RunResponse reports the outcome of a run. A failing program is not an
// RPC error: ExitCode is 1 and Error carries the failure.
type RunResponse struct {
	RunID    string               `cbor:"1,keyasint,omitempty"` // journal run ID, if journaling
	Hash     string               `cbor:"2,keyasint"`
	ExitCode int                  `cbor:"3,keyasint"`
	Output   string               `cbor:"4,keyasint"`
	Error    string               `cbor:"5,keyasint,omitempty"`
	Result   *vm.InspectionResult `cbor:"6,keyasint,omitempty"`
}

// DescribeRequest asks for the classes an image defines.
type DescribeRequest struct {
	Image *dist.Image `cbor:"1,keyasint"`
}

// DescribeResponse lists the classes of an image, sorted by name.
type DescribeResponse struct {
	Hash      string         `cbor:"1,keyasint"`
	Classes   []vm.ClassInfo `cbor:"2,keyasint"`
	Functions []string       `cbor:"3,keyasint,omitempty"` // free function signatures
}
