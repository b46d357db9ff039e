package server

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/xrt/vm/dist"
)

// cborCodec carries RunService messages as canonical CBOR, the same
// encoding program images use, so no generated stubs are needed.
type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(msg any) ([]byte, error) {
	return dist.EncMode().Marshal(msg)
}

func (cborCodec) Unmarshal(data []byte, msg any) error {
	if err := cbor.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("server: unmarshal %T: %w", msg, err)
	}
	return nil
}
