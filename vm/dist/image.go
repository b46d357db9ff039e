// Package dist implements program images for xrt: a decoded Program encoded
// once as canonical CBOR together with its content hash, so it can be
// stored in a .xri file or shipped to a run server and executed later
// without the front end.
package dist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"

	"github.com/chazu/xrt/pkg/ast"
)

// ImageVersion is the current image format version.
const ImageVersion = 1

// ImageExt is the file extension of program images.
const ImageExt = ".xri"

// Image is a content-addressed program. Hash covers the canonical encoding
// of Program only, so the same program always hashes the same regardless of
// name.
type Image struct {
	Version uint16       `cbor:"1,keyasint"`
	Hash    [32]byte     `cbor:"2,keyasint"`
	Name    string       `cbor:"3,keyasint,omitempty"`
	Imports []string     `cbor:"4,keyasint,omitempty"` // builtin namespaces the program needs
	Program *ast.Program `cbor:"5,keyasint"`
}

// NewImage validates p and wraps it in an image.
func NewImage(name string, p *ast.Program) (*Image, error) {
	if p == nil {
		return nil, fmt.Errorf("dist: nil program")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("dist: %w", err)
	}
	h, err := ProgramHash(p)
	if err != nil {
		return nil, err
	}
	return &Image{
		Version: ImageVersion,
		Hash:    h,
		Name:    name,
		Imports: importNames(p),
		Program: p,
	}, nil
}

// ProgramHash returns the SHA-256 of the canonical CBOR encoding of p.
func ProgramHash(p *ast.Program) ([32]byte, error) {
	data, err := cborEncMode.Marshal(p)
	if err != nil {
		return [32]byte{}, fmt.Errorf("dist: encode program: %w", err)
	}
	return sha256.Sum256(data), nil
}

// Verify checks the version, recomputes the content hash and checks that
// Imports matches the program's own import list.
func (img *Image) Verify() error {
	if img.Version != ImageVersion {
		return fmt.Errorf("dist: unsupported image version %d (want %d)", img.Version, ImageVersion)
	}
	if img.Program == nil {
		return fmt.Errorf("dist: image has no program")
	}
	computed, err := ProgramHash(img.Program)
	if err != nil {
		return err
	}
	if computed != img.Hash {
		return fmt.Errorf("dist: hash mismatch: declared %x, computed %x", img.Hash, computed)
	}
	if want := importNames(img.Program); !slices.Equal(img.Imports, want) {
		return fmt.Errorf("dist: imports mismatch: declared %v, program imports %v", img.Imports, want)
	}
	return nil
}

// Namespaces returns the builtin namespaces the image imports, read from
// the program when there is one.
func (img *Image) Namespaces() []string {
	if img.Program != nil {
		return importNames(img.Program)
	}
	return img.Imports
}

// ShortHash returns the first 12 hex digits of the hash.
func (img *Image) ShortHash() string {
	return hex.EncodeToString(img.Hash[:6])
}

func importNames(p *ast.Program) []string {
	seen := make(map[string]bool, len(p.Imports))
	var names []string
	for _, imp := range p.Imports {
		if !seen[imp.Name] {
			seen[imp.Name] = true
			names = append(names, imp.Name)
		}
	}
	sort.Strings(names)
	return names
}
