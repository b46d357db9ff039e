package dist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/xrt/pkg/ast"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncMode returns the canonical CBOR encoding mode used for images.
func EncMode() cbor.EncMode { return cborEncMode }

// MarshalImage serializes an Image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes and verifies an Image.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("dist: unmarshal image: %w", err)
	}
	if err := img.Verify(); err != nil {
		return nil, err
	}
	return &img, nil
}

// WriteFile writes img to path.
func WriteFile(path string, img *Image) error {
	data, err := MarshalImage(img)
	if err != nil {
		return fmt.Errorf("dist: marshal image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dist: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and verifies an image file.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dist: read %s: %w", path, err)
	}
	img, err := UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Load opens a program from either an image file or a YAML/JSON program
// file, returning it as an image.
func Load(path string) (*Image, error) {
	if strings.EqualFold(filepath.Ext(path), ImageExt) {
		return ReadFile(path)
	}
	p, err := ast.LoadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewImage(name, p)
}
