package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/xrt/vm"
	"github.com/chazu/xrt/vm/dist"
)

// buildCommand processes the `xrt build` subcommand. The program is loaded
// into a scratch VM first so that class and import errors surface at build
// time rather than at run time.
// Usage:
//
//	xrt build prog.yaml            # ./prog.xri
//	xrt build -o out.xri prog.yaml # custom output
func (c *cli) buildCommand(args []string) int {
	fs := newFlagSet(c, "build", "[options] [program]")
	output := fs.String("o", "", "Output image path")
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
	if c.manifest != nil && c.manifest.Project.Name != "" && fs.NArg() == 0 {
		img.Name = c.manifest.Project.Name
	}

	if err := vm.NewVM().LoadProgram(img.Program); err != nil {
		return c.fail(fmt.Errorf("%s: %w", path, err))
	}

	out := *output
	switch {
	case out != "":
	case fs.NArg() == 0 && c.manifest != nil:
		out = c.manifest.OutputPath()
	default:
		out = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + dist.ImageExt
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return c.fail(err)
		}
	}
	if err := dist.WriteFile(out, img); err != nil {
		return c.fail(err)
	}

	fmt.Fprintf(c.stdout, "built %s (%s): %d classes, %d functions\n",
		out, img.ShortHash(), len(img.Program.Classes), len(img.Program.Functions))
	return 0
}
