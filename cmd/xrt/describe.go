package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/xrt/builtin"
	"github.com/chazu/xrt/server"
	"github.com/chazu/xrt/vm"
	"github.com/chazu/xrt/vm/dist"
)

// describeCommand processes the `xrt describe` subcommand: a class browser
// for a program that never runs it.
func (c *cli) describeCommand(args []string) int {
	fs := newFlagSet(c, "describe", "[options] [program]")
	format := fs.String("format", "text", "Output format: text or yaml")
	remote := fs.String("remote", "", "Describe on the server at this URL instead of locally")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "text" && *format != "yaml" {
		return c.fail(fmt.Errorf("unknown format %q", *format))
	}

	path, err := c.programPath(fs)
	if err != nil {
		return c.fail(err)
	}
	img, err := dist.Load(path)
	if err != nil {
		return c.fail(err)
	}

	var desc *server.DescribeResponse
	if *remote != "" {
		desc, err = server.NewClient(http.DefaultClient, *remote).Describe(context.Background(), img)
	} else {
		desc, err = describeLocal(img)
	}
	if err != nil {
		return c.fail(err)
	}

	if *format == "yaml" {
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return c.fail(err)
		}
		return 0
	}
	fmt.Fprint(c.stdout, formatDescription(desc))
	return 0
}

func describeLocal(img *dist.Image) (*server.DescribeResponse, error) {
	machine := vm.NewVM(vm.WithPrinter(builtin.NewBufferPrinter()))
	if err := machine.LoadProgram(img.Program); err != nil {
		return nil, err
	}
	desc := &server.DescribeResponse{Classes: machine.Describe()}
	for _, f := range machine.Functions() {
		desc.Functions = append(desc.Functions, f.Decl().Signature())
	}
	return desc, nil
}

func formatDescription(desc *server.DescribeResponse) string {
	var sb strings.Builder
	for _, c := range desc.Classes {
		sb.WriteString("class ")
		sb.WriteString(c.Name)
		if c.Parent != "" {
			sb.WriteString(" : ")
			sb.WriteString(c.Parent)
		}
		sb.WriteString("\n")
		for _, f := range c.Statics {
			fmt.Fprintf(&sb, "  static %s: %s%s\n", f.Name, f.Type, inherited(f.Owner, c.Name))
		}
		for _, f := range c.Fields {
			fmt.Fprintf(&sb, "  %s: %s%s\n", f.Name, f.Type, inherited(f.Owner, c.Name))
		}
		for _, m := range c.Methods {
			fmt.Fprintf(&sb, "  %s%s\n", m.Signature, inherited(m.Owner, c.Name))
		}
	}
	for _, f := range desc.Functions {
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return sb.String()
}

func inherited(owner, class string) string {
	if owner == class {
		return ""
	}
	return "  (from " + owner + ")"
}
