// xrt CLI - runs x-lang programs on the xrt object runtime
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/xrt/manifest"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every subcommand needs.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	manifest *manifest.Manifest // nil outside a project
	log      commonlog.Logger
}

type command struct {
	name    string
	summary string
	run     func(c *cli, args []string) int
}

var commands = []command{
	{"run", "run a program (.yaml, .json or .xri)", (*cli).runCommand},
	{"build", "compile a program into an .xri image", (*cli).buildCommand},
	{"describe", "list the classes and methods of a program", (*cli).describeCommand},
	{"serve", "start the run server", (*cli).serveCommand},
	{"history", "list recorded runs from the journal", (*cli).historyCommand},
}

func runCLI(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("xrt", flag.ContinueOnError)
	global.SetOutput(stderr)
	verbosity := global.Int("v", -1, "Log verbosity (overrides [log] verbosity in xrt.toml)")
	logFile := global.String("log", "", "Log file (default stderr)")
	global.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xrt [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, cmd := range commands {
			fmt.Fprintf(stderr, "  %-9s %s\n", cmd.name, cmd.summary)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		global.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  xrt run examples/workers.yaml           # run main\n")
		fmt.Fprintf(stderr, "  xrt run -entry Main.start prog.yaml     # run a class method\n")
		fmt.Fprintf(stderr, "  xrt build -o prog.xri prog.yaml         # build an image\n")
		fmt.Fprintf(stderr, "  xrt serve -addr :4567                   # start the run server\n")
		fmt.Fprintf(stderr, "  xrt run -remote http://host:4567 prog.xri\n")
	}
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	c := &cli{stdout: stdout, stderr: stderr}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return c.fail(err)
	}
	c.manifest = m

	level, path := 0, *logFile
	if m != nil {
		level = m.Log.Verbosity
		if path == "" && m.Log.File != "" {
			path = m.Log.File
		}
	}
	if *verbosity >= 0 {
		level = *verbosity
	}
	if path != "" {
		commonlog.Configure(level, &path)
	} else {
		commonlog.Configure(level, nil)
	}
	c.log = commonlog.GetLogger("xrt.cli")
	if m != nil {
		c.log.Debugf("using manifest %s", m.Dir)
	}

	name := global.Arg(0)
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(c, global.Args()[1:])
		}
	}
	fmt.Fprintf(stderr, "xrt: unknown command %q\n\n", name)
	global.Usage()
	return 2
}

// fail reports err and returns exit code 1. The prefix is red when stderr is
// a terminal.
func (c *cli) fail(err error) int {
	prefix := "Error:"
	if f, ok := c.stderr.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		prefix = "\x1b[31mError:\x1b[0m"
	}
	fmt.Fprintf(c.stderr, "%s %v\n", prefix, err)
	return 1
}

// programPath returns the program named on the command line, falling back
// to [program] source in xrt.toml.
func (c *cli) programPath(fs *flag.FlagSet) (string, error) {
	if fs.NArg() > 0 {
		return fs.Arg(0), nil
	}
	if c.manifest != nil && c.manifest.SourcePath() != "" {
		return c.manifest.SourcePath(), nil
	}
	return "", fmt.Errorf("no program given and no [program] source in %s", manifest.FileName)
}

// manifestEntry returns the entry configured in xrt.toml, or "".
func (c *cli) manifestEntry() string {
	if c.manifest == nil {
		return ""
	}
	return c.manifest.Program.Entry
}

func newFlagSet(c *cli, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet("xrt "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: xrt %s %s\n\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}
