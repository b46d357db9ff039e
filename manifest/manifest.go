// Package manifest handles xrt.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by FindAndLoad.
const FileName = "xrt.toml"

// Defaults applied by Load.
const (
	DefaultEntry      = "main"
	DefaultMaxDepth   = 10000
	DefaultServerAddr = ":4567"
)

// Manifest represents an xrt.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Program Program `toml:"program"`
	Runtime Runtime `toml:"runtime"`
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the xrt.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Program names the program to run and its entry point.
type Program struct {
	Source string `toml:"source"` // .yaml, .json or .xri, relative to Dir
	Entry  string `toml:"entry"`  // "main" or "Class.method"
	Output string `toml:"output"` // image written by xrt build
}

// Runtime configures the VM.
type Runtime struct {
	MaxDepth int      `toml:"max-depth"`
	Journal  string   `toml:"journal"` // sqlite file; empty disables the journal
	Allow    []string `toml:"allow"`   // builtin namespaces images may import; empty allows all
}

// Server configures xrt serve.
type Server struct {
	Addr string `toml:"addr"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses an xrt.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Program.Entry == "" {
		m.Program.Entry = DefaultEntry
	}
	if m.Runtime.MaxDepth <= 0 {
		m.Runtime.MaxDepth = DefaultMaxDepth
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultServerAddr
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an xrt.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// SourcePath returns the absolute path of the program source, or "" when
// none is configured.
func (m *Manifest) SourcePath() string {
	return m.resolve(m.Program.Source)
}

// OutputPath returns where xrt build writes the image. It defaults to the
// project name with the .xri extension.
func (m *Manifest) OutputPath() string {
	if m.Program.Output != "" {
		return m.resolve(m.Program.Output)
	}
	name := m.Project.Name
	if name == "" {
		name = filepath.Base(m.Dir)
	}
	return filepath.Join(m.Dir, name+".xri")
}

// JournalPath returns the absolute path of the run journal, or "" when the
// journal is disabled.
func (m *Manifest) JournalPath() string {
	return m.resolve(m.Runtime.Journal)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
