package builtin

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// StdoutPrinter writes formatted output to a writer, one call at a time, so
// output from concurrent threads interleaves whole calls and never bytes.
type StdoutPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	terminal bool
	pending  bool // last write did not end a line
}

// NewStdoutPrinter creates a printer writing to w.
func NewStdoutPrinter(w io.Writer) *StdoutPrinter {
	p := &StdoutPrinter{w: w}
	if f, ok := w.(*os.File); ok {
		p.terminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

// Printf formats and writes one call's output.
func (p *StdoutPrinter) Printf(format string, args ...any) error {
	out := Format(format, args...)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, out); err != nil {
		return err
	}
	if out != "" {
		p.pending = !strings.HasSuffix(out, "\n")
	}
	return nil
}

// Finish ends a dangling line when writing to a terminal, so the shell
// prompt does not follow program output on the same line.
func (p *StdoutPrinter) Finish() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.terminal || !p.pending {
		return nil
	}
	p.pending = false
	_, err := io.WriteString(p.w, "\n")
	return err
}

// BufferPrinter captures formatted output in memory.
type BufferPrinter struct {
	mu    sync.Mutex
	calls []string
}

// NewBufferPrinter creates an empty capture.
func NewBufferPrinter() *BufferPrinter {
	return &BufferPrinter{}
}

// Printf formats and records one call's output.
func (p *BufferPrinter) Printf(format string, args ...any) error {
	out := Format(format, args...)
	p.mu.Lock()
	p.calls = append(p.calls, out)
	p.mu.Unlock()
	return nil
}

// Output returns everything printed so far.
func (p *BufferPrinter) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.calls, "")
}

// Calls returns the output of each Printf call in order.
func (p *BufferPrinter) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Reset discards captured output.
func (p *BufferPrinter) Reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}
