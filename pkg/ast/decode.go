package ast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeYAML reads a Program from YAML.
func DecodeYAML(r io.Reader) (*Program, error) {
	var p Program
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("ast: empty program")
		}
		return nil, fmt.Errorf("ast: decode yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeJSON reads a Program from JSON.
func DecodeJSON(r io.Reader) (*Program, error) {
	var p Program
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("ast: empty program")
		}
		return nil, fmt.Errorf("ast: decode json: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile decodes a Program from a .yaml/.yml or .json file.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var p *Program
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		p, err = DecodeJSON(bytes.NewReader(data))
	case ".yaml", ".yml":
		p, err = DecodeYAML(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%s: unsupported program format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Structural validation
// ---------------------------------------------------------------------------

// Validate checks that every node carries the fields its Type requires.
// It is a shape check only; name resolution happens in the runtime.
func (p *Program) Validate() error {
	var errs []error
	for _, c := range p.Classes {
		if c == nil || c.Name == "" {
			errs = append(errs, fmt.Errorf("class without a name"))
			continue
		}
		for _, f := range c.Fields {
			if f.Name == "" {
				errs = append(errs, fmt.Errorf("class %s: field without a name at %s", c.Name, f.Location))
			}
			if f.Init != nil {
				errs = append(errs, validateExpr(f.Init)...)
			}
		}
		for _, m := range c.Methods {
			errs = append(errs, validateMethod(c.Name+".", m)...)
		}
	}
	for _, f := range p.Functions {
		errs = append(errs, validateMethod("", f)...)
	}
	return errors.Join(errs...)
}

func validateMethod(prefix string, m *Method) []error {
	if m == nil || m.Name == "" {
		return []error{fmt.Errorf("%smethod without a name", prefix)}
	}
	var errs []error
	for _, s := range m.Body {
		for _, err := range validateStmt(s) {
			errs = append(errs, fmt.Errorf("%s%s: %w", prefix, m.Name, err))
		}
	}
	return errs
}

func validateStmts(stmts []*Stmt) []error {
	var errs []error
	for _, s := range stmts {
		errs = append(errs, validateStmt(s)...)
	}
	return errs
}

func validateStmt(s *Stmt) []error {
	if s == nil {
		return []error{fmt.Errorf("nil statement")}
	}
	var errs []error
	need := func(e *Expr, field string) {
		if e == nil {
			errs = append(errs, fmt.Errorf("%s statement at %s: missing %s", s.Type, s.Location, field))
			return
		}
		errs = append(errs, validateExpr(e)...)
	}
	switch s.Type {
	case StmtVar:
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("var statement at %s: missing name", s.Location))
		}
		if s.Value != nil {
			errs = append(errs, validateExpr(s.Value)...)
		}
	case StmtAssign:
		need(s.Target, "target")
		need(s.Value, "value")
		if s.Target != nil {
			switch s.Target.Type {
			case ExprIdent, ExprMember, ExprIndex:
			default:
				errs = append(errs, fmt.Errorf("assign statement at %s: cannot assign to %s", s.Location, s.Target.Type))
			}
		}
	case StmtExpr:
		need(s.Value, "value")
	case StmtReturn:
		if s.Value != nil {
			errs = append(errs, validateExpr(s.Value)...)
		}
	case StmtIf:
		need(s.Cond, "cond")
		errs = append(errs, validateStmts(s.Then)...)
		errs = append(errs, validateStmts(s.Else)...)
	case StmtForeach:
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("foreach statement at %s: missing name", s.Location))
		}
		need(s.Lower, "lower")
		need(s.Upper, "upper")
		errs = append(errs, validateStmts(s.Body)...)
	case StmtWhile:
		need(s.Cond, "cond")
		errs = append(errs, validateStmts(s.Body)...)
	case StmtBreak:
	default:
		errs = append(errs, fmt.Errorf("unknown statement type %q at %s", s.Type, s.Location))
	}
	return errs
}

func validateExpr(e *Expr) []error {
	var errs []error
	need := func(sub *Expr, field string) {
		if sub == nil {
			errs = append(errs, fmt.Errorf("%s expression at %s: missing %s", e.Type, e.Location, field))
			return
		}
		errs = append(errs, validateExpr(sub)...)
	}
	args := func() {
		for _, a := range e.Args {
			need(a, "argument")
		}
	}
	switch e.Type {
	case ExprInt, ExprFloat, ExprString, ExprBool, ExprNull, ExprThis:
	case ExprIdent:
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("ident expression at %s: missing name", e.Location))
		}
	case ExprBinary:
		need(e.Left, "left")
		need(e.Right, "right")
	case ExprUnary, ExprSpawn, ExprJoin:
		need(e.Operand, "operand")
	case ExprMember:
		need(e.Object, "object")
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("member expression at %s: missing name", e.Location))
		}
	case ExprCall:
		need(e.Callee, "callee")
		args()
	case ExprIndex:
		need(e.Object, "object")
		if len(e.Args) == 0 {
			errs = append(errs, fmt.Errorf("index expression at %s: no indices", e.Location))
		}
		args()
	case ExprNew:
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("new expression at %s: missing class name", e.Location))
		}
		args()
	default:
		errs = append(errs, fmt.Errorf("unknown expression type %q at %s", e.Type, e.Location))
	}
	return errs
}
