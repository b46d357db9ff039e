// Package ast defines the structured declarations an x-lang front end hands
// to the runtime: classes, fields, methods and the statement/expression trees
// of their bodies.
//
// Nodes are plain structs discriminated by a Type field so a Program can be
// produced by any external parser and carried as YAML, JSON or CBOR.
package ast

import (
	"fmt"
	"strings"
)

// Program is a loaded compilation unit.
type Program struct {
	Imports   []Import  `json:"imports,omitempty" yaml:"imports,omitempty"`
	Classes   []*Class  `json:"classes,omitempty" yaml:"classes,omitempty"`
	Functions []*Method `json:"functions,omitempty" yaml:"functions,omitempty"`
	// Entry is "main" (a free function) or "Class.method".
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty"`
}

// EntryPoint returns the configured entry, defaulting to "main".
func (p *Program) EntryPoint() string {
	if p.Entry == "" {
		return "main"
	}
	return p.Entry
}

// Class looks up a class declaration by name.
func (p *Program) Class(name string) *Class {
	for _, c := range p.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Function looks up a free function by name.
func (p *Program) Function(name string) *Method {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Import is `import Name from Source;`.
type Import struct {
	Name   string `json:"name" yaml:"name"`
	Source string `json:"from" yaml:"from"`
}

// Location is a position in the original source file.
type Location struct {
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
	Col  int `json:"col,omitempty" yaml:"col,omitempty"`
}

func (l Location) String() string {
	if l.Line == 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Col)
}

// Class is `class Name[: Parent] { fields; methods }`.
type Class struct {
	Name     string    `json:"name" yaml:"name"`
	Parent   string    `json:"parent,omitempty" yaml:"parent,omitempty"`
	Fields   []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods  []*Method `json:"methods,omitempty" yaml:"methods,omitempty"`
	Location Location  `json:"location,omitempty" yaml:"location,omitempty"`
}

// Constructor returns the method named after the class, if declared.
func (c *Class) Constructor() *Method {
	return c.Method(c.Name)
}

// Method looks up a method declared directly on this class.
func (c *Class) Method(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field is `say [static] name: Type [= init];`.
type Field struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Static   bool     `json:"static,omitempty" yaml:"static,omitempty"`
	Init     *Expr    `json:"init,omitempty" yaml:"init,omitempty"`
	Location Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// Param is a method parameter.
type Param struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Method is `fn name(params): Returns { body }`. Free functions use the
// same shape.
type Method struct {
	Name     string   `json:"name" yaml:"name"`
	Params   []Param  `json:"params,omitempty" yaml:"params,omitempty"`
	Returns  string   `json:"returns,omitempty" yaml:"returns,omitempty"`
	Body     []*Stmt  `json:"body,omitempty" yaml:"body,omitempty"`
	Location Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// Signature renders the method header for diagnostics.
func (m *Method) Signature() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Name + ": " + p.Type
	}
	sig := "fn " + m.Name + "(" + strings.Join(params, ", ") + ")"
	if m.Returns != "" {
		sig += ": " + m.Returns
	}
	return sig
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Statement types.
const (
	StmtVar     = "var"     // say name: Type [= Value];
	StmtAssign  = "assign"  // Target = Value;
	StmtExpr    = "expr"    // Value;
	StmtReturn  = "return"  // return [Value];
	StmtIf      = "if"      // if (Cond) { Then } else { Else }
	StmtForeach = "foreach" // foreach Name in Lower..Upper { Body }
	StmtWhile   = "while"   // while (Cond) { Body }
	StmtBreak   = "break"   // break;
)

// Stmt is a statement node. Which fields are meaningful depends on Type.
type Stmt struct {
	Type     string   `json:"type" yaml:"type"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	VarType  string   `json:"varType,omitempty" yaml:"varType,omitempty"`
	Target   *Expr    `json:"target,omitempty" yaml:"target,omitempty"`
	Value    *Expr    `json:"value,omitempty" yaml:"value,omitempty"`
	Cond     *Expr    `json:"cond,omitempty" yaml:"cond,omitempty"`
	Then     []*Stmt  `json:"then,omitempty" yaml:"then,omitempty"`
	Else     []*Stmt  `json:"else,omitempty" yaml:"else,omitempty"`
	Lower    *Expr    `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper    *Expr    `json:"upper,omitempty" yaml:"upper,omitempty"`
	Body     []*Stmt  `json:"body,omitempty" yaml:"body,omitempty"`
	Location Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Expression types.
const (
	ExprInt    = "int"
	ExprFloat  = "float"
	ExprString = "string"
	ExprBool   = "bool"
	ExprNull   = "null"
	ExprIdent  = "ident"  // Name
	ExprThis   = "this"   // this
	ExprBinary = "binary" // Left Op Right
	ExprUnary  = "unary"  // Op Operand
	ExprMember = "member" // Object.Name
	ExprCall   = "call"   // Callee(Args)
	ExprIndex  = "index"  // Object[Args...]
	ExprNew    = "new"    // new Name(Args)
	ExprSpawn  = "spawn"  // thread(Operand)
	ExprJoin   = "join"   // join(Operand)
)

// Expr is an expression node. Which fields are meaningful depends on Type.
type Expr struct {
	Type     string   `json:"type" yaml:"type"`
	Int      int64    `json:"int,omitempty" yaml:"int,omitempty"`
	Float    float64  `json:"float,omitempty" yaml:"float,omitempty"`
	Str      string   `json:"str,omitempty" yaml:"str,omitempty"`
	Bool     bool     `json:"bool,omitempty" yaml:"bool,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Op       string   `json:"op,omitempty" yaml:"op,omitempty"`
	Left     *Expr    `json:"left,omitempty" yaml:"left,omitempty"`
	Right    *Expr    `json:"right,omitempty" yaml:"right,omitempty"`
	Operand  *Expr    `json:"operand,omitempty" yaml:"operand,omitempty"`
	Object   *Expr    `json:"object,omitempty" yaml:"object,omitempty"`
	Callee   *Expr    `json:"callee,omitempty" yaml:"callee,omitempty"`
	Args     []*Expr  `json:"args,omitempty" yaml:"args,omitempty"`
	Location Location `json:"location,omitempty" yaml:"location,omitempty"`
}

// String renders an expression roughly as it would appear in source.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Type {
	case ExprInt:
		return fmt.Sprintf("%d", e.Int)
	case ExprFloat:
		return fmt.Sprintf("%g", e.Float)
	case ExprString:
		return fmt.Sprintf("%q", e.Str)
	case ExprBool:
		return fmt.Sprintf("%t", e.Bool)
	case ExprNull:
		return "null"
	case ExprIdent:
		return e.Name
	case ExprThis:
		return "this"
	case ExprBinary:
		return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
	case ExprUnary:
		return e.Op + e.Operand.String()
	case ExprMember:
		return e.Object.String() + "." + e.Name
	case ExprCall:
		return e.Callee.String() + "(" + joinExprs(e.Args) + ")"
	case ExprIndex:
		return e.Object.String() + "[" + joinExprs(e.Args) + "]"
	case ExprNew:
		return "new " + e.Name + "(" + joinExprs(e.Args) + ")"
	case ExprSpawn:
		return "thread(" + e.Operand.String() + ")"
	case ExprJoin:
		return "join(" + e.Operand.String() + ")"
	}
	return "<" + e.Type + ">"
}

func joinExprs(exprs []*Expr) string {
	parts := make([]string, len(exprs))
	for i, a := range exprs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
