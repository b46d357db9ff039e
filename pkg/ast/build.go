package ast

// Constructors for building declarations in Go code. Hosts that embed the
// runtime without an external front end, and the tests, use these.

func Int(n int64) *Expr       { return &Expr{Type: ExprInt, Int: n} }
func Float(f float64) *Expr   { return &Expr{Type: ExprFloat, Float: f} }
func Str(s string) *Expr      { return &Expr{Type: ExprString, Str: s} }
func Bool(b bool) *Expr       { return &Expr{Type: ExprBool, Bool: b} }
func Null() *Expr             { return &Expr{Type: ExprNull} }
func Ident(name string) *Expr { return &Expr{Type: ExprIdent, Name: name} }
func This() *Expr             { return &Expr{Type: ExprThis} }

func Binary(op string, left, right *Expr) *Expr {
	return &Expr{Type: ExprBinary, Op: op, Left: left, Right: right}
}

func Unary(op string, operand *Expr) *Expr {
	return &Expr{Type: ExprUnary, Op: op, Operand: operand}
}

// Member is `object.name`.
func Member(object *Expr, name string) *Expr {
	return &Expr{Type: ExprMember, Object: object, Name: name}
}

// Call is `callee(args...)`.
func Call(callee *Expr, args ...*Expr) *Expr {
	return &Expr{Type: ExprCall, Callee: callee, Args: args}
}

// Send is shorthand for `object.name(args...)`.
func Send(object *Expr, name string, args ...*Expr) *Expr {
	return Call(Member(object, name), args...)
}

// Index is `object[i1, i2, ...]`.
func Index(object *Expr, indices ...*Expr) *Expr {
	return &Expr{Type: ExprIndex, Object: object, Args: indices}
}

// New is `new Class(args...)`.
func New(class string, args ...*Expr) *Expr {
	return &Expr{Type: ExprNew, Name: class, Args: args}
}

// Spawn is `thread(target)`.
func Spawn(target *Expr) *Expr {
	return &Expr{Type: ExprSpawn, Operand: target}
}

// Join is `join(handle)`.
func Join(handle *Expr) *Expr {
	return &Expr{Type: ExprJoin, Operand: handle}
}

// Var is `say name: typ [= init];`.
func Var(name, typ string, init *Expr) *Stmt {
	return &Stmt{Type: StmtVar, Name: name, VarType: typ, Value: init}
}

func Assign(target, value *Expr) *Stmt {
	return &Stmt{Type: StmtAssign, Target: target, Value: value}
}

func Do(e *Expr) *Stmt { return &Stmt{Type: StmtExpr, Value: e} }

func Return(e *Expr) *Stmt { return &Stmt{Type: StmtReturn, Value: e} }

func If(cond *Expr, then []*Stmt, els []*Stmt) *Stmt {
	return &Stmt{Type: StmtIf, Cond: cond, Then: then, Else: els}
}

// Foreach is `foreach name in lower..upper { body }`.
func Foreach(name string, lower, upper *Expr, body ...*Stmt) *Stmt {
	return &Stmt{Type: StmtForeach, Name: name, Lower: lower, Upper: upper, Body: body}
}

func While(cond *Expr, body ...*Stmt) *Stmt {
	return &Stmt{Type: StmtWhile, Cond: cond, Body: body}
}

func Break() *Stmt { return &Stmt{Type: StmtBreak} }

// Fn declares a method or free function.
func Fn(name string, returns string, params []Param, body ...*Stmt) *Method {
	return &Method{Name: name, Params: params, Returns: returns, Body: body}
}

// Params builds a parameter list from alternating name/type strings.
func Params(nameTypes ...string) []Param {
	params := make([]Param, 0, len(nameTypes)/2)
	for i := 0; i+1 < len(nameTypes); i += 2 {
		params = append(params, Param{Name: nameTypes[i], Type: nameTypes[i+1]})
	}
	return params
}

// Builtins returns the import list `import name from builtin;` for each name.
func Builtins(names ...string) []Import {
	imports := make([]Import, len(names))
	for i, n := range names {
		imports[i] = Import{Name: n, Source: BuiltinSource}
	}
	return imports
}

// BuiltinSource is the only import source the runtime understands.
const BuiltinSource = "builtin"
