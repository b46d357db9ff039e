package vm

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorKind classifies runtime failures.
type ErrorKind int

const (
	DuplicateClass ErrorKind = iota + 1
	UnknownClass
	DuplicateFieldName
	DuplicateMethod
	UnresolvedField
	UnresolvedMethod
	DimensionMismatch
	IndexOutOfRange
	TypeMismatch
	ThreadPanicked
	ArityMismatch
	UndefinedVariable
	NullReference
	DivisionByZero
	InvalidDimensions
	StackOverflow
	UnknownBuiltin
	StaticInitCycle
)

var errorKindNames = map[ErrorKind]string{
	DuplicateClass:     "DuplicateClass",
	UnknownClass:       "UnknownClass",
	DuplicateFieldName: "DuplicateFieldName",
	DuplicateMethod:    "DuplicateMethod",
	UnresolvedField:    "UnresolvedField",
	UnresolvedMethod:   "UnresolvedMethod",
	DimensionMismatch:  "DimensionMismatch",
	IndexOutOfRange:    "IndexOutOfRange",
	TypeMismatch:       "TypeMismatch",
	ThreadPanicked:     "ThreadPanicked",
	ArityMismatch:      "ArityMismatch",
	UndefinedVariable:  "UndefinedVariable",
	NullReference:      "NullReference",
	DivisionByZero:     "DivisionByZero",
	InvalidDimensions:  "InvalidDimensions",
	StackOverflow:      "StackOverflow",
	UnknownBuiltin:     "UnknownBuiltin",
	StaticInitCycle:    "StaticInitCycle",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
}

// Error is a typed runtime failure. Every failure the runtime raises is an
// *Error; use errors.Is against the sentinels below to test the kind and
// errors.As to get the message and cause.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Where string // method and source location that raised it, if known
	Err   error  // cause, e.g. the failure inside a panicked thread
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Where != "" {
		s += " (at " + e.Where + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrTypeMismatch)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is.
var (
	ErrDuplicateClass     = &Error{Kind: DuplicateClass}
	ErrUnknownClass       = &Error{Kind: UnknownClass}
	ErrDuplicateFieldName = &Error{Kind: DuplicateFieldName}
	ErrDuplicateMethod    = &Error{Kind: DuplicateMethod}
	ErrUnresolvedField    = &Error{Kind: UnresolvedField}
	ErrUnresolvedMethod   = &Error{Kind: UnresolvedMethod}
	ErrDimensionMismatch  = &Error{Kind: DimensionMismatch}
	ErrIndexOutOfRange    = &Error{Kind: IndexOutOfRange}
	ErrTypeMismatch       = &Error{Kind: TypeMismatch}
	ErrThreadPanicked     = &Error{Kind: ThreadPanicked}
	ErrArityMismatch      = &Error{Kind: ArityMismatch}
	ErrUndefinedVariable  = &Error{Kind: UndefinedVariable}
	ErrNullReference      = &Error{Kind: NullReference}
	ErrDivisionByZero     = &Error{Kind: DivisionByZero}
	ErrInvalidDimensions  = &Error{Kind: InvalidDimensions}
	ErrStackOverflow      = &Error{Kind: StackOverflow}
	ErrUnknownBuiltin     = &Error{Kind: UnknownBuiltin}
	ErrStaticInitCycle    = &Error{Kind: StaticInitCycle}
)

// KindOf returns the kind of the first runtime error in err's tree, or 0 for
// foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
