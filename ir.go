package wave

import (
	"fmt"
	"strings"
)

// The code generator does not talk to a native IR library directly;
// it emits through the Emitter interface below.  The in-memory
// Builder implements it by accumulating LLVM-compatible textual IR,
// which the backend driver hands to the external toolchain.

// IRType is the lowered type of an IR value.
type IRType interface {
	irType()
	String() string
}

type IRVoid struct{}

func (IRVoid) irType()        {}
func (IRVoid) String() string { return "void" }

type IRInt struct{ Bits int }

func (IRInt) irType()          {}
func (t IRInt) String() string { return fmt.Sprintf("i%d", t.Bits) }

type IRFloat struct{ Bits int } // 32 or 64

func (IRFloat) irType() {}

func (t IRFloat) String() string {
	if t.Bits == 32 {
		return "float"
	}
	return "double"
}

type IRPointer struct{ Elem IRType }

func (IRPointer) irType()          {}
func (t IRPointer) String() string { return t.Elem.String() + "*" }

type IRArray struct {
	Elem IRType
	Len  int
}

func (IRArray) irType() {}

func (t IRArray) String() string { return fmt.Sprintf("[%d x %s]", t.Len, t.Elem) }

// IRStruct is a reference to a named aggregate declared on the
// module.
type IRStruct struct{ Name string }

func (IRStruct) irType()          {}
func (t IRStruct) String() string { return "%" + t.Name }

func irTypeEqual(a, b IRType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// Common shorthands.
var (
	irI1    = IRInt{Bits: 1}
	irI8    = IRInt{Bits: 8}
	irI32   = IRInt{Bits: 32}
	irI64   = IRInt{Bits: 64}
	irI8Ptr = IRPointer{Elem: irI8}
)

//  ---- Values ----

type valueKind int

const (
	valReg valueKind = iota
	valConst
	valGlobal
	valNone // result of a void instruction
)

// Value is an SSA value: a register, a constant, or a global
// address.  Constants keep their textual form, so integers wider
// than the native word never lose precision.
type Value struct {
	kind valueKind
	text string
	typ  IRType
}

func (v Value) Type() IRType { return v.typ }

func (v Value) IsNone() bool { return v.kind == valNone }

func (v Value) IsConst() bool { return v.kind == valConst }

// IsZeroConst reports whether v is the literal integer zero; the
// only value that may implicitly become a null pointer.
func (v Value) IsZeroConst() bool {
	if v.kind != valConst {
		return false
	}
	text := strings.TrimPrefix(v.text, "-")
	for _, c := range text {
		if c != '0' {
			return false
		}
	}
	return len(text) > 0
}

// Ref renders the value as an instruction operand.
func (v Value) Ref() string { return v.text }

// TypedRef renders "type operand".
func (v Value) TypedRef() string { return v.typ.String() + " " + v.text }

func NewConstValue(t IRType, text string) Value {
	return Value{kind: valConst, text: text, typ: t}
}

func NewRegValue(t IRType, name string) Value {
	return Value{kind: valReg, text: name, typ: t}
}

var noneValue = Value{kind: valNone, typ: IRVoid{}}

//  ---- Module structure ----

// IRParam is a named function parameter.
type IRParam struct {
	Name string
	Type IRType
}

// Block is a basic block under construction.  A block is terminated
// once a branch or return has been emitted into it; further
// instructions would be unreachable and are rejected.
type Block struct {
	label      string
	insts      []string
	terminated bool
}

func (b *Block) Terminated() bool { return b.terminated }

func (b *Block) Label() string { return b.label }

type irFunc struct {
	name   string
	ret    IRType
	params []IRParam
	blocks []*Block
}

type structDef struct {
	name   string
	fields []IRType
}

type externDecl struct {
	name     string
	ret      IRType
	params   []IRType
	variadic bool
}

// Module is the in-memory translation unit: named struct layouts,
// global string constants, extern declarations, and function bodies.
type Module struct {
	triple  string
	structs []structDef
	globals []string
	externs []externDecl
	seen    map[string]bool
	funcs   []*irFunc
}

func NewModule() *Module {
	return &Module{seen: map[string]bool{}}
}
