package wave

import (
	"fmt"
	"strings"
)

// TypeFlavor selects how a source type lowers at a boundary: Value
// is the in-function representation, AbiC the extern(c) one.
type TypeFlavor int

const (
	FlavorValue TypeFlavor = iota
	FlavorAbiC
)

// CoercionMode gates which conversions are legal at a use site.
type CoercionMode int

const (
	CoerceImplicit CoercionMode = iota
	CoerceExplicit
	CoerceAsm
)

// VariableInfo is one binding in the scope stack: its stack slot,
// its mutability, and its declared source type.
type VariableInfo struct {
	Slot Value
	Mut  Mutability
	Type WaveType
}

type funcSig struct {
	name   string // mangled emission name
	params []WaveType
	ret    WaveType
	abiC   bool
}

// CodeGenerator lowers a validated AST through an Emitter.  It holds
// the per-translation-unit context: the target gate, the struct
// layout registry, global constants, extern signatures, and — per
// function — a scope stack of VariableInfo.
type CodeGenerator struct {
	emitter Emitter
	target  CodegenTarget
	file    string

	structs    map[string]*StructLayout
	globals    map[string]*VariableDecl // top-level consts
	enumConsts map[string]int64
	funcs      map[string]funcSig

	scopes       []map[string]*VariableInfo
	loopExit     []*Block
	loopContinue []*Block
	currentRet   WaveType
}

func NewCodeGenerator(emitter Emitter, target CodegenTarget) *CodeGenerator {
	return &CodeGenerator{
		emitter:    emitter,
		target:     target,
		file:       "<input>",
		structs:    map[string]*StructLayout{},
		globals:    map[string]*VariableDecl{},
		enumConsts: map[string]int64{},
		funcs:      map[string]funcSig{},
	}
}

func (g *CodeGenerator) SetFile(file string) { g.file = file }

func (g *CodeGenerator) errorf(line int, format string, args ...interface{}) *CompilerError {
	return NewCompilerError(ErrCompilationFailed, fmt.Sprintf(format, args...), g.file, line, 1)
}

// lowerType maps a source type to its IR type.  Bool is i1 in value
// flavor and i8 at the C boundary; char, byte, and string follow C.
func (g *CodeGenerator) lowerType(t WaveType, flavor TypeFlavor) IRType {
	switch tt := t.(type) {
	case VoidType:
		return IRVoid{}
	case IntType:
		return IRInt{Bits: tt.Bits}
	case UintType:
		return IRInt{Bits: tt.Bits}
	case FloatType:
		return IRFloat{Bits: tt.Bits}
	case BoolType:
		if flavor == FlavorAbiC {
			return irI8
		}
		return irI1
	case CharType, ByteType:
		return irI8
	case StringType:
		return irI8Ptr
	case PointerType:
		return IRPointer{Elem: g.lowerType(tt.Inner, flavor)}
	case ArrayType:
		return IRArray{Elem: g.lowerType(tt.Inner, flavor), Len: tt.Size}
	case NamedType:
		return IRStruct{Name: tt.Name}
	}
	return irI8
}

// Generate lowers a whole translation unit.  Declarations register
// first so bodies can call forward; structs must still be declared
// before they are used inside another struct's fields.
func (g *CodeGenerator) Generate(items []TopLevel) error {
	g.emitter.SetTarget(g.target.Triple())

	// Struct layouts and named types, in declaration order.
	for _, item := range items {
		s, ok := item.(*StructDecl)
		if !ok {
			continue
		}
		if _, dup := g.structs[s.Name]; dup {
			return g.errorf(s.Line(), "struct `%s` is declared twice", s.Name)
		}
		g.structs[s.Name] = NewStructLayout(s.Name, s.Fields)
		fields := make([]IRType, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = g.lowerType(f.Type, FlavorValue)
		}
		g.emitter.DeclareStruct(s.Name, fields)
	}

	// Constants, enums, externs, and function signatures.
	for _, item := range items {
		switch n := item.(type) {
		case *VariableDecl:
			if n.Mut != MutConst {
				return g.errorf(n.Line(), "top-level variable `%s` must be const", n.Name)
			}
			g.globals[n.Name] = n
		case *EnumDecl:
			for _, variant := range n.Variants {
				g.enumConsts[variant.Name] = variant.Value
			}
		case *ExternFunction:
			if err := g.declareExtern(n); err != nil {
				return err
			}
		case *FunctionDecl:
			g.registerFunc(n.Name, n)
		case *StructDecl:
			for _, m := range n.Methods {
				g.registerFunc(mangleMethod(n.Name, m.Name), m)
			}
		case *ProtoImpl:
			if _, ok := g.structs[n.Target]; !ok {
				return g.errorf(n.Line(), "proto target `%s` is not a declared struct", n.Target)
			}
			for _, m := range n.Methods {
				g.registerFunc(mangleMethod(n.Target, m.Name), m)
			}
		}
	}

	// Function bodies.
	for _, item := range items {
		switch n := item.(type) {
		case *FunctionDecl:
			if err := g.genFunction(n.Name, n); err != nil {
				return err
			}
		case *StructDecl:
			for _, m := range n.Methods {
				if err := g.genFunction(mangleMethod(n.Name, m.Name), m); err != nil {
					return err
				}
			}
		case *ProtoImpl:
			for _, m := range n.Methods {
				if err := g.genFunction(mangleMethod(n.Target, m.Name), m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func mangleMethod(structName, method string) string {
	return structName + "_" + method
}

func (g *CodeGenerator) registerFunc(name string, fn *FunctionDecl) {
	params := make([]WaveType, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type
	}
	g.funcs[name] = funcSig{name: name, params: params, ret: fn.ReturnType}
}

// declareExtern declares an extern(c) function, lowering aggregate
// parameter and return types under the C ABI rule.
func (g *CodeGenerator) declareExtern(n *ExternFunction) error {
	params := make([]WaveType, len(n.Params))
	irParams := make([]IRType, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.Type
		irParams[i] = g.lowerType(AbiCLower(p.Type, g.structs), FlavorAbiC)
	}
	ret := g.lowerType(AbiCLower(n.ReturnType, g.structs), FlavorAbiC)
	g.emitter.DeclareExtern(n.Name, ret, irParams, false)
	g.funcs[n.Name] = funcSig{name: n.Name, params: params, ret: n.ReturnType, abiC: true}
	return nil
}

//  ---- Scopes ----

func (g *CodeGenerator) pushScope() {
	g.scopes = append(g.scopes, map[string]*VariableInfo{})
}

func (g *CodeGenerator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *CodeGenerator) bind(name string, info *VariableInfo) {
	g.scopes[len(g.scopes)-1][name] = info
}

func (g *CodeGenerator) lookupVar(name string) (*VariableInfo, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if info, ok := g.scopes[i][name]; ok {
			return info, true
		}
	}
	return nil, false
}

//  ---- Function emission ----

// genFunction lowers one function: parameters become stack slots at
// entry, the body lowers statement by statement, and a non-void
// function whose last block falls through is a fatal error.
func (g *CodeGenerator) genFunction(emitName string, fn *FunctionDecl) error {
	irParams := make([]IRParam, len(fn.Params))
	for i, p := range fn.Params {
		irParams[i] = IRParam{Name: p.Name, Type: g.lowerType(p.Type, FlavorValue)}
	}
	retType := g.lowerType(fn.ReturnType, FlavorValue)
	g.emitter.BeginFunction(emitName, retType, irParams)

	g.scopes = nil
	g.loopExit = nil
	g.loopContinue = nil
	g.currentRet = fn.ReturnType
	g.pushScope()
	defer g.popScope()

	// Spill incoming arguments into slots so parameters behave as
	// ordinary mutable bindings.
	for i, p := range fn.Params {
		t := irParams[i].Type
		slot := g.emitter.Alloca(t, p.Name+".addr")
		g.emitter.Store(NewRegValue(t, "%"+p.Name), slot)
		g.bind(p.Name, &VariableInfo{Slot: slot, Mut: MutVar, Type: p.Type})
	}

	for _, stmt := range fn.Body {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}

	if !g.emitter.CurrentBlock().Terminated() {
		if _, isVoid := fn.ReturnType.(VoidType); isVoid {
			g.emitter.RetVoid()
		} else {
			return g.errorf(fn.Line(),
				"function `%s` may reach the end of its body without returning `%s`",
				fn.Name, fn.ReturnType)
		}
	}
	return nil
}

//  ---- Coercion ----

// coerce converts val to the expected IR type under the given mode:
//
//	int <-> int      truncate / sign-extend
//	int <-> float    signed conversion
//	ptr <-> ptr      bitcast
//	int  -> ptr      Explicit/Asm only; constant zero becomes null
//	ptr  -> int      Explicit/Asm only
func (g *CodeGenerator) coerce(val Value, expected IRType, mode CoercionMode, line int) (Value, error) {
	if expected == nil || irTypeEqual(val.Type(), expected) {
		return val, nil
	}

	switch src := val.Type().(type) {
	case IRInt:
		switch dst := expected.(type) {
		case IRInt:
			if val.IsConst() {
				return NewConstValue(dst, val.Ref()), nil
			}
			if src.Bits > dst.Bits {
				return g.emitter.Cast("trunc", val, dst, "trunc"), nil
			}
			return g.emitter.Cast("sext", val, dst, "sext"), nil
		case IRFloat:
			return g.emitter.Cast("sitofp", val, dst, "sitofp"), nil
		case IRPointer:
			if mode == CoerceImplicit {
				if val.IsZeroConst() {
					return g.emitter.ConstNull(dst), nil
				}
				return Value{}, g.errorf(line,
					"implicit int to pointer conversion is not allowed (use an explicit cast)")
			}
			return g.emitter.Cast("inttoptr", val, dst, "inttoptr"), nil
		}
	case IRFloat:
		switch dst := expected.(type) {
		case IRInt:
			return g.emitter.Cast("fptosi", val, dst, "fptosi"), nil
		case IRFloat:
			if src.Bits < dst.Bits {
				return g.emitter.Cast("fpext", val, dst, "fpext"), nil
			}
			return g.emitter.Cast("fptrunc", val, dst, "fptrunc"), nil
		}
	case IRPointer:
		switch dst := expected.(type) {
		case IRPointer:
			return g.emitter.Cast("bitcast", val, dst, "bitcast"), nil
		case IRInt:
			if mode == CoerceImplicit {
				return Value{}, g.errorf(line,
					"implicit pointer to int conversion is not allowed (use an explicit cast)")
			}
			return g.emitter.Cast("ptrtoint", val, dst, "ptrtoint"), nil
		}
	}

	return Value{}, g.errorf(line, "type mismatch: expected `%s`, got `%s`",
		expected, val.Type())
}

// toCondition narrows a value to i1 for branching.
func (g *CodeGenerator) toCondition(val Value, line int) (Value, error) {
	switch t := val.Type().(type) {
	case IRInt:
		if t.Bits == 1 {
			return val, nil
		}
		zero := g.emitter.ConstInt(t, "0")
		return g.emitter.ICmp("ne", val, zero, "tobool"), nil
	case IRFloat:
		zero := g.emitter.ConstFloat(t, 0)
		return g.emitter.FCmp("one", val, zero, "tobool"), nil
	case IRPointer:
		null := g.emitter.ConstNull(t)
		return g.emitter.ICmp("ne", val, null, "tobool"), nil
	}
	return Value{}, g.errorf(line, "value of type `%s` is not a condition", val.Type())
}

// staticType infers the source-level type of an expression where one
// is statically known; printf bridging and field resolution use it.
func (g *CodeGenerator) staticType(e Expression) (WaveType, bool) {
	switch n := e.(type) {
	case *VarRef:
		if info, ok := g.lookupVar(n.Name); ok {
			return info.Type, true
		}
		if decl, ok := g.globals[n.Name]; ok {
			return decl.Type, true
		}
		if _, ok := g.enumConsts[n.Name]; ok {
			return IntType{Bits: 64}, true
		}
		return nil, false
	case *Grouped:
		return g.staticType(n.Inner)
	case *StringLit:
		return StringType{}, true
	case *BoolLit:
		return BoolType{}, true
	case *CharLit:
		return CharType{}, true
	case *FloatLit:
		return FloatType{Bits: 64}, true
	case *DerefExpr:
		inner, ok := g.staticType(n.Operand)
		if !ok {
			return nil, false
		}
		switch t := inner.(type) {
		case PointerType:
			return t.Inner, true
		case StringType:
			return ByteType{}, true
		}
		return nil, false
	case *AddressOf:
		inner, ok := g.staticType(n.Operand)
		if !ok {
			return nil, false
		}
		return PointerType{Inner: inner}, true
	case *FieldAccess:
		layout, _, err := g.fieldObjectLayout(n)
		if err != nil {
			return nil, false
		}
		t, ok := layout.FieldType(n.Field)
		return t, ok
	case *IndexAccess:
		inner, ok := g.staticType(n.Target)
		if !ok {
			return nil, false
		}
		switch t := inner.(type) {
		case ArrayType:
			return t.Inner, true
		case PointerType:
			if arr, ok := t.Inner.(ArrayType); ok {
				return arr.Inner, true
			}
			return t.Inner, true
		case StringType:
			return ByteType{}, true
		}
		return nil, false
	case *StructLit:
		return NamedType{Name: n.Name}, true
	case *CallExpr:
		if sig, ok := g.funcs[n.Name]; ok {
			return sig.ret, true
		}
		return nil, false
	case *MethodCall:
		if name, err := g.methodFuncName(n); err == nil {
			if sig, ok := g.funcs[name]; ok {
				return sig.ret, true
			}
		}
		return nil, false
	}
	return nil, false
}

// fieldObjectLayout resolves the struct layout a field access goes
// through, following one level of pointer from the object's declared
// type.
func (g *CodeGenerator) fieldObjectLayout(n *FieldAccess) (*StructLayout, bool, error) {
	objType, ok := g.staticType(n.Object)
	if !ok {
		return nil, false, g.errorf(n.Line(),
			"cannot determine the struct type of `%s`", n.Object)
	}

	viaPointer := false
	if ptr, isPtr := objType.(PointerType); isPtr {
		objType = ptr.Inner
		viaPointer = true
	}
	named, isNamed := objType.(NamedType)
	if !isNamed {
		return nil, false, g.errorf(n.Line(),
			"`%s` is not a struct; cannot access field `%s`", n.Object, n.Field)
	}
	layout, found := g.structs[named.Name]
	if !found {
		return nil, false, g.errorf(n.Line(), "unknown struct `%s`", named.Name)
	}
	if _, hasField := layout.FieldIndex[n.Field]; !hasField {
		return nil, false, g.errorf(n.Line(),
			"struct `%s` has no field `%s`", named.Name, n.Field)
	}
	return layout, viaPointer, nil
}

// methodFuncName resolves obj.method(...) to its mangled free
// function.
func (g *CodeGenerator) methodFuncName(n *MethodCall) (string, error) {
	objType, ok := g.staticType(n.Object)
	if !ok {
		return "", g.errorf(n.Line(), "cannot determine the receiver type of `%s`", n.Object)
	}
	if ptr, isPtr := objType.(PointerType); isPtr {
		objType = ptr.Inner
	}
	named, isNamed := objType.(NamedType)
	if !isNamed {
		return "", g.errorf(n.Line(),
			"method call receiver `%s` is not a struct value", n.Object)
	}
	name := mangleMethod(named.Name, n.Name)
	if _, found := g.funcs[name]; !found {
		return "", g.errorf(n.Line(), "struct `%s` has no method `%s`", named.Name, n.Name)
	}
	return name, nil
}

// runtime helpers are declared on first use.
func (g *CodeGenerator) declarePrintf() {
	g.emitter.DeclareExtern("printf", irI32, []IRType{irI8Ptr}, true)
}

func (g *CodeGenerator) declareScanf() {
	g.emitter.DeclareExtern("scanf", irI32, []IRType{irI8Ptr}, true)
}

func (g *CodeGenerator) declareExit() {
	g.emitter.DeclareExtern("exit", IRVoid{}, []IRType{irI32}, false)
}

// escapes in diagnostics read better without control characters.
func printableFormat(s string) string {
	r := strings.NewReplacer("\n", "\\n", "\t", "\\t", "\r", "\\r")
	return r.Replace(s)
}
