package wave

import (
	"math"
	"strconv"
	"strings"
)

// Expression lowering produces a value of a lowered type.  An
// expected-type hint flows down so literals pick their width at the
// point of use; nil means no preference (integers default to i64).

func (g *CodeGenerator) genExpr(e Expression, expected IRType) (Value, error) {
	switch n := e.(type) {
	case *IntLit:
		return g.genIntLit(n, expected)
	case *FloatLit:
		return g.genFloatLit(n, expected)
	case *CharLit:
		return g.genSmallIntConst(int64(n.Value), expected), nil
	case *BoolLit:
		v := int64(0)
		if n.Value {
			v = 1
		}
		if expected == nil {
			expected = irI1
		}
		return g.genSmallIntConst(v, expected), nil
	case *StringLit:
		return g.emitter.GlobalString(n.Value), nil
	case *NullLit:
		if expected == nil {
			return g.emitter.ConstNull(irI8Ptr), nil
		}
		if ptr, ok := expected.(IRPointer); ok {
			return g.emitter.ConstNull(ptr), nil
		}
		return Value{}, g.errorf(n.Line(), "`null` requires a pointer destination, got `%s`", expected)
	case *VarRef:
		return g.genVarRef(n, expected)
	case *Grouped:
		return g.genExpr(n.Inner, expected)
	case *Unary:
		return g.genUnary(n)
	case *Binary:
		return g.genBinary(n, expected)
	case *Assign:
		return g.genAssignExpr(n.Target, n.Value, n.Line())
	case *AssignOp:
		return g.genAssignOpExpr(n)
	case *IncDec:
		return g.genIncDec(n)
	case *AddressOf:
		addr, _, err := g.genAddr(n.Operand)
		if err != nil {
			return Value{}, err
		}
		if expected != nil {
			return g.coerce(addr, expected, CoerceImplicit, n.Line())
		}
		return addr, nil
	case *DerefExpr:
		addr, pointee, err := g.genAddr(n)
		if err != nil {
			return Value{}, err
		}
		return g.emitter.Load(g.lowerType(pointee, FlavorValue), addr, "deref"), nil
	case *FieldAccess:
		addr, fieldType, err := g.genAddr(n)
		if err != nil {
			return Value{}, err
		}
		return g.emitter.Load(g.lowerType(fieldType, FlavorValue), addr, "field"), nil
	case *IndexAccess:
		addr, elemType, err := g.genAddr(n)
		if err != nil {
			return Value{}, err
		}
		return g.emitter.Load(g.lowerType(elemType, FlavorValue), addr, "elem"), nil
	case *CallExpr:
		return g.genCall(n)
	case *MethodCall:
		return g.genMethodCall(n)
	case *StructLit:
		return g.genStructLit(n)
	case *ArrayLit:
		return g.genArrayLit(n, expected)
	case *AsmExpr:
		return g.genAsmExpr(n)
	}
	return Value{}, g.errorf(e.Line(), "unsupported expression `%s`", e)
}

//  ---- Literals ----

func (g *CodeGenerator) genIntLit(n *IntLit, expected IRType) (Value, error) {
	text := strings.TrimSpace(n.Text)
	if err := checkDecimal(text); err != nil {
		return Value{}, g.errorf(n.Line(), "invalid integer literal `%s`", n.Text)
	}

	switch dst := expected.(type) {
	case nil:
		return g.emitter.ConstInt(irI64, text), nil
	case IRInt:
		return g.emitter.ConstInt(dst, text), nil
	case IRFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, g.errorf(n.Line(), "integer literal `%s` does not fit a float", n.Text)
		}
		return g.emitter.ConstFloat(dst, f), nil
	case IRPointer:
		// Only the zero constant becomes a pointer implicitly.
		v := g.emitter.ConstInt(irI64, text)
		return g.coerce(v, dst, CoerceImplicit, n.Line())
	case IRArray:
		return g.genIntLit(n, dst.Elem)
	}
	return Value{}, g.errorf(n.Line(), "integer literal cannot initialize `%s`", expected)
}

func checkDecimal(text string) error {
	digits := strings.TrimPrefix(text, "-")
	if digits == "" {
		return strconv.ErrSyntax
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return strconv.ErrSyntax
		}
	}
	return nil
}

func (g *CodeGenerator) genFloatLit(n *FloatLit, expected IRType) (Value, error) {
	switch dst := expected.(type) {
	case nil:
		return g.emitter.ConstFloat(IRFloat{Bits: 64}, n.Value), nil
	case IRFloat:
		return g.emitter.ConstFloat(dst, n.Value), nil
	case IRInt:
		return g.emitter.ConstInt(dst, strconv.FormatInt(int64(math.Trunc(n.Value)), 10)), nil
	}
	return Value{}, g.errorf(n.Line(), "float literal cannot initialize `%s`", expected)
}

func (g *CodeGenerator) genSmallIntConst(v int64, expected IRType) Value {
	t := irI8
	if it, ok := expected.(IRInt); ok {
		t = it
	}
	return g.emitter.ConstInt(t, strconv.FormatInt(v, 10))
}

//  ---- Variables and constants ----

func (g *CodeGenerator) genVarRef(n *VarRef, expected IRType) (Value, error) {
	if info, ok := g.lookupVar(n.Name); ok {
		t := g.lowerType(info.Type, FlavorValue)
		val := g.emitter.Load(t, info.Slot, n.Name)
		if expected != nil {
			return g.coerce(val, expected, CoerceImplicit, n.Line())
		}
		return val, nil
	}
	if decl, ok := g.globals[n.Name]; ok {
		hint := expected
		if hint == nil {
			hint = g.lowerType(decl.Type, FlavorValue)
		}
		return g.genExpr(decl.Init, hint)
	}
	if v, ok := g.enumConsts[n.Name]; ok {
		t := IRType(irI64)
		if it, isInt := expected.(IRInt); isInt {
			t = it
		}
		return g.emitter.ConstInt(t, strconv.FormatInt(v, 10)), nil
	}
	return Value{}, g.errorf(n.Line(), "use of undeclared identifier `%s`", n.Name)
}

//  ---- Unary and binary operators ----

func (g *CodeGenerator) genUnary(n *Unary) (Value, error) {
	val, err := g.genExpr(n.Operand, nil)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case UnaryNot:
		cond, err := g.toCondition(val, n.Line())
		if err != nil {
			return Value{}, err
		}
		one := g.emitter.ConstInt(irI1, "1")
		return g.emitter.BinOp("xor", cond, one, "not"), nil
	case UnaryBitwiseNot:
		it, ok := val.Type().(IRInt)
		if !ok {
			return Value{}, g.errorf(n.Line(), "`~` requires an integer operand, got `%s`", val.Type())
		}
		allOnes := g.emitter.ConstInt(it, "-1")
		return g.emitter.BinOp("xor", val, allOnes, "bnot"), nil
	case UnaryNeg:
		switch t := val.Type().(type) {
		case IRInt:
			zero := g.emitter.ConstInt(t, "0")
			return g.emitter.BinOp("sub", zero, val, "neg"), nil
		case IRFloat:
			zero := g.emitter.ConstFloat(t, 0)
			return g.emitter.BinOp("fsub", zero, val, "fneg"), nil
		}
		return Value{}, g.errorf(n.Line(), "`-` requires a numeric operand, got `%s`", val.Type())
	}
	return Value{}, g.errorf(n.Line(), "unsupported unary operator")
}

func (g *CodeGenerator) genBinary(n *Binary, expected IRType) (Value, error) {
	lhs, err := g.genExpr(n.Left, nil)
	if err != nil {
		return Value{}, err
	}
	rhs, err := g.genExpr(n.Right, nil)
	if err != nil {
		return Value{}, err
	}

	lInt, lIsInt := lhs.Type().(IRInt)
	rInt, rIsInt := rhs.Type().(IRInt)
	_, lIsFloat := lhs.Type().(IRFloat)
	_, rIsFloat := rhs.Type().(IRFloat)

	var result Value
	switch {
	case lIsInt && rIsInt:
		// Shift amounts take the left operand's width; everything
		// else unifies to the wider operand.
		if n.Op == OpShl || n.Op == OpShr {
			if lInt.Bits != rInt.Bits {
				rhs, err = g.coerce(rhs, lInt, CoerceImplicit, n.Line())
				if err != nil {
					return Value{}, err
				}
			}
		} else if lInt.Bits != rInt.Bits {
			if lInt.Bits < rInt.Bits {
				lhs = g.widenInt(lhs, rInt)
			} else {
				rhs = g.widenInt(rhs, lInt)
			}
		}
		result, err = g.genIntBinop(n, lhs, rhs)
	case lIsFloat && rIsFloat:
		result, err = g.genFloatBinop(n, lhs, rhs)
	case lIsInt && rIsFloat:
		lhs = g.emitter.Cast("sitofp", lhs, rhs.Type(), "sitofp")
		result, err = g.genFloatBinop(n, lhs, rhs)
	case lIsFloat && rIsInt:
		rhs = g.emitter.Cast("sitofp", rhs, lhs.Type(), "sitofp")
		result, err = g.genFloatBinop(n, lhs, rhs)
	default:
		if _, lp := lhs.Type().(IRPointer); lp {
			if _, rp := rhs.Type().(IRPointer); rp && (n.Op == OpEqual || n.Op == OpNotEqual) {
				pred := "eq"
				if n.Op == OpNotEqual {
					pred = "ne"
				}
				rhs, err = g.coerce(rhs, lhs.Type(), CoerceImplicit, n.Line())
				if err != nil {
					return Value{}, err
				}
				return g.emitter.ICmp(pred, lhs, rhs, "pcmp"), nil
			}
		}
		return Value{}, g.errorf(n.Line(), "operator `%s` cannot combine `%s` and `%s`",
			n.Op, lhs.Type(), rhs.Type())
	}
	if err != nil {
		return Value{}, err
	}

	if it, ok := expected.(IRInt); ok {
		if rt, isInt := result.Type().(IRInt); isInt && rt.Bits != it.Bits {
			return g.coerce(result, it, CoerceImplicit, n.Line())
		}
	}
	return result, nil
}

func (g *CodeGenerator) widenInt(v Value, to IRInt) Value {
	if v.IsConst() {
		return NewConstValue(to, v.Ref())
	}
	return g.emitter.Cast("zext", v, to, "zext")
}

var intBinops = map[BinaryOp]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul",
	OpDiv: "sdiv", OpRem: "srem",
	OpShl: "shl", OpShr: "ashr",
	OpBitwiseAnd: "and", OpBitwiseOr: "or", OpBitwiseXor: "xor",
}

var intCmpPreds = map[BinaryOp]string{
	OpEqual: "eq", OpNotEqual: "ne",
	OpLess: "slt", OpLessEq: "sle",
	OpGreater: "sgt", OpGreaterEq: "sge",
}

func (g *CodeGenerator) genIntBinop(n *Binary, lhs, rhs Value) (Value, error) {
	if op, ok := intBinops[n.Op]; ok {
		return g.emitter.BinOp(op, lhs, rhs, "tmp"), nil
	}
	if pred, ok := intCmpPreds[n.Op]; ok {
		return g.emitter.ICmp(pred, lhs, rhs, "cmp"), nil
	}
	switch n.Op {
	case OpLogicalAnd, OpLogicalOr:
		lb, err := g.toCondition(lhs, n.Line())
		if err != nil {
			return Value{}, err
		}
		rb, err := g.toCondition(rhs, n.Line())
		if err != nil {
			return Value{}, err
		}
		op := "and"
		if n.Op == OpLogicalOr {
			op = "or"
		}
		return g.emitter.BinOp(op, lb, rb, "logic"), nil
	}
	return Value{}, g.errorf(n.Line(), "unsupported integer operator `%s`", n.Op)
}

var floatBinops = map[BinaryOp]string{
	OpAdd: "fadd", OpSub: "fsub", OpMul: "fmul", OpDiv: "fdiv", OpRem: "frem",
}

var floatCmpPreds = map[BinaryOp]string{
	OpEqual: "oeq", OpNotEqual: "one",
	OpLess: "olt", OpLessEq: "ole",
	OpGreater: "ogt", OpGreaterEq: "oge",
}

func (g *CodeGenerator) genFloatBinop(n *Binary, lhs, rhs Value) (Value, error) {
	if op, ok := floatBinops[n.Op]; ok {
		return g.emitter.BinOp(op, lhs, rhs, "ftmp"), nil
	}
	if pred, ok := floatCmpPreds[n.Op]; ok {
		return g.emitter.FCmp(pred, lhs, rhs, "fcmp"), nil
	}
	return Value{}, g.errorf(n.Line(), "unsupported float operator `%s`", n.Op)
}

//  ---- Assignment forms ----

func (g *CodeGenerator) genAssignExpr(target, value Expression, line int) (Value, error) {
	addr, pointee, err := g.genAddr(target)
	if err != nil {
		return Value{}, err
	}
	t := g.lowerType(pointee, FlavorValue)
	val, err := g.genExpr(value, t)
	if err != nil {
		return Value{}, err
	}
	val, err = g.coerce(val, t, CoerceImplicit, line)
	if err != nil {
		return Value{}, err
	}
	g.emitter.Store(val, addr)
	return val, nil
}

func (g *CodeGenerator) genAssignOpExpr(n *AssignOp) (Value, error) {
	addr, pointee, err := g.genAddr(n.Target)
	if err != nil {
		return Value{}, err
	}
	t := g.lowerType(pointee, FlavorValue)
	current := g.emitter.Load(t, addr, "cur")
	rhs, err := g.genExpr(n.Value, t)
	if err != nil {
		return Value{}, err
	}
	rhs, err = g.coerce(rhs, t, CoerceImplicit, n.Line())
	if err != nil {
		return Value{}, err
	}

	var result Value
	switch t.(type) {
	case IRInt:
		result = g.emitter.BinOp(intBinops[n.Op.Binop()], current, rhs, "aop")
	case IRFloat:
		result = g.emitter.BinOp(floatBinops[n.Op.Binop()], current, rhs, "faop")
	default:
		return Value{}, g.errorf(n.Line(), "`%s` requires a numeric target, got `%s`", n.Op, t)
	}
	g.emitter.Store(result, addr)
	return result, nil
}

// genIncDec loads, adds or subtracts one, stores.  The prefix form
// yields the new value, the postfix form the old one.
func (g *CodeGenerator) genIncDec(n *IncDec) (Value, error) {
	addr, pointee, err := g.genAddr(n.Target)
	if err != nil {
		return Value{}, err
	}
	t := g.lowerType(pointee, FlavorValue)
	old := g.emitter.Load(t, addr, "idval")

	var updated Value
	switch tt := t.(type) {
	case IRInt:
		one := g.emitter.ConstInt(tt, "1")
		op := "add"
		if n.Kind == PreDec || n.Kind == PostDec {
			op = "sub"
		}
		updated = g.emitter.BinOp(op, old, one, "idnew")
	case IRFloat:
		one := g.emitter.ConstFloat(tt, 1)
		op := "fadd"
		if n.Kind == PreDec || n.Kind == PostDec {
			op = "fsub"
		}
		updated = g.emitter.BinOp(op, old, one, "idnew")
	default:
		return Value{}, g.errorf(n.Line(), "++/-- requires a numeric target, got `%s`", t)
	}

	g.emitter.Store(updated, addr)
	if n.Kind == PreInc || n.Kind == PreDec {
		return updated, nil
	}
	return old, nil
}

//  ---- Calls ----

func (g *CodeGenerator) genCall(n *CallExpr) (Value, error) {
	sig, ok := g.funcs[n.Name]
	if !ok {
		return Value{}, NewCompilerError(ErrUndefinedFunction,
			"cannot find function `"+n.Name+"`", g.file, n.Line(), 1)
	}
	if len(n.Args) != len(sig.params) {
		return Value{}, NewCompilerError(ErrInvalidFunctionCall,
			"function `"+n.Name+"` expects "+strconv.Itoa(len(sig.params))+
				" arguments, got "+strconv.Itoa(len(n.Args)),
			g.file, n.Line(), 1)
	}
	args, err := g.genCallArgs(sig, n.Args, n.Line())
	if err != nil {
		return Value{}, err
	}
	ret := g.callReturnType(sig)
	return g.emitter.Call(sig.name, ret, args, "call_"+sig.name), nil
}

func (g *CodeGenerator) genMethodCall(n *MethodCall) (Value, error) {
	name, err := g.methodFuncName(n)
	if err != nil {
		return Value{}, err
	}
	sig := g.funcs[name]
	if len(n.Args)+1 != len(sig.params) {
		return Value{}, NewCompilerError(ErrInvalidFunctionCall,
			"method `"+n.Name+"` expects "+strconv.Itoa(len(sig.params)-1)+
				" arguments, got "+strconv.Itoa(len(n.Args)),
			g.file, n.Line(), 1)
	}

	// The receiver passes by value as the first argument.
	self, err := g.genExpr(n.Object, g.lowerType(sig.params[0], FlavorValue))
	if err != nil {
		return Value{}, err
	}
	rest, err := g.genCallArgs(funcSig{params: sig.params[1:]}, n.Args, n.Line())
	if err != nil {
		return Value{}, err
	}
	args := append([]Value{self}, rest...)
	ret := g.callReturnType(sig)
	return g.emitter.Call(sig.name, ret, args, "call_"+sig.name), nil
}

func (g *CodeGenerator) callReturnType(sig funcSig) IRType {
	if sig.abiC {
		return g.lowerType(AbiCLower(sig.ret, g.structs), FlavorAbiC)
	}
	return g.lowerType(sig.ret, FlavorValue)
}

func (g *CodeGenerator) genCallArgs(sig funcSig, argExprs []Expression, line int) ([]Value, error) {
	args := make([]Value, len(argExprs))
	for i, argExpr := range argExprs {
		paramType := sig.params[i]
		flavor := FlavorValue
		lowered := paramType
		if sig.abiC {
			flavor = FlavorAbiC
			lowered = AbiCLower(paramType, g.structs)
		}
		t := g.lowerType(lowered, flavor)

		if sig.abiC && IsAggregate(paramType) && !IsAggregate(lowered) {
			// The aggregate shrank to an integer at the C boundary:
			// spill it and reload through a punned pointer.
			v, err := g.genExpr(argExpr, g.lowerType(paramType, flavor))
			if err != nil {
				return nil, err
			}
			args[i] = g.reinterpretAggregate(v, t)
			continue
		}

		v, err := g.genExpr(argExpr, t)
		if err != nil {
			return nil, err
		}
		v, err = g.coerce(v, t, CoerceImplicit, line)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// reinterpretAggregate reloads an aggregate value's bit pattern as
// the C-ABI integer type.
func (g *CodeGenerator) reinterpretAggregate(v Value, as IRType) Value {
	slot := g.emitter.Alloca(v.Type(), "abispill")
	g.emitter.Store(v, slot)
	punned := g.emitter.Cast("bitcast", slot, IRPointer{Elem: as}, "abipun")
	return g.emitter.Load(as, punned, "abival")
}

//  ---- Aggregate literals ----

// genStructLit allocates the named struct, stores each field value
// through a GEP in declaration order, and yields the aggregate.
func (g *CodeGenerator) genStructLit(n *StructLit) (Value, error) {
	layout, ok := g.structs[n.Name]
	if !ok {
		return Value{}, g.errorf(n.Line(), "unknown struct `%s`", n.Name)
	}

	structType := IRStruct{Name: n.Name}
	slot := g.emitter.Alloca(structType, n.Name+".lit")

	given := map[string]Expression{}
	for _, f := range n.Fields {
		if _, dup := given[f.Name]; dup {
			return Value{}, g.errorf(n.Line(), "field `%s` set twice in `%s` literal", f.Name, n.Name)
		}
		if _, exists := layout.FieldIndex[f.Name]; !exists {
			return Value{}, g.errorf(n.Line(), "struct `%s` has no field `%s`", n.Name, f.Name)
		}
		given[f.Name] = f.Value
	}

	for i, field := range layout.Fields {
		init, present := given[field.Name]
		if !present {
			return Value{}, g.errorf(n.Line(), "missing field `%s` in `%s` literal", field.Name, n.Name)
		}
		fieldIR := g.lowerType(field.Type, FlavorValue)
		val, err := g.genExpr(init, fieldIR)
		if err != nil {
			return Value{}, err
		}
		val, err = g.coerce(val, fieldIR, CoerceImplicit, n.Line())
		if err != nil {
			return Value{}, err
		}
		ptr := g.emitter.GEP(structType, slot, []Value{
			g.emitter.ConstInt(irI32, "0"),
			g.emitter.ConstInt(irI32, strconv.Itoa(i)),
		}, IRPointer{Elem: fieldIR}, field.Name+".addr")
		g.emitter.Store(val, ptr)
	}

	return g.emitter.Load(structType, slot, n.Name+".val"), nil
}

// genArrayLit requires the destination type to be known; elements
// coerce to the element type.
func (g *CodeGenerator) genArrayLit(n *ArrayLit, expected IRType) (Value, error) {
	arr, ok := expected.(IRArray)
	if !ok {
		return Value{}, g.errorf(n.Line(),
			"array literal requires a destination of array type")
	}
	if len(n.Elems) != arr.Len {
		return Value{}, g.errorf(n.Line(),
			"array length mismatch: expected %d elements, got %d", arr.Len, len(n.Elems))
	}

	slot := g.emitter.Alloca(arr, "arr.lit")
	if err := g.fillArraySlot(slot, arr, n); err != nil {
		return Value{}, err
	}
	return g.emitter.Load(arr, slot, "arr.val"), nil
}

// fillArraySlot stores each element of the literal into the slot.
func (g *CodeGenerator) fillArraySlot(slot Value, arr IRArray, n *ArrayLit) error {
	for i, elem := range n.Elems {
		val, err := g.genExpr(elem, arr.Elem)
		if err != nil {
			return err
		}
		val, err = g.coerce(val, arr.Elem, CoerceImplicit, n.Line())
		if err != nil {
			return err
		}
		ptr := g.emitter.GEP(arr, slot, []Value{
			g.emitter.ConstInt(irI32, "0"),
			g.emitter.ConstInt(irI32, strconv.Itoa(i)),
		}, IRPointer{Elem: arr.Elem}, "arridx")
		g.emitter.Store(val, ptr)
	}
	return nil
}

//  ---- Address lowering ----

// genAddr produces a pointer for the lvalue forms: variables,
// derefs, field accesses, index accesses, and parenthesized
// combinations of those.  It returns the address and the source type
// of the pointee.
func (g *CodeGenerator) genAddr(e Expression) (Value, WaveType, error) {
	switch n := e.(type) {
	case *VarRef:
		info, ok := g.lookupVar(n.Name)
		if !ok {
			if _, isConst := g.globals[n.Name]; isConst {
				return Value{}, nil, g.errorf(n.Line(),
					"cannot take the address of constant `%s`", n.Name)
			}
			return Value{}, nil, g.errorf(n.Line(), "use of undeclared identifier `%s`", n.Name)
		}
		return info.Slot, info.Type, nil

	case *Grouped:
		return g.genAddr(n.Inner)

	case *DerefExpr:
		ptrType, ok := g.staticType(n.Operand)
		if !ok {
			return Value{}, nil, g.errorf(n.Line(), "cannot determine the type of `%s`", n.Operand)
		}
		ptrVal, err := g.genExpr(n.Operand, nil)
		if err != nil {
			return Value{}, nil, err
		}
		switch t := ptrType.(type) {
		case PointerType:
			return ptrVal, t.Inner, nil
		case StringType:
			return ptrVal, ByteType{}, nil
		}
		return Value{}, nil, g.errorf(n.Line(),
			"cannot dereference value of type `%s`", ptrType)

	case *FieldAccess:
		return g.genFieldAddr(n)

	case *IndexAccess:
		return g.genIndexAddr(n)
	}

	return Value{}, nil, g.errorf(e.Line(), "expression `%s` is not an lvalue", e)
}

func (g *CodeGenerator) genFieldAddr(n *FieldAccess) (Value, WaveType, error) {
	layout, viaPointer, err := g.fieldObjectLayout(n)
	if err != nil {
		return Value{}, nil, err
	}

	var base Value
	if viaPointer {
		// The object expression yields the struct pointer itself.
		base, err = g.genExpr(n.Object, nil)
	} else {
		base, _, err = g.genAddr(n.Object)
	}
	if err != nil {
		return Value{}, nil, err
	}

	idx := layout.FieldIndex[n.Field]
	fieldType := layout.Fields[idx].Type
	fieldIR := g.lowerType(fieldType, FlavorValue)
	addr := g.emitter.GEP(IRStruct{Name: layout.Name}, base, []Value{
		g.emitter.ConstInt(irI32, "0"),
		g.emitter.ConstInt(irI32, strconv.Itoa(idx)),
	}, IRPointer{Elem: fieldIR}, n.Field+".addr")
	return addr, fieldType, nil
}

// genIndexAddr distinguishes the four indexing shapes: an array
// value in a slot, a pointer to an array, a pointer to an element,
// and a string byte pointer.
func (g *CodeGenerator) genIndexAddr(n *IndexAccess) (Value, WaveType, error) {
	targetType, ok := g.staticType(n.Target)
	if !ok {
		return Value{}, nil, g.errorf(n.Line(), "cannot determine the type of `%s`", n.Target)
	}

	idx, err := g.genExpr(n.Index, irI64)
	if err != nil {
		return Value{}, nil, err
	}
	idx, err = g.coerce(idx, irI64, CoerceImplicit, n.Line())
	if err != nil {
		return Value{}, nil, err
	}

	switch t := targetType.(type) {
	case ArrayType:
		base, _, err := g.genAddr(n.Target)
		if err != nil {
			return Value{}, nil, err
		}
		arrIR := g.lowerType(t, FlavorValue).(IRArray)
		addr := g.emitter.GEP(arrIR, base, []Value{
			g.emitter.ConstInt(irI64, "0"),
			idx,
		}, IRPointer{Elem: arrIR.Elem}, "idx")
		return addr, t.Inner, nil

	case PointerType:
		ptrVal, err := g.genExpr(n.Target, nil)
		if err != nil {
			return Value{}, nil, err
		}
		if arr, isArr := t.Inner.(ArrayType); isArr {
			arrIR := g.lowerType(arr, FlavorValue).(IRArray)
			addr := g.emitter.GEP(arrIR, ptrVal, []Value{
				g.emitter.ConstInt(irI64, "0"),
				idx,
			}, IRPointer{Elem: arrIR.Elem}, "idx")
			return addr, arr.Inner, nil
		}
		elemIR := g.lowerType(t.Inner, FlavorValue)
		addr := g.emitter.GEP(elemIR, ptrVal, []Value{idx},
			IRPointer{Elem: elemIR}, "idx")
		return addr, t.Inner, nil

	case StringType:
		ptrVal, err := g.genExpr(n.Target, nil)
		if err != nil {
			return Value{}, nil, err
		}
		addr := g.emitter.GEP(irI8, ptrVal, []Value{idx}, irI8Ptr, "stridx")
		return addr, ByteType{}, nil
	}

	return Value{}, nil, g.errorf(n.Line(), "cannot index a value of type `%s`", targetType)
}
