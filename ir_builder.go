package wave

import (
	"fmt"
	"strings"
)

// Emitter is the abstract surface the code generator lowers through.
// The in-memory Builder is the reference implementation; swapping in
// a binding to a native IR library only requires satisfying this
// interface.
type Emitter interface {
	SetTarget(triple string)

	DeclareStruct(name string, fields []IRType)
	DeclareExtern(name string, ret IRType, params []IRType, variadic bool)
	GlobalString(value string) Value

	BeginFunction(name string, ret IRType, params []IRParam)
	NewBlock(hint string) *Block
	SetInsertPoint(b *Block)
	CurrentBlock() *Block

	Alloca(t IRType, hint string) Value
	Load(t IRType, ptr Value, hint string) Value
	Store(val, ptr Value)
	GEP(pointee IRType, ptr Value, indices []Value, result IRType, hint string) Value

	BinOp(op string, lhs, rhs Value, hint string) Value
	ICmp(pred string, lhs, rhs Value, hint string) Value
	FCmp(pred string, lhs, rhs Value, hint string) Value
	Cast(op string, val Value, to IRType, hint string) Value

	Call(name string, ret IRType, args []Value, hint string) Value
	CallVariadic(name string, ret IRType, fixed []IRType, args []Value, hint string) Value
	InlineAsm(ret IRType, asm, constraints string, sideEffects, intelDialect bool, args []Value, hint string) Value

	Br(dest *Block)
	CondBr(cond Value, then, els *Block)
	Ret(v Value)
	RetVoid()
	Unreachable()

	ConstInt(t IRType, text string) Value
	ConstFloat(t IRType, v float64) Value
	ConstNull(t IRType) Value

	Render() string
}

// Builder accumulates LLVM-compatible textual IR.
type Builder struct {
	module *Module
	fn     *irFunc
	block  *Block

	tmpCounter    int
	strCounter    int
	labelCounters map[string]int
}

var _ Emitter = (*Builder)(nil)

func NewBuilder() *Builder {
	return &Builder{module: NewModule(), labelCounters: map[string]int{}}
}

func (b *Builder) SetTarget(triple string) { b.module.triple = triple }

func (b *Builder) DeclareStruct(name string, fields []IRType) {
	key := "struct:" + name
	if b.module.seen[key] {
		return
	}
	b.module.seen[key] = true
	b.module.structs = append(b.module.structs, structDef{name: name, fields: fields})
}

func (b *Builder) DeclareExtern(name string, ret IRType, params []IRType, variadic bool) {
	key := "extern:" + name
	if b.module.seen[key] {
		return
	}
	b.module.seen[key] = true
	b.module.externs = append(b.module.externs, externDecl{
		name: name, ret: ret, params: params, variadic: variadic,
	})
}

// GlobalString interns a null-terminated byte array constant and
// returns its decayed i8* address.
func (b *Builder) GlobalString(value string) Value {
	name := fmt.Sprintf("@.str.%d", b.strCounter)
	b.strCounter++
	n := len(value) + 1
	b.module.globals = append(b.module.globals, fmt.Sprintf(
		"%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"",
		name, n, escapeIRString(value)))
	ref := fmt.Sprintf(
		"getelementptr inbounds ([%d x i8], [%d x i8]* %s, i64 0, i64 0)",
		n, n, name)
	return Value{kind: valGlobal, text: ref, typ: irI8Ptr}
}

// escapeIRString renders bytes the way LLVM array constants expect:
// printable ASCII stays, everything else becomes \XX.
func escapeIRString(s string) string {
	var out strings.Builder
	for _, c := range []byte(s) {
		if c >= 0x20 && c <= 0x7e && c != '"' && c != '\\' {
			out.WriteByte(c)
			continue
		}
		fmt.Fprintf(&out, "\\%02X", c)
	}
	return out.String()
}

func (b *Builder) BeginFunction(name string, ret IRType, params []IRParam) {
	b.fn = &irFunc{name: name, ret: ret, params: params}
	b.module.funcs = append(b.module.funcs, b.fn)
	b.tmpCounter = 0
	b.labelCounters = map[string]int{}
	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)
}

func (b *Builder) NewBlock(hint string) *Block {
	n := b.labelCounters[hint]
	b.labelCounters[hint]++
	label := hint
	if n > 0 {
		label = fmt.Sprintf("%s%d", hint, n)
	}
	blk := &Block{label: label}
	b.fn.blocks = append(b.fn.blocks, blk)
	return blk
}

func (b *Builder) SetInsertPoint(blk *Block) { b.block = blk }

func (b *Builder) CurrentBlock() *Block { return b.block }

func (b *Builder) nextTmp(hint string) string {
	b.tmpCounter++
	if hint == "" {
		hint = "t"
	}
	return fmt.Sprintf("%%%s%d", hint, b.tmpCounter)
}

func (b *Builder) emit(inst string) {
	if b.block.terminated {
		// Unreachable code after break/continue/return is dropped.
		return
	}
	b.block.insts = append(b.block.insts, inst)
}

func (b *Builder) terminate(inst string) {
	if b.block.terminated {
		return
	}
	b.block.insts = append(b.block.insts, inst)
	b.block.terminated = true
}

func (b *Builder) Alloca(t IRType, hint string) Value {
	name := b.nextTmp(hint)
	b.emit(fmt.Sprintf("%s = alloca %s", name, t))
	return NewRegValue(IRPointer{Elem: t}, name)
}

func (b *Builder) Load(t IRType, ptr Value, hint string) Value {
	name := b.nextTmp(hint)
	b.emit(fmt.Sprintf("%s = load %s, %s", name, t, ptr.TypedRef()))
	return NewRegValue(t, name)
}

func (b *Builder) Store(val, ptr Value) {
	b.emit(fmt.Sprintf("store %s, %s", val.TypedRef(), ptr.TypedRef()))
}

func (b *Builder) GEP(pointee IRType, ptr Value, indices []Value, result IRType, hint string) Value {
	name := b.nextTmp(hint)
	var idx strings.Builder
	for _, i := range indices {
		idx.WriteString(", ")
		idx.WriteString(i.TypedRef())
	}
	b.emit(fmt.Sprintf("%s = getelementptr inbounds %s, %s%s",
		name, pointee, ptr.TypedRef(), idx.String()))
	return NewRegValue(result, name)
}

func (b *Builder) BinOp(op string, lhs, rhs Value, hint string) Value {
	name := b.nextTmp(hint)
	b.emit(fmt.Sprintf("%s = %s %s, %s", name, op, lhs.TypedRef(), rhs.Ref()))
	return NewRegValue(lhs.Type(), name)
}

func (b *Builder) ICmp(pred string, lhs, rhs Value, hint string) Value {
	name := b.nextTmp(hint)
	b.emit(fmt.Sprintf("%s = icmp %s %s, %s", name, pred, lhs.TypedRef(), rhs.Ref()))
	return NewRegValue(irI1, name)
}

func (b *Builder) FCmp(pred string, lhs, rhs Value, hint string) Value {
	name := b.nextTmp(hint)
	b.emit(fmt.Sprintf("%s = fcmp %s %s, %s", name, pred, lhs.TypedRef(), rhs.Ref()))
	return NewRegValue(irI1, name)
}

// Cast emits a conversion: trunc, sext, zext, sitofp, fptosi,
// fpext, fptrunc, bitcast, inttoptr, or ptrtoint.
func (b *Builder) Cast(op string, val Value, to IRType, hint string) Value {
	name := b.nextTmp(hint)
	b.emit(fmt.Sprintf("%s = %s %s to %s", name, op, val.TypedRef(), to))
	return NewRegValue(to, name)
}

func (b *Builder) Call(name string, ret IRType, args []Value, hint string) Value {
	refs := make([]string, len(args))
	for i, a := range args {
		refs[i] = a.TypedRef()
	}
	callee := fmt.Sprintf("call %s @%s(%s)", ret, name, strings.Join(refs, ", "))
	if _, ok := ret.(IRVoid); ok {
		b.emit(callee)
		return noneValue
	}
	result := b.nextTmp(hint)
	b.emit(result + " = " + callee)
	return NewRegValue(ret, result)
}

// CallVariadic calls a varargs function like printf, spelling the
// full function type as LLVM requires.
func (b *Builder) CallVariadic(name string, ret IRType, fixed []IRType, args []Value, hint string) Value {
	sig := make([]string, len(fixed))
	for i, t := range fixed {
		sig[i] = t.String()
	}
	refs := make([]string, len(args))
	for i, a := range args {
		refs[i] = a.TypedRef()
	}
	callee := fmt.Sprintf("call %s (%s, ...) @%s(%s)",
		ret, strings.Join(sig, ", "), name, strings.Join(refs, ", "))
	if _, ok := ret.(IRVoid); ok {
		b.emit(callee)
		return noneValue
	}
	result := b.nextTmp(hint)
	b.emit(result + " = " + callee)
	return NewRegValue(ret, result)
}

func (b *Builder) InlineAsm(ret IRType, asm, constraints string, sideEffects, intelDialect bool, args []Value, hint string) Value {
	if ret == nil {
		ret = IRVoid{}
	}
	attrs := ""
	if sideEffects {
		attrs += " sideeffect"
	}
	if intelDialect {
		attrs += " inteldialect"
	}
	refs := make([]string, len(args))
	for i, a := range args {
		refs[i] = a.TypedRef()
	}
	callee := fmt.Sprintf("call %s asm%s \"%s\", \"%s\"(%s)",
		ret, attrs, escapeIRString(asm), constraints, strings.Join(refs, ", "))
	if _, ok := ret.(IRVoid); ok {
		b.emit(callee)
		return noneValue
	}
	result := b.nextTmp(hint)
	b.emit(result + " = " + callee)
	return NewRegValue(ret, result)
}

func (b *Builder) Br(dest *Block) {
	b.terminate(fmt.Sprintf("br label %%%s", dest.label))
}

func (b *Builder) CondBr(cond Value, then, els *Block) {
	b.terminate(fmt.Sprintf("br %s, label %%%s, label %%%s",
		cond.TypedRef(), then.label, els.label))
}

func (b *Builder) Ret(v Value) {
	b.terminate(fmt.Sprintf("ret %s", v.TypedRef()))
}

func (b *Builder) RetVoid() {
	b.terminate("ret void")
}

func (b *Builder) Unreachable() {
	b.terminate("unreachable")
}

func (b *Builder) ConstInt(t IRType, text string) Value {
	return NewConstValue(t, text)
}

func (b *Builder) ConstFloat(t IRType, v float64) Value {
	return NewConstValue(t, fmt.Sprintf("%e", v))
}

func (b *Builder) ConstNull(t IRType) Value {
	return NewConstValue(t, "null")
}

// Render produces the module as LLVM-compatible text, in the order:
// target, struct types, globals, extern declarations, functions.
func (b *Builder) Render() string {
	var out strings.Builder
	m := b.module

	if m.triple != "" {
		fmt.Fprintf(&out, "target triple = %q\n\n", m.triple)
	}

	for _, s := range m.structs {
		fields := make([]string, len(s.fields))
		for i, f := range s.fields {
			fields[i] = f.String()
		}
		fmt.Fprintf(&out, "%%%s = type { %s }\n", s.name, strings.Join(fields, ", "))
	}
	if len(m.structs) > 0 {
		out.WriteByte('\n')
	}

	for _, g := range m.globals {
		out.WriteString(g)
		out.WriteByte('\n')
	}
	if len(m.globals) > 0 {
		out.WriteByte('\n')
	}

	for _, e := range m.externs {
		params := make([]string, len(e.params))
		for i, p := range e.params {
			params[i] = p.String()
		}
		if e.variadic {
			params = append(params, "...")
		}
		fmt.Fprintf(&out, "declare %s @%s(%s)\n", e.ret, e.name, strings.Join(params, ", "))
	}
	if len(m.externs) > 0 {
		out.WriteByte('\n')
	}

	for _, fn := range m.funcs {
		params := make([]string, len(fn.params))
		for i, p := range fn.params {
			params[i] = fmt.Sprintf("%s %%%s", p.Type, p.Name)
		}
		fmt.Fprintf(&out, "define %s @%s(%s) {\n", fn.ret, fn.name, strings.Join(params, ", "))
		for i, blk := range fn.blocks {
			if i > 0 {
				out.WriteByte('\n')
			}
			fmt.Fprintf(&out, "%s:\n", blk.label)
			for _, inst := range blk.insts {
				out.WriteString("  ")
				out.WriteString(inst)
				out.WriteByte('\n')
			}
		}
		out.WriteString("}\n\n")
	}

	return out.String()
}
