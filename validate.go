package wave

import (
	"fmt"
	"strings"
)

// Validator walks a flattened AST and checks scope resolution,
// mutability of write targets, and the extern ABI whitelist.  Scopes
// are pushed on function entry and on every block body; resolution
// is innermost-first, then globals.
type Validator struct {
	file    string
	globals map[string]Mutability
	scopes  []map[string]Mutability
}

func NewValidator() *Validator {
	return &Validator{file: "<input>"}
}

func NewValidatorWithFile(file string) *Validator {
	return &Validator{file: file}
}

// Validate accepts the program or returns the first semantic error.
func (v *Validator) Validate(items []TopLevel) error {
	v.globals = map[string]Mutability{}
	v.scopes = []map[string]Mutability{{}}

	// Top-level constants and enum variants resolve as constants
	// from anywhere.
	for _, item := range items {
		switch n := item.(type) {
		case *VariableDecl:
			if n.Mut == MutConst {
				v.globals[n.Name] = MutConst
			}
		case *EnumDecl:
			for _, variant := range n.Variants {
				v.globals[variant.Name] = MutConst
			}
		}
	}

	for _, item := range items {
		switch n := item.(type) {
		case *FunctionDecl:
			if err := v.validateFunction(n); err != nil {
				return err
			}
		case *StructDecl:
			for _, m := range n.Methods {
				if err := v.validateFunction(m); err != nil {
					return err
				}
			}
		case *ProtoImpl:
			for _, m := range n.Methods {
				if err := v.validateFunction(m); err != nil {
					return err
				}
			}
		case *ExternFunction:
			if !strings.EqualFold(n.ABI, "c") {
				return NewCompilerError(ErrInvalidFunctionCall,
					fmt.Sprintf("unsupported extern ABI `%s` for function `%s`: only extern(c) is supported",
						n.ABI, n.Name),
					v.file, n.Line(), 1)
			}
		}
	}
	return nil
}

func (v *Validator) pushScope() { v.scopes = append(v.scopes, map[string]Mutability{}) }
func (v *Validator) popScope()  { v.scopes = v.scopes[:len(v.scopes)-1] }

func (v *Validator) declare(name string, mut Mutability) {
	v.scopes[len(v.scopes)-1][name] = mut
}

// lookup resolves a name innermost-first, then through globals.
func (v *Validator) lookup(name string) (Mutability, bool) {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if m, ok := v.scopes[i][name]; ok {
			return m, true
		}
	}
	m, ok := v.globals[name]
	return m, ok
}

func (v *Validator) validateFunction(fn *FunctionDecl) error {
	v.pushScope()
	defer v.popScope()

	// Parameters behave as mutable bindings inside the body.
	for _, p := range fn.Params {
		v.declare(p.Name, MutVar)
	}
	return v.validateBody(fn.Body)
}

func (v *Validator) validateBody(body []Statement) error {
	for _, stmt := range body {
		if err := v.validateStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateScopedBody(body []Statement) error {
	v.pushScope()
	defer v.popScope()
	return v.validateBody(body)
}

func (v *Validator) validateStatement(stmt Statement) error {
	switch n := stmt.(type) {
	case *VariableDecl:
		if n.Init != nil {
			if err := v.validateExpr(n.Init); err != nil {
				return err
			}
		}
		v.declare(n.Name, n.Mut)
		return nil

	case *AssignStmt:
		if err := v.checkWriteTarget(n.Target, "assign to", n.Line()); err != nil {
			return err
		}
		if err := v.validateExpr(n.Target); err != nil {
			return err
		}
		return v.validateExpr(n.Value)

	case *IfStmt:
		if err := v.validateExpr(n.Cond); err != nil {
			return err
		}
		if err := v.validateScopedBody(n.Body); err != nil {
			return err
		}
		for _, arm := range n.ElseIfs {
			if err := v.validateExpr(arm.Cond); err != nil {
				return err
			}
			if err := v.validateScopedBody(arm.Body); err != nil {
				return err
			}
		}
		if n.Else != nil {
			return v.validateScopedBody(n.Else)
		}
		return nil

	case *WhileStmt:
		if err := v.validateExpr(n.Cond); err != nil {
			return err
		}
		return v.validateScopedBody(n.Body)

	case *ForStmt:
		v.pushScope()
		defer v.popScope()
		if n.Init != nil {
			if err := v.validateStatement(n.Init); err != nil {
				return err
			}
		}
		if n.Cond != nil {
			if err := v.validateExpr(n.Cond); err != nil {
				return err
			}
		}
		if n.Post != nil {
			if err := v.validateExpr(n.Post); err != nil {
				return err
			}
		}
		return v.validateBody(n.Body)

	case *ReturnStmt:
		if n.Value != nil {
			return v.validateExpr(n.Value)
		}
		return nil

	case *PrintFormatStmt:
		return v.validateExprs(n.Args)

	case *InputStmt:
		for _, arg := range n.Args {
			if err := v.validateExpr(arg); err != nil {
				return err
			}
		}
		return nil

	case *AsmStmt:
		for _, in := range n.Inputs {
			if err := v.validateExpr(in.Value); err != nil {
				return err
			}
		}
		for _, out := range n.Outputs {
			if err := v.validateExpr(out.Value); err != nil {
				return err
			}
		}
		return nil

	case *ExprStmt:
		return v.validateExpr(n.E)

	case *PrintStmt, *BreakStmt, *ContinueStmt:
		return nil
	}
	return nil
}

func (v *Validator) validateExprs(exprs []Expression) error {
	for _, e := range exprs {
		if err := v.validateExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateExpr(e Expression) error {
	switch n := e.(type) {
	case *VarRef:
		if _, ok := v.lookup(n.Name); !ok {
			return UndefinedVariableError(n.Name, v.file, n.Line(), 1)
		}
		return nil

	case *Assign:
		if err := v.checkWriteTarget(n.Target, "assign to", n.Line()); err != nil {
			return err
		}
		if err := v.validateExpr(n.Target); err != nil {
			return err
		}
		return v.validateExpr(n.Value)

	case *AssignOp:
		if err := v.checkWriteTarget(n.Target, "assign to", n.Line()); err != nil {
			return err
		}
		if err := v.validateExpr(n.Target); err != nil {
			return err
		}
		return v.validateExpr(n.Value)

	case *IncDec:
		if err := v.checkWriteTarget(n.Target, "modify with ++/--", n.Line()); err != nil {
			return err
		}
		return v.validateExpr(n.Target)

	case *Binary:
		if err := v.validateExpr(n.Left); err != nil {
			return err
		}
		return v.validateExpr(n.Right)

	case *Unary:
		return v.validateExpr(n.Operand)

	case *Grouped:
		return v.validateExpr(n.Inner)

	case *AddressOf:
		return v.validateExpr(n.Operand)

	case *DerefExpr:
		return v.validateExpr(n.Operand)

	case *FieldAccess:
		return v.validateExpr(n.Object)

	case *IndexAccess:
		if err := v.validateExpr(n.Target); err != nil {
			return err
		}
		return v.validateExpr(n.Index)

	case *CallExpr:
		return v.validateExprs(n.Args)

	case *MethodCall:
		if err := v.validateExpr(n.Object); err != nil {
			return err
		}
		return v.validateExprs(n.Args)

	case *StructLit:
		for _, f := range n.Fields {
			if err := v.validateExpr(f.Value); err != nil {
				return err
			}
		}
		return nil

	case *ArrayLit:
		return v.validateExprs(n.Elems)

	case *AsmExpr:
		for _, in := range n.Inputs {
			if err := v.validateExpr(in.Value); err != nil {
				return err
			}
		}
		for _, out := range n.Outputs {
			if err := v.validateExpr(out.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// baseVariable finds the variable at the root of a write target,
// reporting whether a deref sits between the target and the base.
// A write through a deref is always permitted: the pointer itself is
// the binding, not the pointee.
func baseVariable(target Expression, sawDeref bool) (string, bool, bool) {
	switch n := target.(type) {
	case *VarRef:
		return n.Name, sawDeref, true
	case *Grouped:
		return baseVariable(n.Inner, sawDeref)
	case *FieldAccess:
		return baseVariable(n.Object, sawDeref)
	case *IndexAccess:
		return baseVariable(n.Target, sawDeref)
	case *DerefExpr:
		return baseVariable(n.Operand, true)
	default:
		return "", false, false
	}
}

func (v *Validator) checkWriteTarget(target Expression, why string, line int) error {
	name, sawDeref, ok := baseVariable(target, false)
	if !ok || sawDeref {
		return nil
	}
	if m, found := v.lookup(name); found && !m.Writable() {
		return NewCompilerError(ErrInvalidAssignment,
			fmt.Sprintf("cannot %s immutable binding `%s` (%s)", why, name, m),
			v.file, line, 1)
	}
	return nil
}
