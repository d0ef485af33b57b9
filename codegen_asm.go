package wave

import (
	"fmt"
	"strings"
)

// AsmSafetyMode controls whether a register may appear as both an
// input and an output of the same block.
type AsmSafetyMode int

const (
	// AsmConservative rejects shared in/out registers and always
	// marks the block as having side effects.
	AsmConservative AsmSafetyMode = iota
	// AsmAllowSharedRegisters permits a register on both sides.
	AsmAllowSharedRegisters
)

// AsmPlan is the target-normalized description of an inline assembly
// block: joined instruction text, ordered operands, clobbers, the
// dialect, and the assembled constraint string.
type AsmPlan struct {
	Target       CodegenTarget
	AsmCode      string
	Inputs       []AsmOperand
	Outputs      []AsmOperand
	Clobbers     []string
	SideEffects  bool
	IntelDialect bool
}

// BuildAsmPlan validates and orders the operands of an asm block.
// Duplicate registers within either side fail; a register appearing
// on both sides is rejected under AsmConservative.
func BuildAsmPlan(target CodegenTarget, instructions []string, inputs, outputs []AsmOperand, clobbers []string, mode AsmSafetyMode) (*AsmPlan, error) {
	inRegs := map[string]bool{}
	for _, op := range inputs {
		if inRegs[op.Reg] {
			return nil, fmt.Errorf("register `%s` is listed twice as an input", op.Reg)
		}
		inRegs[op.Reg] = true
	}
	outRegs := map[string]bool{}
	for _, op := range outputs {
		if outRegs[op.Reg] {
			return nil, fmt.Errorf("register `%s` is listed twice as an output", op.Reg)
		}
		outRegs[op.Reg] = true
	}
	if mode == AsmConservative {
		for reg := range inRegs {
			if outRegs[reg] {
				return nil, fmt.Errorf(
					"register `%s` is both an input and an output; not allowed in conservative mode", reg)
			}
		}
	}

	return &AsmPlan{
		Target:       target,
		AsmCode:      strings.Join(instructions, "\n"),
		Inputs:       inputs,
		Outputs:      outputs,
		Clobbers:     clobbers,
		SideEffects:  true,
		IntelDialect: target.IntelDialect(),
	}, nil
}

// ConstraintString assembles the constraint list in the order
// outputs, inputs, clobbers: `={reg}` for outputs, `{reg}` for
// inputs, `~{reg}` for clobbers.
func (p *AsmPlan) ConstraintString() string {
	var parts []string
	for _, op := range p.Outputs {
		parts = append(parts, "={"+op.Reg+"}")
	}
	for _, op := range p.Inputs {
		parts = append(parts, "{"+op.Reg+"}")
	}
	for _, reg := range p.Clobbers {
		parts = append(parts, "~{"+reg+"}")
	}
	return strings.Join(parts, ",")
}

// genAsmStmt lowers the statement form.  With an output clause the
// result stores into the output target; with none the block runs for
// its effects.
func (g *CodeGenerator) genAsmStmt(n *AsmStmt) error {
	plan, err := BuildAsmPlan(g.target, n.Instructions, n.Inputs, n.Outputs, n.Clobbers, AsmConservative)
	if err != nil {
		return g.errorf(n.Line(), "%s", err)
	}
	if len(plan.Outputs) > 1 {
		return g.errorf(n.Line(), "asm blocks support at most one output, got %d", len(plan.Outputs))
	}

	args, err := g.genAsmInputs(plan.Inputs)
	if err != nil {
		return err
	}

	if len(plan.Outputs) == 0 {
		g.emitter.InlineAsm(IRVoid{}, plan.AsmCode, plan.ConstraintString(),
			plan.SideEffects, plan.IntelDialect, args, "asm")
		return nil
	}

	addr, pointee, err := g.genAddr(plan.Outputs[0].Value)
	if err != nil {
		return err
	}
	outType := g.lowerType(pointee, FlavorValue)
	result := g.emitter.InlineAsm(outType, plan.AsmCode, plan.ConstraintString(),
		plan.SideEffects, plan.IntelDialect, args, "asm")
	g.emitter.Store(result, addr)
	return nil
}

// genAsmExpr lowers the expression form; the single output target's
// type is the result type.
func (g *CodeGenerator) genAsmExpr(n *AsmExpr) (Value, error) {
	plan, err := BuildAsmPlan(g.target, n.Instructions, n.Inputs, n.Outputs, n.Clobbers, AsmConservative)
	if err != nil {
		return Value{}, g.errorf(n.Line(), "%s", err)
	}
	if len(plan.Outputs) != 1 {
		return Value{}, g.errorf(n.Line(),
			"asm expression requires exactly one output, got %d", len(plan.Outputs))
	}

	args, err := g.genAsmInputs(plan.Inputs)
	if err != nil {
		return Value{}, err
	}

	addr, pointee, err := g.genAddr(plan.Outputs[0].Value)
	if err != nil {
		return Value{}, err
	}
	outType := g.lowerType(pointee, FlavorValue)
	result := g.emitter.InlineAsm(outType, plan.AsmCode, plan.ConstraintString(),
		plan.SideEffects, plan.IntelDialect, args, "asm")
	g.emitter.Store(result, addr)
	return result, nil
}

// genAsmInputs evaluates input operands in plan order.
func (g *CodeGenerator) genAsmInputs(inputs []AsmOperand) ([]Value, error) {
	args := make([]Value, len(inputs))
	for i, op := range inputs {
		v, err := g.genExpr(op.Value, nil)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
