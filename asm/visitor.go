package asm

// MethodVisitor receives the instructions of one method body in order.
type MethodVisitor interface {
	VisitInsn(op Opcode)
	VisitIntInsn(op Opcode, operand int)
	VisitVarInsn(op Opcode, slot int)
	VisitTypeInsn(op Opcode, typ string)
	VisitFieldInsn(op Opcode, owner, name, desc string)
	VisitMethodInsn(op Opcode, owner, name, desc string)
	VisitJumpInsn(op Opcode, l *Label)
	VisitLabel(l *Label)
	VisitLdcInsn(v any)
	VisitIincInsn(slot, incr int)
	VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label)
	VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label)
	VisitMultiANewArrayInsn(desc string, dims int)
	VisitTryCatchBlock(start, end, handler *Label, typ string)
	VisitLineNumber(line int, start *Label)
	VisitMaxs(maxStack, maxLocals int)
	VisitEnd()
}

// Adapter turns every visit into an Insn and hands it to a step function.
// With no step set it forwards to Next unchanged. Optimizer stages embed it.
type Adapter struct {
	Next MethodVisitor
	step func(Insn)
	end  func()
}

// NewAdapter returns a pass-through adapter.
func NewAdapter(next MethodVisitor) *Adapter { return &Adapter{Next: next} }

// Forward sends in to the next visitor.
func (a *Adapter) Forward(in Insn) { in.Accept(a.Next) }

func (a *Adapter) handle(in Insn) {
	if a.step != nil {
		a.step(in)
		return
	}
	a.Forward(in)
}

func (a *Adapter) VisitInsn(op Opcode)                 { a.handle(Op(op)) }
func (a *Adapter) VisitIntInsn(op Opcode, operand int) { a.handle(IntOp(op, operand)) }
func (a *Adapter) VisitVarInsn(op Opcode, slot int)    { a.handle(Var(op, slot)) }
func (a *Adapter) VisitTypeInsn(op Opcode, typ string) { a.handle(TypeOp(op, typ)) }
func (a *Adapter) VisitJumpInsn(op Opcode, l *Label)   { a.handle(Jump(op, l)) }
func (a *Adapter) VisitLabel(l *Label)                 { a.handle(Mark(l)) }
func (a *Adapter) VisitLdcInsn(v any)                  { a.handle(Ldc(v)) }
func (a *Adapter) VisitIincInsn(slot, incr int)        { a.handle(Iinc(slot, incr)) }
func (a *Adapter) VisitLineNumber(line int, start *Label) {
	a.handle(Line(line, start))
}

func (a *Adapter) VisitFieldInsn(op Opcode, owner, name, desc string) {
	a.handle(FieldOp(op, owner, name, desc))
}

func (a *Adapter) VisitMethodInsn(op Opcode, owner, name, desc string) {
	a.handle(Invoke(op, owner, name, desc))
}

func (a *Adapter) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	a.handle(Insn{Kind: KindTableSwitch, Op: TABLESWITCH, Arg: min, Arg2: max, Label: dflt, Labels: labels})
}

func (a *Adapter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	a.handle(Insn{Kind: KindLookupSwitch, Op: LOOKUPSWITCH, Label: dflt, Keys: keys, Labels: labels})
}

func (a *Adapter) VisitMultiANewArrayInsn(desc string, dims int) {
	a.handle(Insn{Kind: KindMultiANewArray, Op: MULTIANEWARRAY, Desc: desc, Arg: dims})
}

func (a *Adapter) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	a.handle(TryCatch(start, end, handler, typ))
}

func (a *Adapter) VisitMaxs(maxStack, maxLocals int) {
	a.handle(Insn{Kind: KindMaxs, Arg: maxStack, Arg2: maxLocals})
}

func (a *Adapter) VisitEnd() {
	if a.end != nil {
		a.end()
	}
	a.Next.VisitEnd()
}
