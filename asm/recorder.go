package asm

// Sequence is a finished method body.
type Sequence struct {
	Insns     []Insn
	MaxStack  int
	MaxLocals int
}

// Replay sends every instruction to mv, followed by VisitMaxs and VisitEnd.
func (s *Sequence) Replay(mv MethodVisitor) {
	Emit(mv, s.Insns...)
	mv.VisitMaxs(s.MaxStack, s.MaxLocals)
	mv.VisitEnd()
}

// Len returns the number of recorded instructions.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Insns)
}

// Ops returns the opcodes of the real instructions, skipping labels, line
// numbers and exception-table entries.
func (s *Sequence) Ops() []Opcode {
	var out []Opcode
	for _, in := range s.Insns {
		switch in.Kind {
		case KindLabel, KindLine, KindTryCatch, KindMaxs:
			continue
		}
		out = append(out, in.Op)
	}
	return out
}

// Recorder is a terminal sink that stores what it is given.
type Recorder struct {
	seq   *Sequence
	ended bool
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{seq: &Sequence{}} }

// Sequence returns the recorded body.
func (r *Recorder) Sequence() *Sequence { return r.seq }

// Ended reports whether VisitEnd has been seen.
func (r *Recorder) Ended() bool { return r.ended }

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.seq = &Sequence{}
	r.ended = false
}

func (r *Recorder) add(in Insn) { r.seq.Insns = append(r.seq.Insns, in) }

func (r *Recorder) VisitInsn(op Opcode)                    { r.add(Op(op)) }
func (r *Recorder) VisitIntInsn(op Opcode, operand int)    { r.add(IntOp(op, operand)) }
func (r *Recorder) VisitVarInsn(op Opcode, slot int)       { r.add(Var(op, slot)) }
func (r *Recorder) VisitTypeInsn(op Opcode, typ string)    { r.add(TypeOp(op, typ)) }
func (r *Recorder) VisitJumpInsn(op Opcode, l *Label)      { r.add(Jump(op, l)) }
func (r *Recorder) VisitLabel(l *Label)                    { r.add(Mark(l)) }
func (r *Recorder) VisitLdcInsn(v any)                     { r.add(Ldc(v)) }
func (r *Recorder) VisitIincInsn(slot, incr int)           { r.add(Iinc(slot, incr)) }
func (r *Recorder) VisitLineNumber(line int, start *Label) { r.add(Line(line, start)) }

func (r *Recorder) VisitFieldInsn(op Opcode, owner, name, desc string) {
	r.add(FieldOp(op, owner, name, desc))
}

func (r *Recorder) VisitMethodInsn(op Opcode, owner, name, desc string) {
	r.add(Invoke(op, owner, name, desc))
}

func (r *Recorder) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	r.add(Insn{Kind: KindTableSwitch, Op: TABLESWITCH, Arg: min, Arg2: max, Label: dflt, Labels: labels})
}

func (r *Recorder) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	r.add(Insn{Kind: KindLookupSwitch, Op: LOOKUPSWITCH, Label: dflt, Keys: keys, Labels: labels})
}

func (r *Recorder) VisitMultiANewArrayInsn(desc string, dims int) {
	r.add(Insn{Kind: KindMultiANewArray, Op: MULTIANEWARRAY, Desc: desc, Arg: dims})
}

func (r *Recorder) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	r.add(TryCatch(start, end, handler, typ))
}

func (r *Recorder) VisitMaxs(maxStack, maxLocals int) {
	r.seq.MaxStack = maxStack
	r.seq.MaxLocals = maxLocals
}

func (r *Recorder) VisitEnd() { r.ended = true }
